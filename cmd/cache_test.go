package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/litcal-mcp/internal/litcal/litcaltest"
)

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCacheWarmAndClear(t *testing.T) {
	api := litcaltest.NewServer(t)
	base := []string{"--api-base-url", api.URL, "--cache-dir", t.TempDir()}

	out, err := runCommand(t, newCacheWarmCmd(), append(base, "--year", "2024", "--locale", "en,it")...)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, ": downloaded"), out)

	hits := api.Hits()
	out, err = runCommand(t, newCacheWarmCmd(), append(base, "--year", "2024", "--locale", "en,it")...)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, ": already cached"), out)
	// Only the metadata is requested again.
	assert.Equal(t, hits+1, api.Hits())

	out, err = runCommand(t, newCacheClearCmd(), append(base, "--year", "2024", "--locale", "it")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared 1 cached calendar(s)")

	out, err = runCommand(t, newCacheClearCmd(), base...)
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared 1 cached calendar(s)")
}

func TestCacheWarm_NationalCalendars(t *testing.T) {
	api := litcaltest.NewServer(t)
	base := []string{"--api-base-url", api.URL, "--cache-dir", t.TempDir()}

	out, err := runCommand(t, newCacheWarmCmd(), append(base, "--type", "national", "--id", "US,IT", "--year", "2025")...)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, ": downloaded"), out)

	var paths []string
	for _, r := range api.Requests() {
		paths = append(paths, r.Path)
	}
	assert.Contains(t, paths, "/calendar/nation/US/2025")
	assert.Contains(t, paths, "/calendar/nation/IT/2025")

	// The default locale resolves to what each calendar supports.
	out, err = runCommand(t, newCacheClearCmd(), append(base, "--type", "NATIONAL", "--id", "US", "--year", "2025")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared 1 cached calendar(s)")
}

func TestCacheWarm_InvalidSelection(t *testing.T) {
	api := litcaltest.NewServer(t)
	base := []string{"--api-base-url", api.URL, "--cache-dir", t.TempDir()}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "unknown nation",
			args: []string{"--type", "NATIONAL", "--id", "XX"},
			want: "National calendar not found for: XX",
		},
		{
			name: "year out of range",
			args: []string{"--year", "1500"},
			want: "Year must be between 1970 and 9999",
		},
		{
			name: "bad calendar type",
			args: []string{"--type", "parish"},
			want: "Invalid calendar type: PARISH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, newCacheWarmCmd(), append(append([]string{}, base...), tt.args...)...)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
