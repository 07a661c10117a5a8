package resources

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/litcal-mcp/internal/config"
	"github.com/teemow/litcal-mcp/internal/litcal/litcaltest"
	"github.com/teemow/litcal-mcp/internal/server"
)

func newServerContext(t *testing.T, api *litcaltest.Server) *server.ServerContext {
	t.Helper()
	settings := config.Defaults()
	settings.APIBaseURL = api.URL
	settings.Timeout = 5 * time.Second
	settings.CacheDir = t.TempDir()

	sc, err := server.NewServerContext(context.Background(), &settings,
		server.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func readRequest(uri string) mcp.ReadResourceRequest {
	var req mcp.ReadResourceRequest
	req.Params.URI = uri
	return req
}

func decode(t *testing.T, contents []mcp.ResourceContents) map[string]any {
	t.Helper()
	require.Len(t, contents, 1)
	text, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "application/json", text.MIMEType)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestRegisterCalendarResources(t *testing.T) {
	sc := newServerContext(t, litcaltest.NewServer(t))
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithResourceCapabilities(false, false))

	require.NoError(t, RegisterCalendarResources(s, sc))
	assert.Error(t, RegisterCalendarResources(s, nil))
}

func TestHandleCalendars(t *testing.T) {
	sc := newServerContext(t, litcaltest.NewServer(t))
	require.NoError(t, sc.Init(context.Background()))

	contents, err := handleCalendars(context.Background(), readRequest(CalendarsURI), sc)
	require.NoError(t, err)

	doc := decode(t, contents)
	assert.Contains(t, doc, "litcal_metadata")
}

func TestHandleCalendars_Unavailable(t *testing.T) {
	api := litcaltest.NewServer(t)
	sc := newServerContext(t, api)
	api.FailWith(http.StatusBadGateway)

	_, err := handleCalendars(context.Background(), readRequest(CalendarsURI), sc)
	assert.ErrorContains(t, err, "failed to get calendar metadata")
}

func TestHandleSettings(t *testing.T) {
	api := litcaltest.NewServer(t)
	sc := newServerContext(t, api)

	data := decode(t, mustSettings(t, sc))
	assert.Equal(t, api.URL, data["apiBaseURL"])
	assert.Equal(t, config.BackendFile, data["cacheBackend"])
	assert.Equal(t, false, data["metadataAvailable"])
	assert.NotContains(t, data, "metadataRefreshedAt")

	require.NoError(t, sc.Init(context.Background()))
	data = decode(t, mustSettings(t, sc))
	assert.Equal(t, true, data["metadataAvailable"])
	assert.Contains(t, data, "metadataRefreshedAt")
}

func mustSettings(t *testing.T, sc *server.ServerContext) []mcp.ResourceContents {
	t.Helper()
	contents, err := handleSettings(context.Background(), readRequest(SettingsURI), sc)
	require.NoError(t, err)
	return contents
}
