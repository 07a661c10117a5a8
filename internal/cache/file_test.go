package cache

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/logging"
)

func mustKey(t *testing.T, ct litcal.CalendarType, id string, year int, locale string) litcal.CacheKey {
	t.Helper()
	key, err := litcal.NewCacheKey(ct, id, year, locale, litcal.YearLiturgical)
	require.NoError(t, err)
	return key
}

func samplePayload(name string) *litcal.Payload {
	return &litcal.Payload{
		Litcal: []litcal.Event{
			{EventKey: "Easter", Name: name, Date: "2024-03-31T00:00:00+00:00", Grade: 7},
		},
		Settings: litcal.Settings{Year: 2024, YearType: "LITURGICAL", Locale: "en"},
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, time.Hour)
	require.NoError(t, err)

	ctx := context.Background()
	key := mustKey(t, litcal.CalendarNational, "us", 2024, "en-US")

	_, ok := s.Get(ctx, key)
	assert.False(t, ok, "empty cache must miss")

	s.Put(ctx, key, samplePayload("Easter Sunday"))

	got, ok := s.Get(ctx, key)
	require.True(t, ok)
	require.Len(t, got.Litcal, 1)
	assert.Equal(t, "Easter Sunday", got.Litcal[0].Name)

	assert.FileExists(t, filepath.Join(dir, "national_US_2024_liturgical_en_us.json"))
	assert.Equal(t, s.Path(key), filepath.Join(dir, key.Filename()+".json"))
}

func TestFileStore_KeyCaseInsensitive(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	s.Put(ctx, mustKey(t, litcal.CalendarDiocesan, "BOSTON_US", 2025, "en"), samplePayload("x"))

	_, ok := s.Get(ctx, mustKey(t, litcal.CalendarDiocesan, "boston_us", 2025, "EN"))
	assert.True(t, ok)
}

func TestFileStore_PutOverwrites(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	key := mustKey(t, litcal.CalendarGeneralRoman, "", 2024, "en")

	s.Put(ctx, key, samplePayload("first"))
	s.Put(ctx, key, samplePayload("second"))

	got, ok := s.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "second", got.Litcal[0].Name)
}

func TestFileStore_ExpiryBoundary(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	const expiry = 48 * time.Hour

	tests := []struct {
		name string
		now  time.Time
		hit  bool
	}{
		{name: "just written", now: base, hit: true},
		{name: "one second before expiry", now: base.Add(expiry - time.Second), hit: true},
		{name: "exactly at expiry", now: base.Add(expiry), hit: true},
		{name: "one second past expiry", now: base.Add(expiry + time.Second), hit: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := tt.now
			s, err := NewFileStore(dir, expiry, WithClock(func() time.Time { return now }))
			require.NoError(t, err)

			ctx := context.Background()
			key := mustKey(t, litcal.CalendarGeneralRoman, "", 2024, "en")
			s.Put(ctx, key, samplePayload("Easter"))
			require.NoError(t, os.Chtimes(s.Path(key), base, base))

			_, ok := s.Get(ctx, key)
			assert.Equal(t, tt.hit, ok)
		})
	}
}

func TestFileStore_ExpiredEntryIsKept(t *testing.T) {
	now := time.Now()
	s, err := NewFileStore(t.TempDir(), time.Minute, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	ctx := context.Background()
	key := mustKey(t, litcal.CalendarGeneralRoman, "", 2024, "en")
	s.Put(ctx, key, samplePayload("Easter"))

	now = now.Add(time.Hour)
	_, ok := s.Get(ctx, key)
	assert.False(t, ok)
	assert.FileExists(t, s.Path(key))
}

func TestFileStore_CorruptEntryIsMiss(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))

	s, err := NewFileStore(t.TempDir(), time.Hour, WithLogger(logger))
	require.NoError(t, err)

	key := mustKey(t, litcal.CalendarGeneralRoman, "", 2024, "en")
	require.NoError(t, os.WriteFile(s.Path(key), []byte(`{"litcal": [`), 0o644))

	_, ok := s.Get(context.Background(), key)
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "corrupt cache entry")
}

func TestFileStore_WriteFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))

	s, err := NewFileStore(t.TempDir(), time.Hour, WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(s.Dir()))

	ctx := context.Background()
	key := mustKey(t, litcal.CalendarGeneralRoman, "", 2024, "en")
	s.Put(ctx, key, samplePayload("Easter Sunday"))

	_, ok := s.Get(ctx, key)
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "failed to write cache entry")
}

func TestFileStore_CancelledContextIsMiss(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), time.Hour)
	require.NoError(t, err)
	key := mustKey(t, litcal.CalendarGeneralRoman, "", 2024, "en")
	s.Put(context.Background(), key, samplePayload("Easter"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := s.Get(ctx, key)
	assert.False(t, ok)
}

func TestFileStore_RejectsEscapingKey(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "cache"), time.Hour)
	require.NoError(t, err)

	key := litcal.CacheKey{
		CalendarType: litcal.CalendarDiocesan,
		CalendarID:   "../../escape",
		Year:         2024,
		Locale:       "en",
		YearType:     litcal.YearLiturgical,
	}
	assert.Empty(t, s.Path(key))

	s.Put(context.Background(), key, samplePayload("x"))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only the cache directory itself")
}

func TestFileStore_InvalidateOne(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	a := mustKey(t, litcal.CalendarGeneralRoman, "", 2024, "en")
	b := mustKey(t, litcal.CalendarGeneralRoman, "", 2025, "en")
	s.Put(ctx, a, samplePayload("a"))
	s.Put(ctx, b, samplePayload("b"))

	n, err := s.Invalidate(ctx, &a)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok := s.Get(ctx, a)
	assert.False(t, ok)
	_, ok = s.Get(ctx, b)
	assert.True(t, ok)

	n, err = s.Invalidate(ctx, &a)
	require.NoError(t, err)
	assert.Zero(t, n, "removing a missing entry is not an error")
}

func TestFileStore_InvalidateAll(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	for _, year := range []int{2023, 2024, 2025} {
		s.Put(ctx, mustKey(t, litcal.CalendarGeneralRoman, "", year, "en"), samplePayload("x"))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".general_2024_liturgical_en.json.123.tmp"), []byte("partial"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("keep me"), 0o644))

	n, err := s.Invalidate(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "README.txt", entries[0].Name())
}

func TestFileStore_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	key := mustKey(t, litcal.CalendarGeneralRoman, "", 2024, "en")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Put(ctx, key, samplePayload("concurrent"))
		}()
	}
	wg.Wait()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
	}
	_, ok := s.Get(ctx, key)
	assert.True(t, ok)
}

func TestNewFileStore_DirectoryError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := NewFileStore(filepath.Join(blocker, "cache"), time.Hour)
	assert.ErrorIs(t, err, ErrCacheDir)
}

func TestFileStore_Backend(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "file", s.Backend())
	assert.NoError(t, s.Close())
}
