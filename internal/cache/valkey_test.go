package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/litcal-mcp/internal/config"
	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/logging"
)

type storedValue struct {
	data []byte
	ttl  int64
}

// memoryCommands is an in-memory stand-in for a Valkey server.
type memoryCommands struct {
	mu      sync.Mutex
	values  map[string]storedValue
	delArgs [][]string
	scans   int
	err     error
	closed  bool
}

func newMemoryCommands() *memoryCommands {
	return &memoryCommands{values: make(map[string]storedValue)}
}

func (m *memoryCommands) get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.values[key]
	if !ok {
		return nil, errNoEntry
	}
	return v.data, nil
}

func (m *memoryCommands) set(_ context.Context, key string, value []byte, ttl int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.values[key] = storedValue{data: value, ttl: ttl}
	return nil
}

func (m *memoryCommands) del(_ context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.delArgs = append(m.delArgs, keys)
	var n int64
	for _, k := range keys {
		if _, ok := m.values[k]; ok {
			delete(m.values, k)
			n++
		}
	}
	return n, nil
}

// scan pages through the sorted key space; the cursor is an offset.
func (m *memoryCommands) scan(_ context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, 0, m.err
	}
	m.scans++
	all := make([]string, 0, len(m.values))
	for k := range m.values {
		all = append(all, k)
	}
	sort.Strings(all)

	end := min(int(cursor)+int(count), len(all))
	var page []string
	for _, k := range all[cursor:end] {
		if strings.HasPrefix(k, strings.TrimSuffix(match, "*")) {
			page = append(page, k)
		}
	}
	if end == len(all) {
		return page, 0, nil
	}
	return page, uint64(end), nil
}

func (m *memoryCommands) close() { m.closed = true }

func newTestValkeyStore(t *testing.T, now *time.Time, opts ...Option) (*ValkeyStore, *memoryCommands) {
	t.Helper()
	cmds := newMemoryCommands()
	opts = append([]Option{WithClock(func() time.Time { return *now })}, opts...)
	return newValkeyStore(cmds, "litcal:", time.Hour, opts...), cmds
}

func TestEnvelope(t *testing.T) {
	stored := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	data, err := encodeEnvelope(samplePayload("Easter"), stored)
	require.NoError(t, err)

	payload, at, err := decodeEnvelope(data)
	require.NoError(t, err)
	assert.True(t, at.Equal(stored))
	assert.Equal(t, "Easter", payload.Litcal[0].Name)
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "{"},
		{name: "bare payload", data: `{"litcal": []}`},
		{name: "missing timestamp", data: `{"payload": {"litcal": []}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decodeEnvelope([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestTTLSeconds(t *testing.T) {
	assert.Equal(t, int64(1), ttlSeconds(0))
	assert.Equal(t, int64(1), ttlSeconds(200*time.Millisecond))
	assert.Equal(t, int64(2), ttlSeconds(1500*time.Millisecond))
	assert.Equal(t, int64(604800), ttlSeconds(168*time.Hour))
}

func TestDialValkey_RequiresURL(t *testing.T) {
	_, err := DialValkey(config.ValkeySettings{})
	assert.Error(t, err)
}

func TestOpen_FileBackend(t *testing.T) {
	s, err := Open(&config.Settings{CacheBackend: config.BackendFile, CacheDir: t.TempDir(), CalendarCacheExpiry: time.Hour})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(&config.Settings{CacheBackend: "memcached"})
	assert.Error(t, err)
}

func TestValkeyStore_PutGet(t *testing.T) {
	now := time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC)
	s, cmds := newTestValkeyStore(t, &now)
	ctx := context.Background()
	key := mustKey(t, litcal.CalendarNational, "it", 2024, "it")

	_, ok := s.Get(ctx, key)
	assert.False(t, ok)

	s.Put(ctx, key, samplePayload("Pasqua"))

	stored, ok := cmds.values["litcal:national_IT_2024_liturgical_it"]
	require.True(t, ok, "entry is stored under the prefixed filename")
	assert.Equal(t, int64(3600), stored.ttl)
	_, at, err := decodeEnvelope(stored.data)
	require.NoError(t, err)
	assert.True(t, at.Equal(now))

	got, ok := s.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "Pasqua", got.Litcal[0].Name)
}

func TestValkeyStore_ExpiredEntryIsMiss(t *testing.T) {
	now := time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC)
	s, cmds := newTestValkeyStore(t, &now)
	ctx := context.Background()
	key := mustKey(t, litcal.CalendarGeneralRoman, "", 2024, "en")

	s.Put(ctx, key, samplePayload("Easter"))

	now = now.Add(time.Hour - time.Second)
	_, ok := s.Get(ctx, key)
	assert.True(t, ok, "younger than expiry")

	now = now.Add(2 * time.Second)
	_, ok = s.Get(ctx, key)
	assert.False(t, ok, "older than expiry")
	assert.Len(t, cmds.values, 1, "expired entries are not deleted on read")
}

func TestValkeyStore_CorruptEntryIsMiss(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))
	now := time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC)
	s, cmds := newTestValkeyStore(t, &now, WithLogger(logger))
	key := mustKey(t, litcal.CalendarGeneralRoman, "", 2024, "en")

	cmds.values[s.Key(key)] = storedValue{data: []byte(`{"litcal": [`)}

	_, ok := s.Get(context.Background(), key)
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "corrupt cache entry")
}

func TestValkeyStore_ServerErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))
	now := time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC)
	s, cmds := newTestValkeyStore(t, &now, WithLogger(logger))
	ctx := context.Background()
	key := mustKey(t, litcal.CalendarGeneralRoman, "", 2024, "en")
	cmds.err = errors.New("connection refused")

	s.Put(ctx, key, samplePayload("Easter"))
	_, ok := s.Get(ctx, key)
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "failed to write cache entry")
	assert.Contains(t, buf.String(), "valkey cache lookup failed")

	_, err := s.Invalidate(ctx, nil)
	assert.ErrorContains(t, err, "connection refused")
}

func TestValkeyStore_Invalidate(t *testing.T) {
	now := time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC)
	s, _ := newTestValkeyStore(t, &now)
	ctx := context.Background()

	a := mustKey(t, litcal.CalendarNational, "IT", 2024, "it")
	s.Put(ctx, a, samplePayload("Pasqua"))

	n, err := s.Invalidate(ctx, &a)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Invalidate(ctx, &a)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestValkeyStore_InvalidateAllBatches(t *testing.T) {
	now := time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC)
	s, cmds := newTestValkeyStore(t, &now)
	ctx := context.Background()

	const entries = 2*deleteBatch + 3
	for i := 0; i < entries; i++ {
		cmds.values[fmt.Sprintf("litcal:general_%d_civil_en", i)] = storedValue{data: []byte("{}")}
	}
	cmds.values["other:general_2024_civil_en"] = storedValue{data: []byte("{}")}

	n, err := s.Invalidate(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, entries, n)
	assert.Greater(t, cmds.scans, 1, "keys are collected over several SCAN pages")

	require.Len(t, cmds.delArgs, 3)
	for _, batch := range cmds.delArgs {
		assert.LessOrEqual(t, len(batch), deleteBatch)
	}
	assert.Len(t, cmds.values, 1, "keys outside the prefix are kept")
	assert.Contains(t, cmds.values, "other:general_2024_civil_en")

	require.NoError(t, s.Close())
	assert.True(t, cmds.closed)
}

// TestValkeyStore runs against a live server when LITCAL_TEST_VALKEY_URL is set.
func TestValkeyStore(t *testing.T) {
	addr := os.Getenv("LITCAL_TEST_VALKEY_URL")
	if addr == "" {
		t.Skip("LITCAL_TEST_VALKEY_URL not set")
	}

	client, err := DialValkey(config.ValkeySettings{URL: addr})
	require.NoError(t, err)

	now := time.Now()
	prefix := "litcal-test-" + now.Format("150405.000000") + ":"
	s := NewValkeyStore(client, prefix, time.Hour, WithClock(func() time.Time { return now }))
	t.Cleanup(func() {
		_, _ = s.Invalidate(context.Background(), nil)
		_ = s.Close()
	})

	ctx := context.Background()
	a := mustKey(t, litcal.CalendarNational, "IT", 2024, "it")
	b := mustKey(t, litcal.CalendarNational, "IT", 2025, "it")
	assert.Equal(t, prefix+"national_IT_2024_liturgical_it", s.Key(a))

	_, ok := s.Get(ctx, a)
	assert.False(t, ok)

	s.Put(ctx, a, samplePayload("Pasqua"))
	s.Put(ctx, b, samplePayload("Pasqua"))

	got, ok := s.Get(ctx, a)
	require.True(t, ok)
	assert.Equal(t, "Pasqua", got.Litcal[0].Name)

	now = now.Add(2 * time.Hour)
	_, ok = s.Get(ctx, a)
	assert.False(t, ok, "entry older than expiry must miss")
	now = now.Add(-2 * time.Hour)

	n, err := s.Invalidate(ctx, &a)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Invalidate(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
