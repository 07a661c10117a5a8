package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/teemow/litcal-mcp/internal/config"
	"github.com/teemow/litcal-mcp/internal/instrumentation"
	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/logging"
)

const (
	scanCount   = 100
	deleteBatch = 500
)

// envelope is the value stored per key. The write time travels with the
// payload because a key's TTL alone cannot express "exactly expiry old".
type envelope struct {
	StoredAt time.Time       `json:"stored_at"`
	Payload  *litcal.Payload `json:"payload"`
}

// errNoEntry is returned by commands.get for a key that does not exist.
var errNoEntry = errors.New("no such key")

// commands are the Valkey commands the store issues.
type commands interface {
	get(ctx context.Context, key string) ([]byte, error)
	set(ctx context.Context, key string, value []byte, ttl int64) error
	del(ctx context.Context, keys ...string) (int64, error)
	scan(ctx context.Context, cursor uint64, match string, count int64) (keys []string, next uint64, err error)
	close()
}

type valkeyCommands struct {
	client valkey.Client
}

func (c valkeyCommands) get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, errNoEntry
	}
	return data, err
}

func (c valkeyCommands) set(ctx context.Context, key string, value []byte, ttl int64) error {
	return c.client.Do(ctx, c.client.B().Set().Key(key).Value(valkey.BinaryString(value)).ExSeconds(ttl).Build()).Error()
}

func (c valkeyCommands) del(ctx context.Context, keys ...string) (int64, error) {
	return c.client.Do(ctx, c.client.B().Del().Key(keys...).Build()).AsInt64()
}

func (c valkeyCommands) scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	entry, err := c.client.Do(ctx, c.client.B().Scan().Cursor(cursor).Match(match).Count(count).Build()).AsScanEntry()
	if err != nil {
		return nil, 0, err
	}
	return entry.Elements, entry.Cursor, nil
}

func (c valkeyCommands) close() {
	c.client.Close()
}

// ValkeyStore keeps calendar payloads in Valkey (or Redis) so that several
// server replicas can share one cache.
type ValkeyStore struct {
	cmds   commands
	prefix string
	expiry time.Duration
	options
}

var _ Store = (*ValkeyStore)(nil)

// DialValkey connects to the server described by settings.
func DialValkey(settings config.ValkeySettings) (valkey.Client, error) {
	if settings.URL == "" {
		return nil, errors.New("valkey URL is required")
	}
	opt := valkey.ClientOption{
		InitAddress:  []string{settings.URL},
		Password:     settings.Password,
		SelectDB:     settings.DB,
		DisableCache: true,
	}
	if settings.TLSEnabled {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("connect to valkey at %s: %w", settings.URL, err)
	}
	return client, nil
}

// NewValkeyStore wraps an existing client. Keys are the cache filenames
// prefixed with prefix. The store takes ownership of client.
func NewValkeyStore(client valkey.Client, prefix string, expiry time.Duration, opts ...Option) *ValkeyStore {
	return newValkeyStore(valkeyCommands{client: client}, prefix, expiry, opts...)
}

func newValkeyStore(cmds commands, prefix string, expiry time.Duration, opts ...Option) *ValkeyStore {
	s := &ValkeyStore{
		cmds:    cmds,
		prefix:  prefix,
		expiry:  expiry,
		options: defaultOptions(),
	}
	for _, opt := range opts {
		opt(&s.options)
	}
	return s
}

// Backend implements Store.
func (s *ValkeyStore) Backend() string {
	return instrumentation.CacheBackendValkey
}

// Close implements Store.
func (s *ValkeyStore) Close() error {
	s.cmds.close()
	return nil
}

// Key returns the Valkey key for a cache key.
func (s *ValkeyStore) Key(key litcal.CacheKey) string {
	return s.prefix + key.Filename()
}

// Get implements Store.
func (s *ValkeyStore) Get(ctx context.Context, key litcal.CacheKey) (*litcal.Payload, bool) {
	data, err := s.cmds.get(ctx, s.Key(key))
	if err != nil {
		if errors.Is(err, errNoEntry) {
			s.record(ctx, key, instrumentation.CacheResultMiss)
			return nil, false
		}
		s.logger.Warn("valkey cache lookup failed", logging.KeyCacheKey, key.String(), logging.KeyError, err.Error())
		s.record(ctx, key, instrumentation.CacheResultError)
		return nil, false
	}

	payload, storedAt, err := decodeEnvelope(data)
	if err != nil {
		s.logger.Warn("corrupt cache entry treated as miss", logging.KeyCacheKey, key.String(), logging.KeyError, err.Error())
		s.record(ctx, key, instrumentation.CacheResultError)
		return nil, false
	}
	if expired(storedAt, s.now(), s.expiry) {
		s.record(ctx, key, instrumentation.CacheResultExpired)
		return nil, false
	}

	s.record(ctx, key, instrumentation.CacheResultHit)
	return payload, true
}

// Put implements Store.
func (s *ValkeyStore) Put(ctx context.Context, key litcal.CacheKey, payload *litcal.Payload) {
	if payload == nil {
		return
	}
	data, err := encodeEnvelope(payload, s.now())
	if err != nil {
		s.logger.Warn("failed to encode cache entry", logging.KeyCacheKey, key.String(), logging.KeyError, err.Error())
		s.metrics.RecordCacheWrite(ctx, instrumentation.CacheBackendValkey, instrumentation.StatusError)
		return
	}

	if err := s.cmds.set(ctx, s.Key(key), data, ttlSeconds(s.expiry)); err != nil {
		s.logger.Warn("failed to write cache entry", logging.KeyCacheKey, key.String(), logging.KeyError, err.Error())
		s.metrics.RecordCacheWrite(ctx, instrumentation.CacheBackendValkey, instrumentation.StatusError)
		return
	}
	s.logger.Debug("cached calendar data", logging.KeyCacheKey, key.String())
	s.metrics.RecordCacheWrite(ctx, instrumentation.CacheBackendValkey, instrumentation.StatusSuccess)
}

// Invalidate implements Store. With a nil key every key under the prefix is
// scanned and deleted.
func (s *ValkeyStore) Invalidate(ctx context.Context, key *litcal.CacheKey) (int, error) {
	if key != nil {
		n, err := s.cmds.del(ctx, s.Key(*key))
		if err != nil {
			return 0, fmt.Errorf("delete cache entry %s: %w", key.String(), err)
		}
		s.logger.Info("cleared cache entry", logging.KeyCacheKey, key.String(), "removed", n)
		return int(n), nil
	}

	keys, err := s.scan(ctx, s.prefix+"*")
	if err != nil {
		return 0, err
	}

	removed := 0
	for start := 0; start < len(keys); start += deleteBatch {
		end := min(start+deleteBatch, len(keys))
		n, err := s.cmds.del(ctx, keys[start:end]...)
		if err != nil {
			return removed, fmt.Errorf("delete cache entries: %w", err)
		}
		removed += int(n)
	}
	s.logger.Info("cleared calendar cache", "removed", removed)
	return removed, nil
}

func (s *ValkeyStore) scan(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.cmds.scan(ctx, cursor, pattern, scanCount)
		if err != nil {
			return nil, fmt.Errorf("scan cache keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func (s *ValkeyStore) record(ctx context.Context, key litcal.CacheKey, result string) {
	s.metrics.RecordCacheLookup(ctx, instrumentation.CacheBackendValkey, string(key.CalendarType), key.NormalizedID(), result)
}

func encodeEnvelope(payload *litcal.Payload, now time.Time) ([]byte, error) {
	return json.Marshal(envelope{StoredAt: now.UTC(), Payload: payload})
}

func decodeEnvelope(data []byte) (*litcal.Payload, time.Time, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, time.Time{}, err
	}
	if env.Payload == nil || env.StoredAt.IsZero() {
		return nil, time.Time{}, errors.New("cache envelope is missing payload or timestamp")
	}
	return env.Payload, env.StoredAt, nil
}

// ttlSeconds rounds expiry up to whole seconds so the server never drops an
// entry that the expiry check would still accept.
func ttlSeconds(expiry time.Duration) int64 {
	secs := int64(math.Ceil(expiry.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
