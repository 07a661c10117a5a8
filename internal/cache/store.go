package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teemow/litcal-mcp/internal/config"
	"github.com/teemow/litcal-mcp/internal/instrumentation"
	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/logging"
)

// ErrCacheDir is returned when the cache directory cannot be created.
// Without it no calendar can be cached, so callers treat it as fatal.
var ErrCacheDir = errors.New("cannot create calendar cache directory")

// Store persists full calendar-year payloads keyed by litcal.CacheKey.
//
// Get never fails: missing, expired, corrupt and unreadable entries are all
// reported as a miss. Put logs and swallows write failures. Only Invalidate,
// an administrative operation, reports errors.
type Store interface {
	// Get returns the payload stored under key if it is younger than the expiry.
	Get(ctx context.Context, key litcal.CacheKey) (*litcal.Payload, bool)

	// Put stores payload under key, replacing any previous entry.
	Put(ctx context.Context, key litcal.CacheKey, payload *litcal.Payload)

	// Invalidate removes the entry for key, or every entry when key is nil.
	// It returns the number of entries removed.
	Invalidate(ctx context.Context, key *litcal.CacheKey) (int, error)

	// Backend names the storage backend for metrics and health output.
	Backend() string

	// Close releases backend resources.
	Close() error
}

// Option configures a Store.
type Option func(*options)

type options struct {
	now     func() time.Time
	logger  logging.Logger
	metrics *instrumentation.Metrics
}

func defaultOptions() options {
	return options{
		now:    time.Now,
		logger: logging.Discard(),
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger for cache warnings.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records cache lookups and writes.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// expired reports whether an entry written at storedAt is past expiry at now.
// An entry exactly expiry old is still fresh.
func expired(storedAt, now time.Time, expiry time.Duration) bool {
	return now.Sub(storedAt) > expiry
}

// Open returns the store selected by settings.CacheBackend, sharing the
// calendar expiry between backends.
func Open(settings *config.Settings, opts ...Option) (Store, error) {
	switch settings.CacheBackend {
	case config.BackendValkey:
		client, err := DialValkey(settings.Valkey)
		if err != nil {
			return nil, err
		}
		return NewValkeyStore(client, settings.Valkey.KeyPrefix, settings.CalendarCacheExpiry, opts...), nil
	case config.BackendFile, "":
		return NewFileStore(settings.CacheDir, settings.CalendarCacheExpiry, opts...)
	}
	return nil, fmt.Errorf("unknown cache backend %q", settings.CacheBackend)
}
