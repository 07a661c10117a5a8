package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/teemow/litcal-mcp/internal/cache"
	"github.com/teemow/litcal-mcp/internal/config"
	"github.com/teemow/litcal-mcp/internal/fetcher"
	"github.com/teemow/litcal-mcp/internal/instrumentation"
	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/logging"
	"github.com/teemow/litcal-mcp/internal/metadata"
	"github.com/teemow/litcal-mcp/internal/validation"
)

// ServerContext holds the shared components behind the MCP tools. It is the
// composition root: one instance per process, passed to every tool.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	settings  *config.Settings
	client    *litcal.Client
	metadata  *metadata.Cache
	store     cache.Store
	fetcher   *fetcher.Fetcher
	validator *validation.Validator

	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	httpClient  *http.Client
	now         func() time.Time

	startTime time.Time
	mu        sync.RWMutex
	shutdown  bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithLogger sets the logger shared by all components.
func WithLogger(l *slog.Logger) Option {
	return func(sc *ServerContext) {
		if l != nil {
			sc.logger = l
		}
	}
}

// WithMetrics enables metrics recording in all components.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) {
		sc.metrics = m
	}
}

// WithAuditLogger enables audit logging of tool invocations.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) {
		sc.auditLogger = al
	}
}

// WithHTTPClient replaces the HTTP client used for upstream requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(sc *ServerContext) {
		sc.httpClient = hc
	}
}

// WithStore replaces the calendar cache selected by the settings.
func WithStore(s cache.Store) Option {
	return func(sc *ServerContext) {
		sc.store = s
	}
}

// WithClock replaces the clock used for default years and dates.
func WithClock(now func() time.Time) Option {
	return func(sc *ServerContext) {
		if now != nil {
			sc.now = now
		}
	}
}

// NewServerContext wires the upstream client, both caches, the fetcher and
// the validators from settings. Metadata is not loaded here; call Init.
func NewServerContext(ctx context.Context, settings *config.Settings, opts ...Option) (*ServerContext, error) {
	if settings == nil {
		defaults := config.Defaults()
		settings = &defaults
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:       shutdownCtx,
		cancel:    cancel,
		settings:  settings,
		logger:    slog.Default(),
		now:       time.Now,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(sc)
	}

	clientOpts := []litcal.ClientOption{
		litcal.WithLogger(sc.logger),
		litcal.WithMetrics(sc.metrics),
		litcal.WithRateLimit(settings.RateLimit, settings.RateBurst),
	}
	if sc.httpClient != nil {
		clientOpts = append(clientOpts, litcal.WithHTTPClient(sc.httpClient))
	}
	sc.client = litcal.NewClient(settings.APIBaseURL, settings.Timeout, clientOpts...)

	if sc.store == nil {
		store, err := cache.Open(settings,
			cache.WithLogger(logging.NewSlogAdapter(sc.logger)),
			cache.WithMetrics(sc.metrics),
		)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to open calendar cache: %w", err)
		}
		sc.store = store
	}

	sc.metadata = metadata.New(sc.client, settings.MetadataCacheExpiry,
		metadata.WithLogger(sc.logger),
		metadata.WithMetrics(sc.metrics),
	)
	sc.fetcher = fetcher.New(sc.client, sc.store,
		fetcher.WithLocaleResolver(sc.metadata),
		fetcher.WithLogger(sc.logger),
	)
	sc.validator = validation.New(sc.metadata, validation.WithClock(sc.now))

	return sc, nil
}

// Init performs the startup metadata load. A failure is logged and
// returned, but the server remains usable: the next read retries.
func (sc *ServerContext) Init(ctx context.Context) error {
	return sc.metadata.Init(ctx)
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Settings returns the resolved configuration.
func (sc *ServerContext) Settings() *config.Settings {
	return sc.settings
}

// Client returns the upstream API client.
func (sc *ServerContext) Client() *litcal.Client {
	return sc.client
}

// Metadata returns the calendar catalog cache.
func (sc *ServerContext) Metadata() *metadata.Cache {
	return sc.metadata
}

// Store returns the calendar data cache.
func (sc *ServerContext) Store() cache.Store {
	return sc.store
}

// Fetcher returns the calendar fetcher.
func (sc *ServerContext) Fetcher() *fetcher.Fetcher {
	return sc.fetcher
}

// Validator returns the input validators.
func (sc *ServerContext) Validator() *validation.Validator {
	return sc.validator
}

// Logger returns the shared logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Metrics returns the metrics recorder, nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// AuditLogger returns the audit logger, nil when audit logging is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// SetAuditLogger sets the audit logger used by the tool wrappers.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// Now returns the current time from the configured clock.
func (sc *ServerContext) Now() time.Time {
	return sc.now()
}

// StartTime returns when the context was created.
func (sc *ServerContext) StartTime() time.Time {
	return sc.startTime
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the context and closes the calendar cache.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()

	var errs []error
	if sc.store != nil {
		if err := sc.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close calendar cache: %w", err))
		}
	}
	return errors.Join(errs...)
}
