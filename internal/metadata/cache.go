package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/teemow/litcal-mcp/internal/instrumentation"
	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/logging"
)

// DefaultExpiry is how long a metadata document is considered fresh.
const DefaultExpiry = 24 * time.Hour

// DefaultRetryInterval is the minimum gap between failed refresh attempts
// triggered by reads.
const DefaultRetryInterval = time.Minute

const refreshKey = "metadata"

// ErrUnavailable is returned when no metadata document has been loaded.
var ErrUnavailable = errors.New("calendar metadata unavailable")

// Source provides the calendars metadata document. *litcal.Client
// implements it.
type Source interface {
	FetchMetadata(ctx context.Context) (*litcal.MetadataDocument, error)
}

// Cache holds the most recent metadata document and the views derived
// from it. It is safe for concurrent use. Concurrent refreshes share a
// single upstream request.
type Cache struct {
	source        Source
	expiry        time.Duration
	retryInterval time.Duration
	now           func() time.Time
	logger        *slog.Logger
	metrics       *instrumentation.Metrics

	current     atomic.Pointer[snapshot]
	lastFailure atomic.Int64
	group       singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRetryInterval sets how long reads wait after a failed refresh before
// contacting the API again. Zero retries on every read.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Cache) {
		if d >= 0 {
			c.retryInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records refresh outcomes.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates an empty cache. Call Init to load the first document.
func New(source Source, expiry time.Duration, opts ...Option) *Cache {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	c := &Cache{
		source:        source,
		expiry:        expiry,
		retryInterval: DefaultRetryInterval,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init performs the first refresh. A failure is logged and returned, but
// the cache stays usable and retries on the next access.
func (c *Cache) Init(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("initial metadata load failed, identifiers will not be validated until it succeeds", logging.Err(err))
		return err
	}
	return nil
}

// Stale reports whether the cache is empty or older than its expiry.
func (c *Cache) Stale() bool {
	s := c.current.Load()
	return s == nil || c.now().Sub(s.fetchedAt) > c.expiry
}

// EnsureFresh refreshes the document if it is missing or stale. On failure
// the previous document, if any, stays in place, and further attempts are
// suppressed for the retry interval.
func (c *Cache) EnsureFresh(ctx context.Context) error {
	if !c.Stale() {
		return nil
	}
	if last := c.lastFailure.Load(); last != 0 && c.now().Sub(time.Unix(0, last)) < c.retryInterval {
		return ErrUnavailable
	}
	return c.refresh(ctx, false)
}

// Refresh fetches the document unconditionally.
func (c *Cache) Refresh(ctx context.Context) error {
	return c.refresh(ctx, true)
}

func (c *Cache) refresh(ctx context.Context, force bool) error {
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		// A caller that arrives after another flight finished sees fresh data.
		if !force && !c.Stale() {
			return nil, nil
		}
		return nil, c.load(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cache) load(ctx context.Context) error {
	ctx, span := instrumentation.StartSpan(ctx, "metadata.refresh")
	defer span.End()

	doc, err := c.source.FetchMetadata(ctx)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		c.metrics.RecordMetadataRefresh(ctx, instrumentation.StatusError)
		c.lastFailure.Store(c.now().UnixNano())
		c.logger.Error("failed to refresh calendar metadata", logging.Err(err))
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	s := newSnapshot(doc, c.now())
	c.current.Store(s)
	c.lastFailure.Store(0)

	instrumentation.SetSpanSuccess(span)
	c.metrics.RecordMetadataRefresh(ctx, instrumentation.StatusSuccess)
	c.logger.Info("calendar metadata updated",
		slog.Int("national", len(s.nationalCodes)),
		slog.Int("diocesan", len(s.diocesanIDs)),
		slog.Int("general_locales", len(s.generalLocales)))
	return nil
}

// snapshot refreshes if needed and returns the current snapshot, which may
// be nil when metadata has never been loaded.
func (c *Cache) snapshot(ctx context.Context) *snapshot {
	if err := c.EnsureFresh(ctx); err != nil {
		c.logger.Debug("using previous calendar metadata", logging.Err(err))
	}
	return c.current.Load()
}

// Available reports whether a document has been loaded.
func (c *Cache) Available() bool {
	return c.current.Load() != nil
}

// LastRefresh returns when the current document was fetched, or the zero
// time if none has been.
func (c *Cache) LastRefresh() time.Time {
	if s := c.current.Load(); s != nil {
		return s.fetchedAt
	}
	return time.Time{}
}

// Document returns the raw metadata document.
func (c *Cache) Document(ctx context.Context) (*litcal.MetadataDocument, error) {
	s := c.snapshot(ctx)
	if s == nil {
		return nil, ErrUnavailable
	}
	return s.doc, nil
}

// IsValidNational reports whether code names a known national calendar,
// ignoring case. Without metadata every code is accepted.
func (c *Cache) IsValidNational(ctx context.Context, code string) bool {
	s := c.snapshot(ctx)
	if s == nil {
		return true
	}
	_, ok := s.national[litcal.CacheKey{CalendarType: litcal.CalendarNational, CalendarID: code}.NormalizedID()]
	return ok
}

// IsValidDiocesan reports whether id names a known diocesan calendar,
// ignoring case. Without metadata every id is accepted.
func (c *Cache) IsValidDiocesan(ctx context.Context, id string) bool {
	s := c.snapshot(ctx)
	if s == nil {
		return true
	}
	_, ok := s.diocesan[litcal.CacheKey{CalendarType: litcal.CalendarDiocesan, CalendarID: id}.NormalizedID()]
	return ok
}

// ResolveLocale returns the supported locale closest to requested for the
// given calendar. It never fails: without metadata, or when the calendar
// lists no locales, requested is returned unchanged. When several regional
// variants match a bare language, the lexicographically first is chosen.
func (c *Cache) ResolveLocale(ctx context.Context, calendarType litcal.CalendarType, calendarID, requested string) string {
	s := c.snapshot(ctx)
	if s == nil {
		return requested
	}
	resolved, fellBack := resolveLocale(s.locales(calendarType, calendarID), requested)
	if fellBack {
		c.logger.Info("locale fallback",
			slog.String("requested", requested),
			logging.Locale(resolved),
			logging.CalendarType(string(calendarType)),
			logging.CalendarID(calendarID))
	}
	return resolved
}

// Locales returns the locales supported by a calendar, sorted.
func (c *Cache) Locales(ctx context.Context, calendarType litcal.CalendarType, calendarID string) []string {
	s := c.snapshot(ctx)
	if s == nil {
		return nil
	}
	return slices.Clone(s.locales(calendarType, calendarID))
}

// ListNationalCodes returns the known national calendar codes, sorted.
func (c *Cache) ListNationalCodes(ctx context.Context) []string {
	s := c.snapshot(ctx)
	if s == nil {
		return nil
	}
	return slices.Clone(s.nationalCodes)
}

// ListDiocesanIDs returns the known diocesan calendar ids, sorted.
func (c *Cache) ListDiocesanIDs(ctx context.Context) []string {
	s := c.snapshot(ctx)
	if s == nil {
		return nil
	}
	return slices.Clone(s.diocesanIDs)
}

// GeneralLocales returns the locales of the General Roman Calendar, sorted.
func (c *Cache) GeneralLocales(ctx context.Context) []string {
	s := c.snapshot(ctx)
	if s == nil {
		return nil
	}
	return slices.Clone(s.generalLocales)
}
