package fetcher

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/teemow/litcal-mcp/internal/cache"
	"github.com/teemow/litcal-mcp/internal/instrumentation"
	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/logging"
)

// API downloads calendar documents. *litcal.Client implements it.
type API interface {
	FetchCalendar(ctx context.Context, key litcal.CacheKey) (*litcal.Payload, error)
}

// LocaleResolver maps a requested locale to one the calendar supports.
// *metadata.Cache implements it.
type LocaleResolver interface {
	ResolveLocale(ctx context.Context, calendarType litcal.CalendarType, calendarID, requested string) string
}

// Request describes one calendar year. CalendarID is ignored for the
// General Roman Calendar.
type Request struct {
	CalendarType litcal.CalendarType
	CalendarID   string
	Year         int
	Locale       string
	YearType     litcal.YearType
}

// Result is a fetched calendar together with the key it was stored under.
type Result struct {
	Payload *litcal.Payload
	Key     litcal.CacheKey
	Cached  bool
}

// Fetcher is the only path through which calendar documents are read
// from or written to the calendar cache.
type Fetcher struct {
	api      API
	store    cache.Store
	resolver LocaleResolver
	logger   *slog.Logger
	group    singleflight.Group
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLocaleResolver resolves request locales against the calendars'
// supported locales before the cache key is built.
func WithLocaleResolver(r LocaleResolver) Option {
	return func(f *Fetcher) {
		f.resolver = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Fetcher reading through store to api.
func New(api API, store cache.Store, opts ...Option) *Fetcher {
	f := &Fetcher{
		api:    api,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Key resolves the request locale and builds the cache key.
func (f *Fetcher) Key(ctx context.Context, req Request) (litcal.CacheKey, error) {
	locale := req.Locale
	if f.resolver != nil && locale != "" {
		locale = f.resolver.ResolveLocale(ctx, req.CalendarType, req.CalendarID, locale)
	}
	return litcal.NewCacheKey(req.CalendarType, req.CalendarID, req.Year, locale, req.YearType)
}

// Fetch returns the calendar for req, from the cache when a fresh entry
// exists and from the API otherwise. A fetched payload is cached before it
// is returned. Upstream errors are returned unchanged and never retried.
//
// Identical concurrent misses share one upstream request. The shared
// request is not cancelled when one caller gives up; each caller still
// returns as soon as its own context is done.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	key, err := f.Key(ctx, req)
	if err != nil {
		return nil, err
	}
	return f.FetchKey(ctx, key)
}

// FetchKey is Fetch for an already built key.
func (f *Fetcher) FetchKey(ctx context.Context, key litcal.CacheKey) (*Result, error) {
	ctx, span := instrumentation.StartSpan(ctx, "fetcher.fetch",
		instrumentation.NewSpanAttributeBuilder().
			WithCalendar(string(key.CalendarType), key.NormalizedID()).
			WithYear(key.Year).
			WithLocale(key.Locale).
			Build()...)
	defer span.End()

	if payload, ok := f.store.Get(ctx, key); ok {
		instrumentation.AddSpanEvent(span, "cache.hit")
		return &Result{Payload: payload, Key: key, Cached: true}, nil
	}

	ch := f.group.DoChan(key.Filename(), func() (any, error) {
		return f.fetchAndStore(context.WithoutCancel(ctx), key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			instrumentation.SetSpanError(span, res.Err)
			return nil, res.Err
		}
		instrumentation.SetSpanSuccess(span)
		return &Result{Payload: res.Val.(*litcal.Payload), Key: key}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Fetcher) fetchAndStore(ctx context.Context, key litcal.CacheKey) (*litcal.Payload, error) {
	f.logger.Debug("calendar cache miss, fetching from API", logging.CacheKey(key))

	payload, err := f.api.FetchCalendar(ctx, key)
	if err != nil {
		return nil, err
	}
	f.store.Put(ctx, key, payload)
	return payload, nil
}

// FetchWithParticular fetches a national or diocesan calendar together with
// the General Roman Calendar for the same year, locale and year type, and
// returns a copy of the target payload whose events carry IsParticular.
// For the General Roman Calendar it is equivalent to Fetch. When the
// General Roman Calendar cannot be fetched the target is returned unmarked.
// The cached payloads are not modified.
func (f *Fetcher) FetchWithParticular(ctx context.Context, req Request) (*Result, error) {
	target, err := f.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if target.Key.CalendarType == litcal.CalendarGeneralRoman {
		return target, nil
	}

	general, err := f.Fetch(ctx, Request{
		CalendarType: litcal.CalendarGeneralRoman,
		Year:         target.Key.Year,
		Locale:       target.Key.Locale,
		YearType:     target.Key.YearType,
	})
	if err != nil {
		// The target calendar is still valid; it is returned unmarked.
		f.logger.WarnContext(ctx, "General Roman Calendar unavailable, particular celebrations not marked",
			logging.CacheKey(target.Key),
			logging.Err(err),
		)
		return target, nil
	}

	marked := *target.Payload
	marked.Litcal = litcal.MarkParticular(target.Payload.Litcal, general.Payload.Litcal)
	return &Result{Payload: &marked, Key: target.Key, Cached: target.Cached}, nil
}

// Invalidate removes one cached calendar, or all of them when req is nil.
func (f *Fetcher) Invalidate(ctx context.Context, req *Request) (int, error) {
	if req == nil {
		return f.store.Invalidate(ctx, nil)
	}
	key, err := litcal.NewCacheKey(req.CalendarType, req.CalendarID, req.Year, req.Locale, req.YearType)
	if err != nil {
		return 0, err
	}
	return f.store.Invalidate(ctx, &key)
}
