package metadata

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/litcal-mcp/internal/litcal"
)

type fakeSource struct {
	mu    sync.Mutex
	doc   *litcal.MetadataDocument
	err   error
	calls atomic.Int32
	gate  chan struct{}
}

func (f *fakeSource) FetchMetadata(ctx context.Context) (*litcal.MetadataDocument, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc, f.err
}

func (f *fakeSource) set(doc *litcal.MetadataDocument, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doc, f.err = doc, err
}

func testDocument() *litcal.MetadataDocument {
	return &litcal.MetadataDocument{
		LitcalMetadata: litcal.CatalogMetadata{
			NationalCalendars: []litcal.NationalCalendar{
				{CalendarID: "US", Locales: []string{"en_US"}},
				{CalendarID: "CA", Locales: []string{"en_CA", "fr_CA"}},
				{CalendarID: "it", Locales: []string{"it_IT"}},
			},
			DiocesanCalendars: []litcal.DiocesanCalendar{
				{CalendarID: "BOSTON_US", Nation: "US", Locales: []string{"en_US"}},
				{CalendarID: "romamo_it", Nation: "IT", Locales: []string{"it_IT", "la"}},
			},
			Locales: []string{"en", "fr", "it", "la", "es"},
		},
	}
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
}

func TestCache_InitAndViews(t *testing.T) {
	src := &fakeSource{doc: testDocument()}
	c := New(src, time.Hour, quiet())
	ctx := context.Background()

	assert.False(t, c.Available())
	require.NoError(t, c.Init(ctx))
	assert.True(t, c.Available())

	assert.Equal(t, []string{"CA", "IT", "US"}, c.ListNationalCodes(ctx))
	assert.Equal(t, []string{"boston_us", "romamo_it"}, c.ListDiocesanIDs(ctx))
	assert.Equal(t, []string{"en", "es", "fr", "it", "la"}, c.GeneralLocales(ctx))
	assert.Equal(t, []string{"en_CA", "fr_CA"}, c.Locales(ctx, litcal.CalendarNational, "ca"))

	doc, err := c.Document(ctx)
	require.NoError(t, err)
	assert.Same(t, src.doc, doc)
}

func TestCache_IsValid(t *testing.T) {
	c := New(&fakeSource{doc: testDocument()}, time.Hour, quiet())
	ctx := context.Background()
	require.NoError(t, c.Init(ctx))

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{name: "national upper", got: c.IsValidNational(ctx, "US"), want: true},
		{name: "national lower", got: c.IsValidNational(ctx, "us"), want: true},
		{name: "national lower-cased upstream", got: c.IsValidNational(ctx, "IT"), want: true},
		{name: "national unknown", got: c.IsValidNational(ctx, "XX"), want: false},
		{name: "diocesan lower", got: c.IsValidDiocesan(ctx, "boston_us"), want: true},
		{name: "diocesan upper", got: c.IsValidDiocesan(ctx, "ROMAMO_IT"), want: true},
		{name: "diocesan unknown", got: c.IsValidDiocesan(ctx, "nowhere"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestCache_ResolveLocale(t *testing.T) {
	c := New(&fakeSource{doc: testDocument()}, time.Hour, quiet())
	ctx := context.Background()
	require.NoError(t, c.Init(ctx))

	tests := []struct {
		name         string
		calendarType litcal.CalendarType
		calendarID   string
		requested    string
		want         string
	}{
		{name: "general exact", calendarType: litcal.CalendarGeneralRoman, requested: "fr", want: "fr"},
		{name: "general region stripped", calendarType: litcal.CalendarGeneralRoman, requested: "it-IT", want: "it"},
		{name: "general unknown falls back to en", calendarType: litcal.CalendarGeneralRoman, requested: "pl", want: "en"},
		{name: "national exact", calendarType: litcal.CalendarNational, calendarID: "CA", requested: "fr_CA", want: "fr_CA"},
		{name: "national language prefix", calendarType: litcal.CalendarNational, calendarID: "CA", requested: "fr", want: "fr_CA"},
		{name: "national separator and case", calendarType: litcal.CalendarNational, calendarID: "ca", requested: "FR-ca", want: "fr_CA"},
		{name: "national first region wins", calendarType: litcal.CalendarNational, calendarID: "CA", requested: "en", want: "en_CA"},
		{name: "no en available", calendarType: litcal.CalendarDiocesan, calendarID: "ROMAMO_IT", requested: "de", want: "it_IT"},
		{name: "unknown calendar keeps request", calendarType: litcal.CalendarNational, calendarID: "XX", requested: "pt_BR", want: "pt_BR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ResolveLocale(ctx, tt.calendarType, tt.calendarID, tt.requested))
		})
	}
}

func TestResolveLocale_FallbackChain(t *testing.T) {
	available := []string{"en", "fr_CA"}

	got, _ := resolveLocale(available, "fr")
	assert.Equal(t, "fr_CA", got)

	got, fellBack := resolveLocale(available, "es")
	assert.Equal(t, "en", got)
	assert.True(t, fellBack)

	got, fellBack = resolveLocale(available, "fr_CA")
	assert.Equal(t, "fr_CA", got)
	assert.False(t, fellBack)

	got, _ = resolveLocale(nil, "xx_YY")
	assert.Equal(t, "xx_YY", got)
}

func TestCache_Unavailable(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	c := New(src, time.Hour, quiet())
	ctx := context.Background()

	err := c.Init(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.True(t, c.IsValidNational(ctx, "ZZ"), "unvalidated without metadata")
	assert.True(t, c.IsValidDiocesan(ctx, "anything"))
	assert.Equal(t, "de_AT", c.ResolveLocale(ctx, litcal.CalendarNational, "AT", "de_AT"))
	assert.Nil(t, c.ListNationalCodes(ctx))

	_, err = c.Document(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCache_EnsureFreshIsIdempotent(t *testing.T) {
	src := &fakeSource{doc: testDocument()}
	c := New(src, time.Hour, quiet())
	ctx := context.Background()

	require.NoError(t, c.EnsureFresh(ctx))
	require.NoError(t, c.EnsureFresh(ctx))
	c.IsValidNational(ctx, "US")
	c.ResolveLocale(ctx, litcal.CalendarGeneralRoman, "", "en")

	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCache_RefreshesWhenStale(t *testing.T) {
	clk := newClock()
	src := &fakeSource{doc: testDocument()}
	c := New(src, time.Hour, quiet(), WithClock(clk.Now))
	ctx := context.Background()

	require.NoError(t, c.Init(ctx))
	first := c.LastRefresh()

	clk.Advance(time.Hour)
	assert.False(t, c.Stale(), "exactly expiry old is still fresh")
	require.NoError(t, c.EnsureFresh(ctx))
	assert.Equal(t, int32(1), src.calls.Load())

	clk.Advance(time.Second)
	assert.True(t, c.Stale())
	require.NoError(t, c.EnsureFresh(ctx))
	assert.Equal(t, int32(2), src.calls.Load())
	assert.True(t, c.LastRefresh().After(first))
}

func TestCache_RefreshRebuildsFromScratch(t *testing.T) {
	src := &fakeSource{doc: testDocument()}
	c := New(src, time.Hour, quiet())
	ctx := context.Background()
	require.NoError(t, c.Init(ctx))
	require.True(t, c.IsValidNational(ctx, "CA"))

	src.set(&litcal.MetadataDocument{
		LitcalMetadata: litcal.CatalogMetadata{
			NationalCalendars: []litcal.NationalCalendar{{CalendarID: "US", Locales: []string{"en_US"}}},
			Locales:           []string{"en"},
		},
	}, nil)
	require.NoError(t, c.Refresh(ctx))

	assert.False(t, c.IsValidNational(ctx, "CA"), "removed calendar must not linger")
	assert.Empty(t, c.ListDiocesanIDs(ctx))
	assert.Equal(t, []string{"US"}, c.ListNationalCodes(ctx))
}

func TestCache_FailedRefreshKeepsPrevious(t *testing.T) {
	clk := newClock()
	src := &fakeSource{doc: testDocument()}
	c := New(src, time.Hour, quiet(), WithClock(clk.Now))
	ctx := context.Background()
	require.NoError(t, c.Init(ctx))

	src.set(nil, &litcal.HTTPError{StatusCode: 503})
	clk.Advance(2 * time.Hour)

	assert.ErrorIs(t, c.EnsureFresh(ctx), ErrUnavailable)
	assert.True(t, c.Available())
	assert.True(t, c.IsValidNational(ctx, "CA"))
	assert.False(t, c.IsValidNational(ctx, "XX"))
}

func TestCache_RetryIntervalAfterFailure(t *testing.T) {
	clk := newClock()
	src := &fakeSource{err: errors.New("down")}
	c := New(src, time.Hour, quiet(), WithClock(clk.Now), WithRetryInterval(time.Minute))
	ctx := context.Background()

	require.Error(t, c.EnsureFresh(ctx))
	require.Error(t, c.EnsureFresh(ctx))
	assert.Equal(t, int32(1), src.calls.Load(), "second read inside the retry interval must not refetch")

	src.set(testDocument(), nil)
	clk.Advance(time.Minute)
	require.NoError(t, c.EnsureFresh(ctx))
	assert.Equal(t, int32(2), src.calls.Load())
	assert.True(t, c.Available())
}

func TestCache_ConcurrentRefreshSharesFetch(t *testing.T) {
	src := &fakeSource{doc: testDocument(), gate: make(chan struct{})}
	c := New(src, time.Hour, quiet())
	ctx := context.Background()

	const callers = 10
	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
	)
	errs := make([]error, callers)
	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			errs[i] = c.EnsureFresh(ctx)
		}(i)
	}
	started.Wait()

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCache_CallerCancellation(t *testing.T) {
	src := &fakeSource{doc: testDocument(), gate: make(chan struct{})}
	c := New(src, time.Hour, quiet())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.EnsureFresh(ctx) }()

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(src.gate)
	require.Eventually(t, c.Available, time.Second, time.Millisecond, "the shared fetch completes without the cancelled caller")
}
