package server

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teemow/litcal-mcp/internal/config"
	"github.com/teemow/litcal-mcp/internal/fetcher"
	"github.com/teemow/litcal-mcp/internal/instrumentation"
	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/litcal/litcaltest"
)

func testSettings(t *testing.T, baseURL string) *config.Settings {
	t.Helper()
	s := config.Defaults()
	s.APIBaseURL = baseURL
	s.Timeout = 5 * time.Second
	s.CacheDir = t.TempDir()
	return &s
}

func newTestContext(t *testing.T, api *litcaltest.Server) *ServerContext {
	t.Helper()
	sc, err := NewServerContext(context.Background(), testSettings(t, api.URL),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestNewServerContext_Wiring(t *testing.T) {
	api := litcaltest.NewServer(t)
	sc := newTestContext(t, api)

	assert.Equal(t, api.URL, sc.Client().BaseURL())
	assert.Equal(t, config.BackendFile, sc.Store().Backend())
	assert.NotNil(t, sc.Fetcher())
	assert.NotNil(t, sc.Validator())
	assert.Nil(t, sc.Metrics())
	assert.Nil(t, sc.AuditLogger())
	assert.False(t, sc.Metadata().Available())

	require.NoError(t, sc.Init(context.Background()))
	assert.True(t, sc.Metadata().Available())
	assert.Equal(t, litcaltest.Nations, sc.Metadata().ListNationalCodes(context.Background()))
}

func TestNewServerContext_MetricsReachComponents(t *testing.T) {
	api := litcaltest.NewServer(t)
	reader := sdkmetric.NewManualReader()
	metrics, err := instrumentation.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"), false)
	require.NoError(t, err)

	ctx := context.Background()
	sc, err := NewServerContext(ctx, testSettings(t, api.URL),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(metrics),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	assert.Same(t, metrics, sc.Metrics())

	require.NoError(t, sc.Init(ctx))
	_, err = sc.Fetcher().Fetch(ctx, fetcher.Request{CalendarType: litcal.CalendarGeneralRoman, Year: 2024, Locale: "en"})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	for _, want := range []string{"metadata_refresh_total", "litcal_api_requests_total", "calendar_cache_lookups_total", "calendar_cache_writes_total"} {
		assert.True(t, names[want], "missing %s", want)
	}
}

func TestNewServerContext_FetchUsesResolvedLocale(t *testing.T) {
	api := litcaltest.NewServer(t)
	sc := newTestContext(t, api)
	ctx := context.Background()
	require.NoError(t, sc.Init(ctx))

	res, err := sc.Fetcher().Fetch(ctx, fetcher.Request{
		CalendarType: litcal.CalendarNational,
		CalendarID:   "US",
		Year:         2024,
		Locale:       "es_MX",
		YearType:     litcal.YearCivil,
	})
	require.NoError(t, err)
	assert.Equal(t, "es_US", res.Key.Locale)
	assert.False(t, res.Cached)

	res, err = sc.Fetcher().Fetch(ctx, fetcher.Request{
		CalendarType: litcal.CalendarNational,
		CalendarID:   "us",
		Year:         2024,
		Locale:       "es_US",
		YearType:     litcal.YearCivil,
	})
	require.NoError(t, err)
	assert.True(t, res.Cached)
}

func TestNewServerContext_InitFailureIsNotFatal(t *testing.T) {
	api := litcaltest.NewServer(t)
	api.FailWith(500)
	sc := newTestContext(t, api)

	err := sc.Init(context.Background())
	require.Error(t, err)
	assert.False(t, sc.Metadata().Available())

	// Unknown identifiers are accepted while the catalog is unavailable.
	id, err := sc.Validator().Nation(context.Background(), "va")
	require.NoError(t, err)
	assert.Equal(t, "VA", id)
}

func TestNewServerContext_UnknownBackend(t *testing.T) {
	s := config.Defaults()
	s.CacheBackend = "memcached"

	_, err := NewServerContext(context.Background(), &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memcached")
}

func TestServerContext_Shutdown(t *testing.T) {
	api := litcaltest.NewServer(t)
	sc := newTestContext(t, api)

	assert.False(t, sc.IsShutdown())
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.Error(t, sc.Context().Err())
	require.NoError(t, sc.Shutdown())
}
