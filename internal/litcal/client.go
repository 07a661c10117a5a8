package litcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/teemow/litcal-mcp/internal/instrumentation"
	"github.com/teemow/litcal-mcp/internal/logging"
)

const (
	// DefaultBaseURL is the public Liturgical Calendar API.
	DefaultBaseURL = "https://litcal.johnromanodorazio.com/api/dev"

	// DefaultTimeout bounds every outbound request.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response body is retained.
	maxErrorBody = 4096
)

// Client talks to the Liturgical Calendar API. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit limits outbound requests to rps per second with the given
// burst. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics records upstream request metrics.
func WithMetrics(m *instrumentation.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for baseURL. The timeout applies to each
// request as a whole; a non-positive value selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CalendarURL returns the endpoint serving the calendar for key.
func (c *Client) CalendarURL(key CacheKey) string {
	year := strconv.Itoa(key.Year)
	switch key.CalendarType {
	case CalendarNational:
		return c.baseURL + "/calendar/nation/" + url.PathEscape(key.NormalizedID()) + "/" + year
	case CalendarDiocesan:
		return c.baseURL + "/calendar/diocese/" + url.PathEscape(key.NormalizedID()) + "/" + year
	default:
		return c.baseURL + "/calendar/" + year
	}
}

// MetadataURL returns the calendars metadata endpoint.
func (c *Client) MetadataURL() string {
	return c.baseURL + "/calendars"
}

// FetchCalendar downloads the calendar document identified by key, sending
// key.Locale as Accept-Language and key.YearType as the year_type parameter.
func (c *Client) FetchCalendar(ctx context.Context, key CacheKey) (*Payload, error) {
	query := url.Values{}
	query.Set("year_type", string(key.YearType))

	var payload Payload
	if err := c.get(ctx, instrumentation.UpstreamOperationCalendar, c.CalendarURL(key), key.Locale, query, &payload,
		attribute.String(instrumentation.SpanAttrCalendarType, string(key.CalendarType)),
		attribute.Int(instrumentation.SpanAttrYear, key.Year),
	); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchMetadata downloads the catalog of available calendars.
func (c *Client) FetchMetadata(ctx context.Context) (*MetadataDocument, error) {
	var doc MetadataDocument
	if err := c.get(ctx, instrumentation.UpstreamOperationMetadata, c.MetadataURL(), "", nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) get(ctx context.Context, operation, endpoint, locale string, query url.Values, out any, attrs ...attribute.KeyValue) (err error) {
	ctx, span := instrumentation.StartUpstreamSpan(ctx, operation, attrs...)
	defer span.End()

	start := time.Now()
	status := instrumentation.StatusNetworkError
	defer func() {
		c.metrics.RecordUpstreamRequest(ctx, operation, status, time.Since(start))
		if err != nil {
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
	}()

	target := endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &NetworkError{URL: target, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", target, err)
	}
	req.Header.Set("Accept", "application/json")
	if locale != "" {
		req.Header.Set("Accept-Language", locale)
	}

	c.logger.Debug("requesting liturgical calendar API",
		logging.Operation(operation),
		slog.String("url", target),
		logging.Locale(locale))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{URL: target, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{URL: target, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) {
			status = instrumentation.StatusNetworkError
			return &NetworkError{URL: target, Err: err}
		}
		return fmt.Errorf("%w: decode %s: %v", ErrInvalidResponse, target, err)
	}
	return nil
}
