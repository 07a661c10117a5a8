package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	// Common attributes (reused across metrics)
	attrMethod       = "method"
	attrPath         = "path"
	attrStatus       = "status"
	attrOperation    = "operation"
	attrResult       = "result"
	attrTool         = "tool"
	attrBackend      = "backend"
	attrCalendarType = "calendar_type"
	attrCalendarID   = "calendar_id"
)

// Metrics provides methods for recording observability metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Upstream Liturgical Calendar API metrics
	upstreamRequestsTotal   metric.Int64Counter
	upstreamRequestDuration metric.Float64Histogram

	// Calendar data cache metrics
	cacheLookupsTotal metric.Int64Counter
	cacheWritesTotal  metric.Int64Counter

	// Metadata cache metrics
	metadataRefreshTotal metric.Int64Counter

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	// Upstream API Metrics
	m.upstreamRequestsTotal, err = meter.Int64Counter(
		"litcal_api_requests_total",
		metric.WithDescription("Total number of requests to the Liturgical Calendar API"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create litcal_api_requests_total counter: %w", err)
	}

	m.upstreamRequestDuration, err = meter.Float64Histogram(
		"litcal_api_request_duration_seconds",
		metric.WithDescription("Liturgical Calendar API request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create litcal_api_request_duration_seconds histogram: %w", err)
	}

	// Cache Metrics
	m.cacheLookupsTotal, err = meter.Int64Counter(
		"calendar_cache_lookups_total",
		metric.WithDescription("Total number of calendar data cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_cache_lookups_total counter: %w", err)
	}

	m.cacheWritesTotal, err = meter.Int64Counter(
		"calendar_cache_writes_total",
		metric.WithDescription("Total number of calendar data cache writes by status"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_cache_writes_total counter: %w", err)
	}

	m.metadataRefreshTotal, err = meter.Int64Counter(
		"metadata_refresh_total",
		metric.WithDescription("Total number of calendar metadata refreshes by status"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata_refresh_total counter: %w", err)
	}

	// MCP Tool Metrics
	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordUpstreamRequest records a request to the Liturgical Calendar API.
//
// Parameters:
//   - operation: UpstreamOperationCalendar or UpstreamOperationMetadata
//   - status: HTTP status code as a string, or StatusNetworkError
//   - duration: Time taken for the request
func (m *Metrics) RecordUpstreamRequest(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.upstreamRequestsTotal == nil || m.upstreamRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.upstreamRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.upstreamRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCacheLookup records a calendar data cache lookup.
// Result should be one of the CacheResult constants. The calendar id is only
// attached when detailed labels are enabled.
func (m *Metrics) RecordCacheLookup(ctx context.Context, backend, calendarType, calendarID, result string) {
	if m == nil || m.cacheLookupsTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrBackend, backend),
		attribute.String(attrCalendarType, calendarType),
		attribute.String(attrResult, result),
	}
	if m.detailedLabels && calendarID != "" {
		attrs = append(attrs, attribute.String(attrCalendarID, calendarID))
	}

	m.cacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCacheWrite records a calendar data cache write.
// Status should be one of: "success", "error"
func (m *Metrics) RecordCacheWrite(ctx context.Context, backend, status string) {
	if m == nil || m.cacheWritesTotal == nil {
		return // Instrumentation not initialized
	}

	m.cacheWritesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrBackend, backend),
		attribute.String(attrStatus, status),
	))
}

// RecordMetadataRefresh records a metadata refresh attempt.
// Status should be one of: "success", "error"
func (m *Metrics) RecordMetadataRefresh(ctx context.Context, status string) {
	if m == nil || m.metadataRefreshTotal == nil {
		return // Instrumentation not initialized
	}

	m.metadataRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
//
// Parameters:
//   - toolName: Name of the MCP tool (e.g., "get_general_calendar")
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolInvocationForCalendar records an MCP tool invocation with the
// requested calendar type. The calendar id is only attached when detailed
// labels are enabled.
func (m *Metrics) RecordToolInvocationForCalendar(ctx context.Context, toolName, status, calendarType, calendarID string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	if calendarType != "" {
		attrs = append(attrs, attribute.String(attrCalendarType, calendarType))
	}

	// Only add high-cardinality labels if explicitly enabled
	if m.detailedLabels && calendarID != "" {
		attrs = append(attrs, attribute.String(attrCalendarID, calendarID))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
