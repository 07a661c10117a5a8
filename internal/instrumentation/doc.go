// Package instrumentation provides OpenTelemetry instrumentation for the
// litcal-mcp server.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests, upstream API calls and the calendar cache
//   - Distributed tracing for tool invocations and Liturgical Calendar API requests
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Liturgical Calendar API Metrics:
//   - litcal_api_requests_total: Counter of upstream requests by operation and status
//   - litcal_api_request_duration_seconds: Histogram of upstream request durations
//
// Cache Metrics:
//   - calendar_cache_lookups_total: Counter of calendar cache lookups by backend, calendar type and result
//   - calendar_cache_writes_total: Counter of calendar cache writes by backend and status
//   - metadata_refresh_total: Counter of metadata refreshes by status
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// Calendar ids are only attached as labels when METRICS_DETAILED_LABELS is set.
//
// # Tracing
//
// Distributed tracing spans are created for:
//   - MCP tool invocations (tool.<name>)
//   - Liturgical Calendar API calls (litcal.calendar, litcal.metadata)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: litcal-mcp)
//   - AUDIT_LOGGING_INCLUDE_ARGUMENTS: Log raw tool arguments (default: false)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:     "litcal-mcp",
//		ServiceVersion:  "0.1.0",
//		Enabled:         true,
//		MetricsExporter: instrumentation.ExporterPrometheus,
//		TracingExporter: instrumentation.ExporterNone,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordUpstreamRequest(ctx, instrumentation.UpstreamOperationCalendar, "200", time.Since(start))
//	recorder.RecordToolInvocation(ctx, "get_general_calendar", instrumentation.StatusSuccess, time.Since(start))
package instrumentation
