package instrumentation

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Label values shared by the metrics recorder and its callers.
const (
	StatusSuccess      = "success"
	StatusError        = "error"
	StatusNetworkError = "network_error"

	CacheResultHit     = "hit"
	CacheResultMiss    = "miss"
	CacheResultExpired = "expired"
	CacheResultError   = "error"

	CacheBackendFile   = "file"
	CacheBackendValkey = "valkey"

	UpstreamOperationCalendar = "calendar"
	UpstreamOperationMetadata = "metadata"
)

// Exporter names accepted in METRICS_EXPORTER and TRACING_EXPORTER.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Config selects what the Provider exports and where.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// ServiceInstanceID defaults to the hostname (the pod name in Kubernetes).
	ServiceInstanceID string
	K8sNamespace      string
	K8sPodName        string

	// Enabled turns metrics and tracing on. A disabled provider records
	// nothing.
	Enabled bool

	// MetricsExporter is prometheus, otlp or stdout.
	MetricsExporter string

	// TracingExporter is otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is host:port without a scheme, e.g. "localhost:4318".
	OTLPEndpoint string

	// OTLPInsecure disables TLS towards the collector.
	OTLPInsecure bool

	// TraceSamplingRate is the ratio of root spans sampled, 0.0 to 1.0.
	TraceSamplingRate float64

	// DetailedLabels adds the calendar id to tool and cache metrics. Off by
	// default: diocese ids are unbounded.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig configures the audit log of tool invocations.
type AuditLoggingConfig struct {
	Enabled bool

	// IncludeArguments writes raw tool arguments next to the parsed
	// calendar selection.
	IncludeArguments bool
}

// DefaultConfig reads the instrumentation settings from the environment.
func DefaultConfig() Config {
	return Config{
		ServiceName:       envString("OTEL_SERVICE_NAME", "litcal-mcp"),
		ServiceVersion:    "unknown",
		ServiceInstanceID: envString("OTEL_SERVICE_INSTANCE_ID", ""),
		K8sNamespace:      envString("K8S_NAMESPACE", envString("POD_NAMESPACE", "")),
		K8sPodName:        envString("K8S_POD_NAME", envString("HOSTNAME", "")),
		Enabled:           envBool("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   strings.ToLower(envString("METRICS_EXPORTER", ExporterPrometheus)),
		TracingExporter:   strings.ToLower(envString("TRACING_EXPORTER", ExporterNone)),
		OTLPEndpoint:      envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: envFloat("OTEL_TRACES_SAMPLER_ARG", 0.1),
		DetailedLabels:    envBool("METRICS_DETAILED_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:          envBool("AUDIT_LOGGING_ENABLED", true),
			IncludeArguments: envBool("AUDIT_LOGGING_INCLUDE_ARGUMENTS", false),
		},
	}
}

// Validate rejects unknown exporters, an out-of-range sampling rate and an
// OTLP exporter without endpoint.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}
	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.OTLPEndpoint == "" {
		if c.TracingExporter == ExporterOTLP {
			return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
		}
		if c.MetricsExporter == ExporterOTLP {
			return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
		}
	}
	return nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envBool and envFloat fall back to def when the variable is unset or does
// not parse.
func envBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(envString(key, "")); err == nil {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(envString(key, ""), 64); err == nil {
		return v
	}
	return def
}
