// Package server wires the liturgical calendar components together and
// exposes them over HTTP.
//
// ServerContext is the composition root. It owns the upstream API client,
// the metadata cache, the calendar data cache, the fetcher and the input
// validators, and is handed to every MCP tool.
//
// HTTPServer serves the MCP server over streamable HTTP on /mcp together
// with the Kubernetes probes from HealthChecker. Readiness additionally
// requires the calendar catalog to have been loaded once.
//
// MetricsServer exposes Prometheus metrics on a dedicated port.
package server
