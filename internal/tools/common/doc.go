// Package common provides helpers shared by the MCP tool packages: the
// instrumented handler wrapper that records spans, metrics and audit logs
// for every tool call, and lenient argument accessors.
package common
