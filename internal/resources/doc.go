// Package resources provides MCP resources for the liturgical calendar
// server. Resources are read-only data sources that MCP clients can fetch
// without calling a tool: the calendar catalog and the server's effective
// cache settings.
package resources
