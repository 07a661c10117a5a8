// Package cmd implements the command-line interface for litcal-mcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server over stdio or streamable HTTP
//   - cache clear: Remove cached calendar data
//   - cache warm: Download calendars into the cache ahead of time
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The serve command is the default command when no subcommand is specified.
package cmd
