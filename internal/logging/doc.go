// Package logging provides structured logging utilities for litcal-mcp.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Logger construction from a level name and output format
//   - Consistent attribute naming for calendars, locales and cache keys
//   - Logger adapter interface for components that only need level methods
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithCalendar(slog.Default(), "NATIONAL", "US")
//	logger.Info("calendar fetched",
//	    logging.Year(2024),
//	    logging.Locale("en_US"),
//	    logging.Status(logging.StatusSuccess))
//
// In stdio mode stdout carries the MCP protocol, so loggers must write to stderr.
package logging
