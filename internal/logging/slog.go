package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation    = "operation"
	KeyCalendarType = "calendar_type"
	KeyCalendarID   = "calendar_id"
	KeyYear         = "year"
	KeyLocale       = "locale"
	KeyCacheKey     = "cache_key"
	KeyPath         = "path"
	KeyDuration     = "duration"
	KeyStatus       = "status"
	KeyError        = "error"
	KeyTool         = "tool"
)

// Status values for consistent logging.
// Note: These are intentionally duplicated from instrumentation package
// to avoid circular dependencies (instrumentation imports logging).
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Output formats accepted by NewLogger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewLogger builds a slog.Logger writing to w at the given level
// ("debug", "info", "warn", "error") in the given format ("text" or "json").
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q, must be one of: text, json", format)
	}
}

// ParseLevel converts a level name to a slog.Level. An empty name is INFO.
func ParseLevel(level string) (slog.Level, error) {
	var lvl slog.Level
	if strings.TrimSpace(level) == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q: %w", level, err)
	}
	return lvl, nil
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithCalendar returns a logger with the calendar type and id attributes set.
func WithCalendar(logger *slog.Logger, calendarType, calendarID string) *slog.Logger {
	return logger.With(CalendarType(calendarType), CalendarID(calendarID))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// CalendarType returns a slog attribute for the calendar type.
func CalendarType(calendarType string) slog.Attr {
	return slog.String(KeyCalendarType, calendarType)
}

// CalendarID returns a slog attribute for the nation code or diocese id.
func CalendarID(id string) slog.Attr {
	return slog.String(KeyCalendarID, id)
}

// Year returns a slog attribute for the calendar year.
func Year(year int) slog.Attr {
	return slog.Int(KeyYear, year)
}

// Locale returns a slog attribute for the locale.
// An empty locale yields an empty Group attribute that slog omits.
func Locale(locale string) slog.Attr {
	if locale == "" {
		return slog.Group("")
	}
	return slog.String(KeyLocale, locale)
}

// CacheKey returns a slog attribute for a calendar cache key.
func CacheKey(key fmt.Stringer) slog.Attr {
	return slog.String(KeyCacheKey, key.String())
}

// Path returns a slog attribute for a filesystem path.
func Path(path string) slog.Attr {
	return slog.String(KeyPath, path)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
// This allows safely passing Err(maybeNilErr) without adding empty attributes.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		// Return an empty Group that slog will omit from output
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// Truncate shortens s to at most n bytes for logging, marking the cut.
// Upstream error bodies can be arbitrarily large HTML pages.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + fmt.Sprintf("...[%d more bytes]", len(s)-n)
}
