package instrumentation

import "strings"

// Cardinality management helpers for metrics.
// These functions reduce high-cardinality label values to prevent metrics explosion.
//
// # Warning
//
// The diocesan catalog holds hundreds of ids. Labelling every series with the
// diocese id multiplies the series count accordingly, so calendar ids are only
// attached when DetailedLabels is enabled, and always through these helpers.

// CalendarLabel returns the metric label for a calendar id.
// Nation codes are upper-cased, diocese ids lower-cased, anything else is "unknown".
//
// Example:
//
//	CalendarLabel("NATIONAL", "us")         // "US"
//	CalendarLabel("DIOCESAN", "Boston_US")  // "boston_us"
//	CalendarLabel("GENERAL_ROMAN", "")      // "general"
//	CalendarLabel("", "x")                  // "unknown"
func CalendarLabel(calendarType, calendarID string) string {
	id := strings.TrimSpace(calendarID)
	switch calendarType {
	case "GENERAL_ROMAN":
		return "general"
	case "NATIONAL":
		if id == "" {
			return "unknown"
		}
		return strings.ToUpper(id)
	case "DIOCESAN":
		if id == "" {
			return "unknown"
		}
		return strings.ToLower(id)
	default:
		return "unknown"
	}
}

// LocaleLabel reduces a locale to its lower-cased base language ("en_US" -> "en").
func LocaleLabel(locale string) string {
	locale = strings.TrimSpace(locale)
	if i := strings.IndexAny(locale, "-_"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "" {
		return "unknown"
	}
	return strings.ToLower(locale)
}
