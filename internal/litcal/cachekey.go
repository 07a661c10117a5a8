package litcal

import (
	"fmt"
	"strings"
)

// DefaultLocale is used when a key is built without a locale.
const DefaultLocale = "en"

// CacheKey identifies one calendar-year document. It is a comparable value
// type; two keys for the same logical request always yield the same
// Filename regardless of the casing callers used.
type CacheKey struct {
	CalendarType CalendarType
	CalendarID   string
	Year         int
	Locale       string
	YearType     YearType
}

// NewCacheKey validates and builds a key. An empty locale defaults to "en"
// and an empty year type to LITURGICAL. The calendar id is trimmed and, for
// the general calendar, dropped.
func NewCacheKey(calendarType CalendarType, calendarID string, year int, locale string, yearType YearType) (CacheKey, error) {
	if !calendarType.Valid() {
		return CacheKey{}, fmt.Errorf("%w: %q, must be one of %s", ErrInvalidCalendarType, calendarType, joinQuoted(CalendarTypes))
	}
	if yearType == "" {
		yearType = YearLiturgical
	}
	if !yearType.Valid() {
		return CacheKey{}, fmt.Errorf("%w: %q, must be one of %s", ErrInvalidYearType, yearType, joinQuoted(YearTypes))
	}
	if year < MinYear || year > MaxYear {
		return CacheKey{}, fmt.Errorf("%w: %d, must be between %d and %d", ErrInvalidYear, year, MinYear, MaxYear)
	}
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = DefaultLocale
	}
	calendarID = strings.TrimSpace(calendarID)
	if calendarType == CalendarGeneralRoman {
		calendarID = ""
	}
	return CacheKey{
		CalendarType: calendarType,
		CalendarID:   calendarID,
		Year:         year,
		Locale:       locale,
		YearType:     yearType,
	}, nil
}

// Filename is the canonical cache slot name, without extension.
func (k CacheKey) Filename() string {
	locale := NormalizeLocale(k.Locale)
	yearType := strings.ToLower(string(k.YearType))

	switch k.CalendarType {
	case CalendarNational:
		return fmt.Sprintf("national_%s_%d_%s_%s", strings.ToUpper(k.CalendarID), k.Year, yearType, locale)
	case CalendarDiocesan:
		return fmt.Sprintf("diocesan_%s_%d_%s_%s", strings.ToLower(k.CalendarID), k.Year, yearType, locale)
	default:
		return fmt.Sprintf("general_%d_%s_%s", k.Year, yearType, locale)
	}
}

// String implements fmt.Stringer.
func (k CacheKey) String() string {
	return k.Filename()
}

// NormalizeLocale lower-cases a locale and uses "_" as its separator.
func NormalizeLocale(locale string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(locale), "-", "_"))
}

// NormalizedID returns the calendar id in the case the upstream API expects:
// upper-case nations, lower-case dioceses.
func (k CacheKey) NormalizedID() string {
	switch k.CalendarType {
	case CalendarNational:
		return strings.ToUpper(k.CalendarID)
	case CalendarDiocesan:
		return strings.ToLower(k.CalendarID)
	}
	return ""
}
