package litcal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CalendarType identifies which kind of calendar is requested upstream.
type CalendarType string

const (
	CalendarGeneralRoman CalendarType = "GENERAL_ROMAN"
	CalendarNational     CalendarType = "NATIONAL"
	CalendarDiocesan     CalendarType = "DIOCESAN"
)

// CalendarTypes lists every valid calendar type in display order.
var CalendarTypes = []CalendarType{CalendarGeneralRoman, CalendarNational, CalendarDiocesan}

// Valid reports whether t is one of the known calendar types.
func (t CalendarType) Valid() bool {
	switch t {
	case CalendarGeneralRoman, CalendarNational, CalendarDiocesan:
		return true
	}
	return false
}

// ParseCalendarType accepts the canonical names as well as the short forms
// "general", "national" and "diocesan", case-insensitively.
func ParseCalendarType(s string) (CalendarType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GENERAL_ROMAN", "GENERAL":
		return CalendarGeneralRoman, nil
	case "NATIONAL":
		return CalendarNational, nil
	case "DIOCESAN":
		return CalendarDiocesan, nil
	}
	return "", fmt.Errorf("%w: %q, must be one of %s", ErrInvalidCalendarType, s, joinQuoted(CalendarTypes))
}

// YearType selects a civil (Jan-Dec) or liturgical (Advent to Advent) year.
type YearType string

const (
	YearLiturgical YearType = "LITURGICAL"
	YearCivil      YearType = "CIVIL"
)

// YearTypes lists every valid year type.
var YearTypes = []YearType{YearLiturgical, YearCivil}

// Valid reports whether y is one of the known year types.
func (y YearType) Valid() bool {
	return y == YearLiturgical || y == YearCivil
}

// ParseYearType parses a year type case-insensitively.
func ParseYearType(s string) (YearType, error) {
	y := YearType(strings.ToUpper(strings.TrimSpace(s)))
	if !y.Valid() {
		return "", fmt.Errorf("%w: %q, must be one of %s", ErrInvalidYearType, s, joinQuoted(YearTypes))
	}
	return y, nil
}

func joinQuoted[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Quote(string(v))
	}
	return strings.Join(parts, ", ")
}

// Year bounds accepted by the upstream API.
const (
	MinYear = 1970
	MaxYear = 9999
)

// Payload is a calendar-year document as returned by the upstream API.
type Payload struct {
	Litcal   []Event           `json:"litcal"`
	Settings Settings          `json:"settings"`
	Metadata *CalendarMetadata `json:"metadata,omitempty"`
	Messages []string          `json:"messages,omitempty"`
}

// Settings echoes the parameters the upstream API used to compute a calendar.
type Settings struct {
	Year             int    `json:"year,omitempty"`
	YearType         string `json:"year_type,omitempty"`
	Locale           string `json:"locale,omitempty"`
	Epiphany         string `json:"epiphany,omitempty"`
	Ascension        string `json:"ascension,omitempty"`
	CorpusChristi    string `json:"corpus_christi,omitempty"`
	NationalCalendar string `json:"national_calendar,omitempty"`
	DiocesanCalendar string `json:"diocesan_calendar,omitempty"`
}

// CalendarMetadata lists events the upstream engine suppressed or reinstated.
type CalendarMetadata struct {
	SuppressedEvents []EventRef `json:"suppressed_events,omitempty"`
	ReinstatedEvents []EventRef `json:"reinstated_events,omitempty"`
}

// EventRef points at an event by key and date.
type EventRef struct {
	EventKey string    `json:"event_key"`
	Date     EventDate `json:"date"`
}

// Grade values as used by the upstream API.
const (
	GradeWeekday = 0
)

// Event is a single liturgical celebration.
type Event struct {
	EventKey            string    `json:"event_key"`
	Name                string    `json:"name"`
	Date                EventDate `json:"date"`
	Type                string    `json:"type,omitempty"`
	Grade               int       `json:"grade"`
	GradeLcl            string    `json:"grade_lcl,omitempty"`
	Color               []string  `json:"color,omitempty"`
	ColorLcl            []string  `json:"color_lcl,omitempty"`
	Common              []string  `json:"common,omitempty"`
	CommonLcl           string    `json:"common_lcl,omitempty"`
	LiturgicalYear      string    `json:"liturgical_year,omitempty"`
	LiturgicalSeason    string    `json:"liturgical_season,omitempty"`
	Day                 int       `json:"day,omitempty"`
	Month               int       `json:"month,omitempty"`
	MonthLong           string    `json:"month_long,omitempty"`
	Year                int       `json:"year,omitempty"`
	HolyDayOfObligation bool      `json:"holy_day_of_obligation,omitempty"`
	IsVigilMass         bool      `json:"is_vigil_mass,omitempty"`
	Readings            any       `json:"readings,omitempty"`
	IsParticular        bool      `json:"is_particular,omitempty"`
}

// EventDate is an RFC 3339 timestamp. Older API versions sent Unix seconds,
// which are normalized to RFC 3339 in UTC on decode.
type EventDate string

// UnmarshalJSON accepts either a string or a number.
func (d *EventDate) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = EventDate(s)
		return nil
	}
	if string(b) == "null" {
		*d = ""
		return nil
	}
	var ts int64
	if err := json.Unmarshal(b, &ts); err != nil {
		return fmt.Errorf("event date: %w", err)
	}
	*d = EventDate(time.Unix(ts, 0).UTC().Format(time.RFC3339))
	return nil
}

// Time parses the date. The zero time is returned when it cannot be parsed.
func (d EventDate) Time() time.Time {
	t, err := time.Parse(time.RFC3339, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// SameDay reports whether the event date falls on the given calendar day,
// compared in UTC.
func (d EventDate) SameDay(day time.Time) bool {
	t := d.Time()
	if t.IsZero() {
		return false
	}
	y1, m1, d1 := t.UTC().Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// MetadataDocument is the body of the calendars metadata endpoint.
type MetadataDocument struct {
	LitcalMetadata CatalogMetadata `json:"litcal_metadata"`
}

// CatalogMetadata lists the calendars known to the upstream API.
type CatalogMetadata struct {
	NationalCalendars []NationalCalendar `json:"national_calendars"`
	DiocesanCalendars []DiocesanCalendar `json:"diocesan_calendars"`
	Locales           []string           `json:"locales"`
}

// NationalCalendar describes one national calendar.
type NationalCalendar struct {
	CalendarID string   `json:"calendar_id"`
	Locales    []string `json:"locales"`
}

// DiocesanCalendar describes one diocesan calendar.
type DiocesanCalendar struct {
	CalendarID string   `json:"calendar_id"`
	Diocese    string   `json:"diocese"`
	Nation     string   `json:"nation"`
	Locales    []string `json:"locales"`
}
