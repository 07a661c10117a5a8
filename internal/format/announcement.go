package format

import (
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/validation"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var announcementTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// ErrMissingEvents is returned when a calendar lacks an event the
// announcement needs.
var ErrMissingEvents = errors.New("no liturgical calendar data found in response")

// AnnouncementKeys are the moveable feasts proclaimed at Epiphany.
var AnnouncementKeys = []string{"AshWednesday", "Easter", "Ascension", "Pentecost", "CorpusChristi", "Advent1"}

// numericDayLocales write the day of the month as a number.
var numericDayLocales = map[string]bool{"fr": true, "it": true, "de": true, "pt": true, "es": true}

// DayMonth is one date of the announcement.
type DayMonth struct {
	Day   string
	Month string
}

type announcementData struct {
	Year          int
	AshWednesday  DayMonth
	Easter        DayMonth
	Ascension     DayMonth
	Pentecost     DayMonth
	CorpusChristi DayMonth
	Advent1       DayMonth
}

// Announcement renders the Epiphany announcement of Easter and the moveable
// feasts for year, in the language of the payload's locale. Languages
// without a template use English.
func Announcement(p *litcal.Payload, year int) (string, error) {
	if p == nil || len(p.Litcal) == 0 {
		return "", ErrMissingEvents
	}
	base := validation.BaseLocale(p.Settings.Locale)
	if base == "" {
		base = litcal.DefaultLocale
	}

	dates := make(map[string]DayMonth, len(AnnouncementKeys))
	for _, key := range AnnouncementKeys {
		e, ok := litcal.FindEvent(p.Litcal, key)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrMissingEvents, key)
		}
		dates[key] = FormatDayMonth(e, base)
	}

	tmpl := announcementTemplates.Lookup(base + ".tmpl")
	if tmpl == nil {
		tmpl = announcementTemplates.Lookup("en.tmpl")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Epiphany announcement of Easter and Moveable Feasts for the year %d\n", year)
	if err := tmpl.Execute(&b, announcementData{
		Year:          year,
		AshWednesday:  dates["AshWednesday"],
		Easter:        dates["Easter"],
		Ascension:     dates["Ascension"],
		Pentecost:     dates["Pentecost"],
		CorpusChristi: dates["CorpusChristi"],
		Advent1:       dates["Advent1"],
	}); err != nil {
		return "", fmt.Errorf("render announcement: %w", err)
	}

	b.WriteString("\n")
	for _, line := range settingsLines(p.Settings) {
		b.WriteString("*" + line + "*  \n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// FormatDayMonth formats the day and month of an event for a base locale.
// French, Italian, German, Portuguese and Spanish use the number of the day
// with the localized month name sent by the API. English uses ordinal
// words. Other languages fall back to English words and month names.
func FormatDayMonth(e litcal.Event, base string) DayMonth {
	day, month := e.Day, e.Month
	if day == 0 || month == 0 {
		if t := e.Date.Time(); !t.IsZero() {
			day, month = t.UTC().Day(), int(t.UTC().Month())
		}
	}

	switch {
	case numericDayLocales[base]:
		return DayMonth{Day: strconv.Itoa(day), Month: e.MonthLong}
	case base == "en" && e.MonthLong != "":
		return DayMonth{Day: OrdinalWord(day), Month: e.MonthLong}
	}
	return DayMonth{Day: OrdinalWord(day), Month: englishMonth(month, e.MonthLong)}
}

func englishMonth(month int, fallback string) string {
	if month >= 1 && month <= 12 {
		return time.Month(month).String()
	}
	return fallback
}

var ordinalWords = [...]string{
	"", "first", "second", "third", "fourth", "fifth", "sixth", "seventh", "eighth", "ninth", "tenth",
	"eleventh", "twelfth", "thirteenth", "fourteenth", "fifteenth", "sixteenth", "seventeenth",
	"eighteenth", "nineteenth", "twentieth", "twenty-first", "twenty-second", "twenty-third",
	"twenty-fourth", "twenty-fifth", "twenty-sixth", "twenty-seventh", "twenty-eighth",
	"twenty-ninth", "thirtieth", "thirty-first",
}

// OrdinalWord spells out a day of the month as an English ordinal.
func OrdinalWord(day int) string {
	if day < 1 || day >= len(ordinalWords) {
		return strconv.Itoa(day)
	}
	return ordinalWords[day]
}
