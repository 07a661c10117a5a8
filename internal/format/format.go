package format

import (
	"fmt"
	"strings"

	"github.com/teemow/litcal-mcp/internal/litcal"
)

const notAvailable = "N/A"

var rule = strings.Repeat("=", 60)

// Event renders a single celebration as a short block.
func Event(e litcal.Event) string {
	name := e.Name
	if name == "" {
		name = "Unknown"
	}
	grade := e.GradeLcl
	if grade == "" {
		grade = "Unknown"
	}
	return fmt.Sprintf("- %s\n   Date: %s\n   Grade: %s\n   Color: %s",
		name, eventDate(e), grade, strings.Join(e.ColorLcl, ", "))
}

func eventDate(e litcal.Event) string {
	if t := e.Date.Time(); !t.IsZero() {
		return t.UTC().Format("2006-01-02")
	}
	if e.Date == "" {
		return "Unknown"
	}
	return string(e.Date)
}

// settingsLines renders the locale and calendar identifiers a payload was
// computed for.
func settingsLines(s litcal.Settings) []string {
	locale := s.Locale
	if locale == "" {
		locale = notAvailable
	}
	lines := []string{"Locale: " + locale}
	if s.NationalCalendar != "" {
		lines = append(lines, "National Calendar: "+s.NationalCalendar)
	}
	if s.DiocesanCalendar != "" {
		lines = append(lines, "Diocesan Calendar: "+s.DiocesanCalendar)
	}
	return lines
}
