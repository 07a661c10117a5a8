package format

import (
	"strings"
	"time"

	"github.com/teemow/litcal-mcp/internal/litcal"
)

// LiturgyOfTheDay renders the celebrations of one day with their commons,
// liturgical year and readings.
func LiturgyOfTheDay(events []litcal.Event, date time.Time, settings litcal.Settings) string {
	lines := []string{
		rule,
		"LITURGY OF THE DAY - " + date.Format("Monday, January 02, 2006"),
		rule,
	}
	lines = append(lines, settingsLines(settings)...)
	lines = append(lines, "")

	if len(events) == 0 {
		lines = append(lines, "No celebrations found for this date.", "")
	}
	for _, e := range events {
		lines = append(lines, Event(e))
		if len(e.Common) > 0 && e.CommonLcl != "" {
			lines = append(lines, "   Common: "+e.CommonLcl)
		}
		if e.LiturgicalYear != "" {
			lines = append(lines, "   Liturgical Year: "+e.LiturgicalYear)
		}
		if e.Readings != nil {
			lines = append(lines, Readings(e.Readings)...)
		}
		lines = append(lines, "")
	}
	lines = append(lines, rule)
	return strings.Join(lines, "\n")
}
