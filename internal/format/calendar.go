package format

import (
	"fmt"
	"strings"

	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/validation"
)

// seasonLandmarks are the events that open or close a liturgical season,
// in calendar order, with the heading shown above each.
var seasonLandmarks = []struct {
	key   string
	label string
}{
	{"Advent1", "### Start of the Advent season"},
	{"Christmas", "### Start of the Christmas season"},
	{"Epiphany", ""},
	{"BaptismOfTheLord", "### End of the Christmas season and start of Ordinary Time"},
	{"AshWednesday", "### Start of the Lent season"},
	{"HolyThursday", "### Start of the Easter Triduum"},
	{"Easter", "### Start of the Easter season"},
	{"Pentecost", "### End of the Easter season and start of Ordinary Time"},
	{"ChristKing", "### Last Sunday of Ordinary Time"},
	{"OrdWeekday34Saturday", "### Last day of the liturgical year"},
}

// CalendarSummary renders a calendar year: holy days of obligation, season
// landmarks, particular celebrations when the payload was marked, the event
// total, the lectionary cycles and the settings. year is used for the
// lectionary cycles when the payload does not carry one.
func CalendarSummary(p *litcal.Payload, year int) string {
	if p == nil || p.Litcal == nil {
		return "No calendar data available"
	}

	var lines []string
	lines = append(lines, rule, "LITURGICAL CALENDAR", rule)

	lines = append(lines, "## Holy Days of Obligation")
	for _, e := range p.Litcal {
		if e.HolyDayOfObligation && !e.IsVigilMass {
			lines = append(lines, Event(e), "")
		}
	}
	lines = append(lines, rule)

	lines = append(lines, "## Start and end of liturgical seasons")
	for _, lm := range seasonLandmarks {
		e, ok := litcal.FindEvent(p.Litcal, lm.key)
		if !ok {
			continue
		}
		if lm.label != "" {
			lines = append(lines, lm.label)
		}
		lines = append(lines, Event(e), "")
	}
	lines = append(lines, rule)

	lines = append(lines, particularLines(p.Litcal)...)

	lines = append(lines, fmt.Sprintf("Total events: %d", len(p.Litcal)))
	if p.Settings.Year != 0 {
		year = p.Settings.Year
	}
	festive, ferial := validation.YearCycles(year)
	lines = append(lines,
		"Festive Lectionary cycle: YEAR "+festive,
		"Ferial Lectionary cycle: YEAR "+ferial,
	)
	lines = append(lines, settingsLines(p.Settings)...)
	lines = append(lines, rule)

	return strings.Join(lines, "\n")
}

func particularLines(events []litcal.Event) []string {
	var lines []string
	for _, e := range events {
		if e.IsParticular && !e.IsVigilMass {
			lines = append(lines, Event(e), "")
		}
	}
	if len(lines) == 0 {
		return nil
	}
	out := append([]string{"## Celebrations particular to this calendar"}, lines...)
	return append(out, rule)
}
