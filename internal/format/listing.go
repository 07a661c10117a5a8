package format

import (
	"strings"

	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/validation"
)

// CalendarListing renders the calendars known to the API: national
// calendars with their country names, diocesan calendars with their nation,
// and the locales of the General Roman Calendar.
func CalendarListing(doc *litcal.MetadataDocument) string {
	if doc == nil {
		return "Unable to retrieve calendar metadata"
	}
	meta := doc.LitcalMetadata

	lines := []string{rule, "AVAILABLE LITURGICAL CALENDARS", rule, ""}

	if len(meta.NationalCalendars) > 0 {
		lines = append(lines, "NATIONAL CALENDARS:", "")
		for _, n := range meta.NationalCalendars {
			lines = append(lines, "  - "+n.CalendarID+": "+validation.CountryName(n.CalendarID))
			if len(n.Locales) > 0 {
				lines = append(lines, "    Locales: "+strings.Join(n.Locales, ", "))
			}
		}
		lines = append(lines, "")
	}

	if len(meta.DiocesanCalendars) > 0 {
		lines = append(lines, "DIOCESAN CALENDARS:", "")
		for _, d := range meta.DiocesanCalendars {
			name := d.Diocese
			if name == "" {
				name = "Unknown"
			}
			lines = append(lines, "  - "+d.CalendarID+": "+name)
			if d.Nation != "" {
				lines = append(lines, "    Nation: "+d.Nation+" ("+validation.CountryName(d.Nation)+")")
			}
			if len(d.Locales) > 0 {
				lines = append(lines, "    Locales: "+strings.Join(d.Locales, ", "))
			}
		}
		lines = append(lines, "")
	}

	if len(meta.Locales) > 0 {
		lines = append(lines,
			"AVAILABLE LOCALES for the General Roman Calendar:",
			"  "+strings.Join(meta.Locales, ", "),
			"",
		)
	}

	lines = append(lines, rule)
	return strings.Join(lines, "\n")
}
