package format

import (
	"fmt"
	"strings"
)

// standardFields are the fields of a single set of readings, in liturgical
// order.
var standardFields = []struct {
	key   string
	label string
}{
	{"palm_gospel", "Palm Gospel"},
	{"first_reading", "First Reading"},
	{"responsorial_psalm", "Responsorial Psalm"},
	{"second_reading", "Second Reading"},
	{"gospel_acclamation", "Gospel Acclamation"},
	{"gospel", "Gospel"},
}

var vigilOrdinals = []string{"first", "second", "third", "fourth", "fifth", "sixth", "seventh"}

// Readings renders the readings of a celebration. The API sends either a
// reference to a common as a string or one of several object shapes:
// ferial and festive readings, Palm Sunday, the Easter Vigil, Christmas,
// Easter Sunday with an evening Mass, All Souls' alternative schemas and
// seasonal variants.
func Readings(readings any) []string {
	switch r := readings.(type) {
	case nil:
		return []string{"   Readings: " + notAvailable}
	case string:
		if r == "" {
			return []string{"   Readings: " + notAvailable}
		}
		return []string{"   Readings: " + r}
	case map[string]any:
		if len(r) == 0 {
			return []string{"   Readings: " + notAvailable}
		}
		return mapReadings(r)
	}
	return []string{fmt.Sprintf("   Readings: %v", readings)}
}

func mapReadings(r map[string]any) []string {
	switch {
	case has(r, "first_reading") && has(r, "seventh_reading"):
		return easterVigil(r)
	case has(r, "day") && has(r, "evening"):
		return easterSunday(r)
	case has(r, "night") && has(r, "dawn") && has(r, "day"):
		return christmas(r)
	case has(r, "schema_one") || has(r, "schema_two") || has(r, "schema_three"):
		return schemas(r)
	case has(r, "easter_season") || has(r, "outside_easter_season"):
		return seasonal(r)
	}
	return append([]string{"   Readings:"}, standard(r, "      ")...)
}

func standard(r map[string]any, indent string) []string {
	var lines []string
	for _, f := range standardFields {
		if has(r, f.key) {
			lines = append(lines, field(indent+f.label, str(r, f.key)))
		}
	}
	return lines
}

func easterVigil(r map[string]any) []string {
	lines := []string{"   Readings (Easter Vigil):"}
	for i, ord := range vigilOrdinals {
		n := i + 1
		psalmKey := "responsorial_psalm"
		if n > 1 {
			psalmKey = fmt.Sprintf("responsorial_psalm_%d", n)
		}
		lines = append(lines,
			field(fmt.Sprintf("      Reading %d", n), str(r, ord+"_reading")),
			field(fmt.Sprintf("      Responsorial Psalm %d", n), str(r, psalmKey)),
		)
	}
	return append(lines,
		field("      Epistle", str(r, "epistle")),
		field("      Responsorial Psalm (Epistle)", str(r, "responsorial_psalm_epistle")),
		field("      Gospel Acclamation", str(r, "gospel_acclamation")),
		field("      Gospel", str(r, "gospel")),
	)
}

func christmas(r map[string]any) []string {
	lines := []string{"   Readings (Christmas):"}
	for _, mass := range []string{"night", "dawn", "day"} {
		m := sub(r, mass)
		if len(m) == 0 {
			continue
		}
		lines = append(lines, "      "+strings.ToUpper(mass[:1])+mass[1:]+" Mass:")
		lines = append(lines, standard(m, "         ")...)
	}
	return lines
}

func easterSunday(r map[string]any) []string {
	lines := []string{"   Readings (Easter Sunday):", "      Day:"}
	lines = append(lines, standard(sub(r, "day"), "         ")...)
	lines = append(lines, "      Evening:")
	return append(lines, standard(sub(r, "evening"), "         ")...)
}

func schemas(r map[string]any) []string {
	lines := []string{"   Readings (Multiple Options):"}
	for _, s := range []struct{ key, label string }{
		{"schema_one", "Schema One"},
		{"schema_two", "Schema Two"},
		{"schema_three", "Schema Three"},
	} {
		m := sub(r, s.key)
		if len(m) == 0 {
			continue
		}
		lines = append(lines, "      "+s.label+":")
		lines = append(lines, standard(m, "         ")...)
	}
	return lines
}

func seasonal(r map[string]any) []string {
	lines := []string{"   Readings (Seasonal):"}
	if has(r, "easter_season") {
		lines = append(lines, "      Easter Season:")
		lines = append(lines, standard(sub(r, "easter_season"), "         ")...)
	}
	if has(r, "outside_easter_season") {
		lines = append(lines, "      Outside Easter Season:")
		lines = append(lines, standard(sub(r, "outside_easter_season"), "         ")...)
	}
	return lines
}

func field(label, value string) string {
	if value == "" {
		value = notAvailable
	}
	return label + ": " + value
}

func has(r map[string]any, key string) bool {
	_, ok := r[key]
	return ok
}

func str(r map[string]any, key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func sub(r map[string]any, key string) map[string]any {
	m, _ := r[key].(map[string]any)
	return m
}
