package validation

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var (
	festiveCycle = [...]string{"A", "B", "C"}
	ferialCycle  = [...]string{"I", "II"}
)

// BaseLocale returns the lower-case base language of a locale, so "fr_CA",
// "fr-CA" and "FR" all yield "fr".
func BaseLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return ""
	}
	if i := strings.IndexByte(locale, '.'); i >= 0 {
		locale = locale[:i]
	}
	if tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-")); err == nil {
		if base, conf := tag.Base(); conf != language.No {
			return base.String()
		}
	}
	if i := strings.IndexAny(locale, "-_"); i >= 0 {
		locale = locale[:i]
	}
	return strings.ToLower(locale)
}

// CountryName returns the English name of an ISO 3166 region code, or the
// code itself when it is not a known region.
func CountryName(code string) string {
	region, err := language.ParseRegion(strings.TrimSpace(code))
	if err != nil {
		return code
	}
	if name := display.English.Regions().Name(region); name != "" {
		return name
	}
	return code
}

// YearCycles returns the Sunday/festive lectionary cycle (A, B, C) and the
// weekday/ferial cycle (I, II) in effect for year.
func YearCycles(year int) (festive, ferial string) {
	return festiveCycle[mod(year-1, 3)], ferialCycle[mod(year-1, 2)]
}

func mod(a, b int) int {
	return ((a % b) + b) % b
}
