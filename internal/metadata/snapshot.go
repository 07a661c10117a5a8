package metadata

import (
	"sort"
	"strings"
	"time"

	"github.com/teemow/litcal-mcp/internal/litcal"
)

// snapshot is an immutable view of one metadata document. A refresh builds
// a new snapshot and swaps it in; readers never see a partial rebuild.
type snapshot struct {
	doc       *litcal.MetadataDocument
	fetchedAt time.Time

	national        map[string]struct{}
	diocesan        map[string]struct{}
	nationalCodes   []string
	diocesanIDs     []string
	generalLocales  []string
	calendarLocales map[string][]string
}

func newSnapshot(doc *litcal.MetadataDocument, fetchedAt time.Time) *snapshot {
	meta := doc.LitcalMetadata
	s := &snapshot{
		doc:             doc,
		fetchedAt:       fetchedAt,
		national:        make(map[string]struct{}, len(meta.NationalCalendars)),
		diocesan:        make(map[string]struct{}, len(meta.DiocesanCalendars)),
		calendarLocales: make(map[string][]string, len(meta.NationalCalendars)+len(meta.DiocesanCalendars)),
	}

	for _, nc := range meta.NationalCalendars {
		id := strings.ToUpper(strings.TrimSpace(nc.CalendarID))
		if id == "" {
			continue
		}
		if _, dup := s.national[id]; !dup {
			s.nationalCodes = append(s.nationalCodes, id)
		}
		s.national[id] = struct{}{}
		s.calendarLocales[localeKey(litcal.CalendarNational, id)] = sortedUnique(nc.Locales)
	}

	for _, dc := range meta.DiocesanCalendars {
		id := strings.ToLower(strings.TrimSpace(dc.CalendarID))
		if id == "" {
			continue
		}
		if _, dup := s.diocesan[id]; !dup {
			s.diocesanIDs = append(s.diocesanIDs, id)
		}
		s.diocesan[id] = struct{}{}
		s.calendarLocales[localeKey(litcal.CalendarDiocesan, id)] = sortedUnique(dc.Locales)
	}

	sort.Strings(s.nationalCodes)
	sort.Strings(s.diocesanIDs)
	s.generalLocales = sortedUnique(meta.Locales)
	return s
}

// locales returns the locales supported by a calendar, sorted.
func (s *snapshot) locales(calendarType litcal.CalendarType, calendarID string) []string {
	switch calendarType {
	case litcal.CalendarNational:
		return s.calendarLocales[localeKey(calendarType, strings.ToUpper(calendarID))]
	case litcal.CalendarDiocesan:
		return s.calendarLocales[localeKey(calendarType, strings.ToLower(calendarID))]
	}
	return s.generalLocales
}

func localeKey(calendarType litcal.CalendarType, id string) string {
	return strings.ToLower(string(calendarType)) + "_" + id
}

func sortedUnique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// resolveLocale picks the best supported locale for requested out of
// available, which must be sorted:
//
//  1. an exact match, then a match ignoring case and "-" versus "_"
//  2. the first locale starting with the requested language
//  3. "en"
//  4. the first available locale
//
// With nothing available the request is returned unchanged.
func resolveLocale(available []string, requested string) (string, bool) {
	if len(available) == 0 {
		return requested, false
	}

	for _, l := range available {
		if l == requested {
			return l, false
		}
	}
	norm := litcal.NormalizeLocale(requested)
	for _, l := range available {
		if litcal.NormalizeLocale(l) == norm {
			return l, false
		}
	}

	if prefix := languagePrefix(requested); prefix != "" {
		for _, l := range available {
			if strings.HasPrefix(strings.ToLower(l), prefix) {
				return l, true
			}
		}
	}

	for _, l := range available {
		if l == litcal.DefaultLocale {
			return l, true
		}
	}
	return available[0], true
}

func languagePrefix(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i >= 0 {
		locale = locale[:i]
	}
	return locale
}
