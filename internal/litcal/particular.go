package litcal

import (
	"regexp"
	"time"
)

var bracketAnnotation = regexp.MustCompile(`\[[^\]]*\]`)

// MarkParticular returns a copy of events in which every element carries
// IsParticular, computed against the General Roman Calendar events.
//
// An event is particular when its key does not appear in the general
// calendar, unless it is a plain weekday (grade 0). An event whose key does
// appear is still particular when its name carries a bracketed annotation
// such as "[USA]". Matching is by key only, so neither list needs to be
// ordered or aligned with the other.
func MarkParticular(events, general []Event) []Event {
	generalKeys := make(map[string]struct{}, len(general))
	for _, e := range general {
		generalKeys[e.EventKey] = struct{}{}
	}

	marked := make([]Event, len(events))
	for i, e := range events {
		_, inGeneral := generalKeys[e.EventKey]
		if inGeneral {
			e.IsParticular = bracketAnnotation.MatchString(e.Name)
		} else {
			e.IsParticular = e.Grade != GradeWeekday
		}
		marked[i] = e
	}
	return marked
}

// FindEvent returns the first event with the given key.
func FindEvent(events []Event, key string) (Event, bool) {
	for _, e := range events {
		if e.EventKey == key {
			return e, true
		}
	}
	return Event{}, false
}

// EventsOn returns the events whose date falls on the given day.
func EventsOn(events []Event, day time.Time) []Event {
	var out []Event
	for _, e := range events {
		if e.Date.SameDay(day) {
			out = append(out, e)
		}
	}
	return out
}
