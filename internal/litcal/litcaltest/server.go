// Package litcaltest provides an in-process fake of the Liturgical Calendar
// API for tests.
package litcaltest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Known calendars served by the fake.
var (
	Nations  = []string{"IT", "US"}
	Dioceses = []string{"boston_us", "romamo_it"}
	Locales  = []string{"de", "en", "es", "fr", "it", "la", "pt"}
)

var monthNames = map[string][]string{
	"en": {"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
	"it": {"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno", "luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre"},
	"fr": {"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"},
}

type event struct {
	key, name, monthDay string
	grade               int
	holyDay             bool
	readings            any
}

// Events use fixed month-day pairs, shifted into the requested year.
var generalEvents = []event{
	{key: "OrdWeekday1Monday", name: "Monday of the First Week of Ordinary Time", monthDay: "01-08", grade: 0},
	{key: "AshWednesday", name: "Ash Wednesday", monthDay: "02-14", grade: 7},
	{key: "Easter", name: "Easter Sunday", monthDay: "03-31", grade: 7, holyDay: true,
		readings: map[string]any{
			"day":     map[string]any{"first_reading": "Acts 10:34a, 37-43", "gospel": "John 20:1-9"},
			"evening": map[string]any{"gospel": "Luke 24:13-35"},
		}},
	{key: "Ascension", name: "Ascension of the Lord", monthDay: "05-09", grade: 7},
	{key: "Pentecost", name: "Pentecost Sunday", monthDay: "05-19", grade: 7},
	{key: "CorpusChristi", name: "Most Holy Body and Blood of Christ", monthDay: "05-30", grade: 7},
	{key: "Advent1", name: "First Sunday of Advent", monthDay: "12-01", grade: 7},
	{key: "ImmaculateConception", name: "Immaculate Conception", monthDay: "12-09", grade: 6, holyDay: true},
	{key: "Christmas", name: "Christmas", monthDay: "12-25", grade: 7, holyDay: true,
		readings: map[string]any{
			"night": map[string]any{"gospel": "Luke 2:1-14"},
			"dawn":  map[string]any{"gospel": "Luke 2:15-20"},
			"day":   map[string]any{"gospel": "John 1:1-18"},
		}},
}

var particularEvents = map[string][]event{
	"nation/US": {
		{key: "ThanksgivingDay", name: "Thanksgiving Day", monthDay: "11-28", grade: 3},
	},
	"nation/IT": {
		{key: "StCatherineSiena", name: "Santa Caterina da Siena", monthDay: "04-29", grade: 4},
	},
	"diocese/romamo_it": {
		{key: "StCatherineSiena", name: "Santa Caterina da Siena", monthDay: "04-29", grade: 4},
		{key: "DedicationLateran", name: "Dedicazione della Basilica Lateranense", monthDay: "11-09", grade: 6},
	},
	"diocese/boston_us": {
		{key: "ThanksgivingDay", name: "Thanksgiving Day", monthDay: "11-28", grade: 3},
	},
}

// Request is one request observed by the fake.
type Request struct {
	Path           string
	AcceptLanguage string
	YearType       string
}

// Server is a fake Liturgical Calendar API.
type Server struct {
	*httptest.Server

	hits     atomic.Int32
	status   atomic.Int32
	mu       sync.Mutex
	requests []Request
}

// NewServer starts a fake API that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Hits returns the number of requests served.
func (s *Server) Hits() int {
	return int(s.hits.Load())
}

// Requests returns a copy of the requests served so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// FailWith makes every following request answer with code. Zero restores
// normal responses.
func (s *Server) FailWith(code int) {
	s.status.Store(int32(code))
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.hits.Add(1)
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Path:           r.URL.Path,
		AcceptLanguage: r.Header.Get("Accept-Language"),
		YearType:       r.URL.Query().Get("year_type"),
	})
	s.mu.Unlock()

	if code := int(s.status.Load()); code != 0 {
		http.Error(w, fmt.Sprintf(`{"error":"status %d"}`, code), code)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == "calendars":
		writeJSON(w, metadataDocument())
	case len(parts) == 2 && parts[0] == "calendar":
		s.serveCalendar(w, r, "", "", parts[1])
	case len(parts) == 4 && parts[0] == "calendar" && (parts[1] == "nation" || parts[1] == "diocese"):
		s.serveCalendar(w, r, parts[1], parts[2], parts[3])
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) serveCalendar(w http.ResponseWriter, r *http.Request, kind, id, yearStr string) {
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		http.Error(w, `{"error":"invalid year"}`, http.StatusBadRequest)
		return
	}
	locale := r.Header.Get("Accept-Language")

	events := generalEvents
	settings := map[string]any{"year": year, "locale": locale, "year_type": r.URL.Query().Get("year_type")}
	if kind != "" {
		extra, ok := particularEvents[kind+"/"+id]
		if !ok {
			http.Error(w, `{"error":"calendar not found"}`, http.StatusNotFound)
			return
		}
		events = append(append([]event(nil), generalEvents...), extra...)
		if kind == "nation" {
			settings["national_calendar"] = id
		} else {
			settings["diocesan_calendar"] = id
		}
	}

	months := monthNames["en"]
	if m, ok := monthNames[baseLanguage(locale)]; ok {
		months = m
	}

	out := make([]map[string]any, 0, len(events))
	for _, e := range events {
		date, err := time.Parse("2006-01-02", fmt.Sprintf("%04d-%s", year, e.monthDay))
		if err != nil {
			continue
		}
		m := map[string]any{
			"event_key":              e.key,
			"name":                   e.name,
			"date":                   date.UTC().Format(time.RFC3339),
			"grade":                  e.grade,
			"grade_lcl":              gradeName(e.grade),
			"color":                  []string{"white"},
			"color_lcl":              []string{"white"},
			"day":                    date.Day(),
			"month":                  int(date.Month()),
			"month_long":             months[date.Month()-1],
			"year":                   year,
			"holy_day_of_obligation": e.holyDay,
		}
		if e.readings != nil {
			m["readings"] = e.readings
		}
		out = append(out, m)
	}
	writeJSON(w, map[string]any{"litcal": out, "settings": settings})
}

func metadataDocument() map[string]any {
	return map[string]any{
		"litcal_metadata": map[string]any{
			"national_calendars": []map[string]any{
				{"calendar_id": "IT", "locales": []string{"it_IT"}},
				{"calendar_id": "US", "locales": []string{"en_US", "es_US"}},
			},
			"diocesan_calendars": []map[string]any{
				{"calendar_id": "boston_us", "diocese": "Archdiocese of Boston", "nation": "US", "locales": []string{"en_US"}},
				{"calendar_id": "romamo_it", "diocese": "Diocesi di Roma", "nation": "IT", "locales": []string{"it_IT"}},
			},
			"locales": Locales,
		},
	}
}

func gradeName(grade int) string {
	switch {
	case grade >= 7:
		return "celebration with precedence over solemnities"
	case grade == 6:
		return "solemnity"
	case grade >= 4:
		return "feast"
	case grade >= 2:
		return "memorial"
	}
	return "weekday"
}

func baseLanguage(locale string) string {
	if i := strings.IndexAny(locale, "-_"); i >= 0 {
		locale = locale[:i]
	}
	return strings.ToLower(locale)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
