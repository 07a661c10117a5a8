// Package format renders liturgical calendar payloads as plain text for
// tool results.
//
// The renderers are pure functions over the decoded API types:
//
//   - CalendarSummary: holy days, season landmarks, particular celebrations
//     and lectionary cycles of a calendar year
//   - LiturgyOfTheDay: the celebrations of one day with their readings
//   - Announcement: the Epiphany proclamation of Easter and the moveable
//     feasts, from embedded per-language templates
//   - CalendarListing: the national and diocesan calendars known upstream
package format
