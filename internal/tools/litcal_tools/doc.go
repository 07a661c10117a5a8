// Package litcal_tools provides MCP tools for the Liturgical Calendar API.
//
// # Available Tools
//
// Calendars:
//   - get_general_calendar: Summary of the General Roman Calendar for a year
//   - get_national_calendar: Summary of a national calendar with its particular celebrations
//   - get_diocesan_calendar: Summary of a diocesan calendar with its particular celebrations
//   - list_available_calendars: Nations, dioceses and locales known to the API
//
// Days and feasts:
//   - get_liturgy_of_the_day: Celebrations and readings of one day
//   - get_announcement_easter_and_moveable_feasts: Epiphany proclamation for a year
//
// Cache maintenance (not registered in read-only mode):
//   - clear_calendar_cache: Remove one or all cached calendars
//
// Domain failures are returned as tool error results, never as Go errors.
// Unknown nations and dioceses are reported together with the identifiers
// the API does know.
package litcal_tools
