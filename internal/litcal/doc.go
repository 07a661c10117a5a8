// Package litcal models the Liturgical Calendar API: calendar and year
// types, the composite CacheKey that names one calendar-year document, the
// typed Payload and metadata documents, the HTTP client that fetches them,
// and MarkParticular, which flags the celebrations of a national or diocesan
// calendar that are not part of the General Roman Calendar.
//
// Upstream failures are reported as *HTTPError (non-2xx responses, status
// and body preserved) or *NetworkError (transport failures and timeouts) so
// callers can tell them apart with errors.As.
package litcal
