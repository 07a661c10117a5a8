// Package metadata caches the Liturgical Calendar API's catalog of national
// and diocesan calendars and the locales each one supports.
//
// A Cache is built by the composition root and loaded with Init. Every
// read checks freshness first and refreshes when the document is older
// than the configured expiry. When the API cannot be reached the cache
// degrades instead of failing: identifiers are accepted unvalidated and
// locales are passed through as requested.
package metadata
