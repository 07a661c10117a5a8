// Package fetcher combines the calendar cache and the Liturgical Calendar
// API into a single read-through operation used by every tool.
//
// A request is resolved to a cache key, served from the cache when a fresh
// entry exists, and otherwise fetched from the API and stored. Upstream
// errors reach the caller as *litcal.HTTPError or *litcal.NetworkError.
package fetcher
