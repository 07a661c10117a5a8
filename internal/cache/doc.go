// Package cache stores calendar-year payloads so repeated requests for the
// same calendar, year, locale and year type are served without contacting
// the upstream API.
//
// Two backends implement Store. FileStore writes one JSON document per key
// into a directory and ages entries by file modification time. ValkeyStore
// keeps the same documents in Valkey under a key prefix, for deployments
// that run several replicas against one cache.
//
// Entries past the configured expiry are reported as misses but are left in
// place; the next successful fetch overwrites them.
package cache
