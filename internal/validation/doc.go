// Package validation checks and normalizes the arguments of calendar tools
// and provides the locale and lectionary helpers used when formatting.
//
// Validation failures are returned as *Error, whose message is safe to show
// to the user as is.
package validation
