package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/teemow/litcal-mcp/internal/validation"
)

// StringArg returns the trimmed string argument key, or def when it is
// missing or blank. Numbers are formatted without a fraction.
func StringArg(args map[string]any, key, def string) string {
	switch v := args[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	return def
}

// IntArg returns the integer argument key. Clients send years both as JSON
// numbers and as strings; both are accepted. A missing or blank value
// yields 0.
func IntArg(args map[string]any, key string) (int, error) {
	switch v := args[key].(type) {
	case nil:
		return 0, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, &validation.Error{Field: key, Message: fmt.Sprintf("Invalid %s value: %v", key, v)}
		}
		return int(v), nil
	case int:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, &validation.Error{Field: key, Message: fmt.Sprintf("Invalid %s value: %s", key, s)}
		}
		return n, nil
	}
	return 0, &validation.Error{Field: key, Message: fmt.Sprintf("Invalid %s value: %v", key, args[key])}
}

// BoolArg returns the boolean argument key, or def when it is missing.
func BoolArg(args map[string]any, key string, def bool) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}
