package litcal

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidCalendarType is returned for unknown calendar types.
	ErrInvalidCalendarType = errors.New("invalid calendar type")

	// ErrInvalidYearType is returned for unknown year types.
	ErrInvalidYearType = errors.New("invalid year type")

	// ErrInvalidYear is returned for years outside [MinYear, MaxYear].
	ErrInvalidYear = errors.New("invalid year")

	// ErrInvalidResponse is returned when a 2xx response body is not valid JSON.
	ErrInvalidResponse = errors.New("invalid response from liturgical calendar API")
)

// HTTPError is a non-2xx response from the upstream API.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("liturgical calendar API returned %d %s for %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// IsNotFound reports whether the upstream API answered 404.
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// NetworkError is a transport-level failure, including timeouts.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error requesting %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a timeout.
func (e *NetworkError) Timeout() bool {
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// IsNotFound reports whether err carries an upstream 404.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.IsNotFound()
}
