package litcal_tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/logging"
	"github.com/teemow/litcal-mcp/internal/server"
	"github.com/teemow/litcal-mcp/internal/validation"
)

// availableLabels introduce the list of known identifiers after a
// validation failure.
var availableLabels = map[string]string{
	"nation":  "Available nations: ",
	"diocese": "Available diocese ids: ",
}

// validationResult renders err as a tool error when it is a validation
// failure.
func validationResult(err error) (*mcp.CallToolResult, bool) {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return nil, false
	}
	return mcp.NewToolResultError(validationMessage(verr)), true
}

func validationMessage(verr *validation.Error) string {
	msg := "Error: " + verr.Message
	if len(verr.Available) > 0 {
		label, ok := availableLabels[verr.Field]
		if !ok {
			label = "Available values: "
		}
		msg += "\n" + label + strings.Join(verr.Available, ", ")
	}
	return msg
}

// fetchFailure describes a calendar request for error messages.
type fetchFailure struct {
	tool     string
	what     string // e.g. "national calendar"
	notFound string // message for an upstream 404
	req      calendarRequest
}

// fetchErrorResult logs an upstream failure and renders it. A 404 gets
// notFound, other HTTP errors show status and body, and transport failures
// are reported as network errors.
func fetchErrorResult(ctx context.Context, sc *server.ServerContext, f fetchFailure, err error) *mcp.CallToolResult {
	if res, ok := validationResult(err); ok {
		return res
	}

	var (
		httpErr *litcal.HTTPError
		netErr  *litcal.NetworkError
		msg     string
	)
	switch {
	case errors.As(err, &httpErr) && httpErr.IsNotFound():
		msg = f.notFound
	case errors.As(err, &httpErr):
		msg = fmt.Sprintf("HTTP error fetching %s: %d - %s", f.what, httpErr.StatusCode, strings.TrimSpace(httpErr.Body))
	case errors.As(err, &netErr):
		msg = fmt.Sprintf("Network error fetching %s: %v", f.what, netErr.Err)
	default:
		msg = fmt.Sprintf("Error fetching %s: %v", f.what, err)
	}

	sc.Logger().ErrorContext(ctx, "calendar request failed",
		logging.Tool(f.tool),
		logging.CalendarType(string(f.req.calendarType)),
		logging.CalendarID(f.req.calendarID),
		logging.Year(f.req.year),
		logging.Locale(f.req.locale),
		logging.Err(err),
	)
	return mcp.NewToolResultError(msg)
}
