package litcal_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/litcal-mcp/internal/format"
	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/logging"
	"github.com/teemow/litcal-mcp/internal/server"
	"github.com/teemow/litcal-mcp/internal/tools/common"
	"github.com/teemow/litcal-mcp/internal/validation"
)

const (
	calendarTypeDescription = "Calendar type: 'GENERAL_ROMAN' (default), 'NATIONAL' or 'DIOCESAN'"
	calendarIDDescription   = "Nation code or diocese id. Required for NATIONAL and DIOCESAN calendars."
)

// registerDayTools registers the tools answering for a single day or for
// the moveable feasts of a year.
func registerDayTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	liturgyTool := mcp.NewTool("get_liturgy_of_the_day",
		mcp.WithDescription("Get the liturgical celebrations of a day with their grade, color, common and readings"),
		mcp.WithString("date",
			mcp.Description("Date in YYYY-MM-DD format. Defaults to today."),
		),
		mcp.WithString("calendar_type",
			mcp.Description(calendarTypeDescription),
		),
		mcp.WithString("calendar_id",
			mcp.Description(calendarIDDescription),
		),
		mcp.WithString("locale",
			mcp.Description("Locale for names and readings (default: 'en')"),
		),
	)
	s.AddTool(liturgyTool, common.InstrumentedToolHandler("get_liturgy_of_the_day", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleLiturgyOfTheDay(ctx, request, sc)
		}))

	announcementTool := mcp.NewTool("get_announcement_easter_and_moveable_feasts",
		mcp.WithDescription("Get the Epiphany announcement of Easter and the moveable feasts for a year, in the language of the requested locale"),
		mcp.WithString("year",
			mcp.Description(yearDescription),
		),
		mcp.WithString("target_locale",
			mcp.Description("Language of the announcement (default: 'en'). Templates exist for en, it, es, fr, de and pt; other languages use English."),
		),
		mcp.WithString("calendar_type",
			mcp.Description(calendarTypeDescription),
		),
		mcp.WithString("calendar_id",
			mcp.Description(calendarIDDescription),
		),
	)
	s.AddTool(announcementTool, common.InstrumentedToolHandler("get_announcement_easter_and_moveable_feasts", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleAnnouncement(ctx, request, sc)
		}))
}

// calendarSelection reads calendar_type and calendar_id.
func calendarSelection(ctx context.Context, sc *server.ServerContext, args map[string]any) (litcal.CalendarType, string, error) {
	ct, err := sc.Validator().CalendarType(common.StringArg(args, "calendar_type", ""))
	if err != nil {
		return "", "", err
	}
	return ct, common.StringArg(args, "calendar_id", ""), nil
}

func describeCalendar(req calendarRequest) string {
	switch req.calendarType {
	case litcal.CalendarNational:
		return "national calendar " + req.calendarID
	case litcal.CalendarDiocesan:
		return "diocesan calendar " + req.calendarID
	}
	return "General Roman Calendar"
}

func handleLiturgyOfTheDay(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	v := sc.Validator()

	date, err := v.TargetDate(common.StringArg(args, "date", ""))
	if err != nil {
		return toolError(err), nil
	}
	calendarType, rawID, err := calendarSelection(ctx, sc, args)
	if err != nil {
		return toolError(err), nil
	}
	id, err := v.CalendarID(ctx, calendarType, rawID)
	if err != nil {
		return toolError(err), nil
	}
	locale, err := v.Locale(common.StringArg(args, "locale", ""), defaultLiturgyLocale)
	if err != nil {
		return toolError(err), nil
	}

	// Civil year: the target date always lies inside its own calendar year.
	req := calendarRequest{
		calendarType: calendarType,
		calendarID:   id,
		year:         date.Year(),
		locale:       locale,
		yearType:     litcal.YearCivil,
	}

	result, err := sc.Fetcher().FetchWithParticular(ctx, req.fetch())
	if err != nil {
		return fetchErrorResult(ctx, sc, fetchFailure{
			tool:     "get_liturgy_of_the_day",
			what:     describeCalendar(req),
			notFound: fmt.Sprintf("No liturgical calendar found for %s in %d", describeCalendar(req), req.year),
			req:      req,
		}, err), nil
	}

	events := litcal.EventsOn(result.Payload.Litcal, date)
	if len(events) == 0 {
		return mcp.NewToolResultText("No liturgical celebrations found for " + date.Format("January 02, 2006")), nil
	}
	return mcp.NewToolResultText(format.LiturgyOfTheDay(events, date, result.Payload.Settings)), nil
}

func handleAnnouncement(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	calendarType, rawID, err := calendarSelection(ctx, sc, args)
	if err != nil {
		return toolError(err), nil
	}
	req, err := parseCalendarRequest(ctx, sc, args, calendarType, rawID, "target_locale", litcal.DefaultLocale)
	if err != nil {
		return toolError(err), nil
	}
	// The proclamation covers the civil year in which it is sung.
	req.yearType = litcal.YearCivil

	result, err := sc.Fetcher().Fetch(ctx, req.fetch())
	if err != nil {
		return fetchErrorResult(ctx, sc, fetchFailure{
			tool:     "get_announcement_easter_and_moveable_feasts",
			what:     describeCalendar(req),
			notFound: fmt.Sprintf("No liturgical calendar found for %s in %d", describeCalendar(req), req.year),
			req:      req,
		}, err), nil
	}

	text, err := format.Announcement(result.Payload, req.year)
	if err != nil {
		if errors.Is(err, format.ErrMissingEvents) {
			sc.Logger().WarnContext(ctx, "announcement incomplete",
				logging.Tool("get_announcement_easter_and_moveable_feasts"),
				logging.Year(req.year),
				logging.Err(err),
			)
		}
		return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// toolError renders a validation failure, or any other error verbatim.
func toolError(err error) *mcp.CallToolResult {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return mcp.NewToolResultError(validationMessage(verr))
	}
	return mcp.NewToolResultError("Error: " + err.Error())
}
