package litcal_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/litcal-mcp/internal/format"
	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/logging"
	"github.com/teemow/litcal-mcp/internal/server"
	"github.com/teemow/litcal-mcp/internal/tools/common"
)

const (
	yearDescription     = "Calendar year (1970-9999). Defaults to the current year."
	yearTypeDescription = "Year type: 'CIVIL' (January to December, default) or 'LITURGICAL' (Advent to Advent)"
)

// registerCalendarTools registers the calendar-year and listing tools.
func registerCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	generalTool := mcp.NewTool("get_general_calendar",
		mcp.WithDescription("Get the General Roman Calendar for a year: holy days of obligation, start and end of the liturgical seasons and the lectionary cycles"),
		mcp.WithString("year",
			mcp.Description(yearDescription),
		),
		mcp.WithString("locale",
			mcp.Description("Locale for names and dates (default: 'en'). Examples: 'en', 'it', 'la', 'es'"),
		),
		mcp.WithString("year_type",
			mcp.Description(yearTypeDescription),
		),
	)
	s.AddTool(generalTool, common.InstrumentedCalendarToolHandler("get_general_calendar", litcal.CalendarGeneralRoman, "", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGeneralCalendar(ctx, request, sc)
		}))

	nationalTool := mcp.NewTool("get_national_calendar",
		mcp.WithDescription("Get a national liturgical calendar for a year, including the celebrations particular to that nation"),
		mcp.WithString("nation",
			mcp.Required(),
			mcp.Description("Nation code, e.g. 'US', 'IT', 'NL'. Use list_available_calendars to see all nations."),
		),
		mcp.WithString("year",
			mcp.Description(yearDescription),
		),
		mcp.WithString("locale",
			mcp.Description("Locale for names and dates (default: 'en_US'). Falls back to a locale the calendar supports."),
		),
		mcp.WithString("year_type",
			mcp.Description(yearTypeDescription),
		),
	)
	s.AddTool(nationalTool, common.InstrumentedCalendarToolHandler("get_national_calendar", litcal.CalendarNational, "nation", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleParticularCalendar(ctx, request, sc, particularTool{
				name:          "get_national_calendar",
				calendarType:  litcal.CalendarNational,
				idArg:         "nation",
				defaultLocale: defaultNationalLocale,
			})
		}))

	diocesanTool := mcp.NewTool("get_diocesan_calendar",
		mcp.WithDescription("Get a diocesan liturgical calendar for a year, including the celebrations particular to that diocese"),
		mcp.WithString("diocese",
			mcp.Required(),
			mcp.Description("Diocese id, e.g. 'boston_us', 'romamo_it'. Use list_available_calendars to see all dioceses."),
		),
		mcp.WithString("year",
			mcp.Description(yearDescription),
		),
		mcp.WithString("locale",
			mcp.Description("Locale for names and dates (default: 'en_US'). Falls back to a locale the calendar supports."),
		),
		mcp.WithString("year_type",
			mcp.Description(yearTypeDescription),
		),
	)
	s.AddTool(diocesanTool, common.InstrumentedCalendarToolHandler("get_diocesan_calendar", litcal.CalendarDiocesan, "diocese", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleParticularCalendar(ctx, request, sc, particularTool{
				name:          "get_diocesan_calendar",
				calendarType:  litcal.CalendarDiocesan,
				idArg:         "diocese",
				defaultLocale: defaultDiocesanLocale,
			})
		}))

	listTool := mcp.NewTool("list_available_calendars",
		mcp.WithDescription("List the national and diocesan calendars and the locales the Liturgical Calendar API supports"),
	)
	s.AddTool(listTool, common.InstrumentedToolHandler("list_available_calendars", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListCalendars(ctx, sc)
		}))
}

func handleGeneralCalendar(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	req, err := parseCalendarRequest(ctx, sc, args, litcal.CalendarGeneralRoman, "", "locale", defaultGeneralLocale)
	if err != nil {
		return toolError(err), nil
	}

	result, err := sc.Fetcher().Fetch(ctx, req.fetch())
	if err != nil {
		return fetchErrorResult(ctx, sc, fetchFailure{
			tool:     "get_general_calendar",
			what:     "General Roman Calendar",
			notFound: fmt.Sprintf("General Roman Calendar with year %d and locale %s not found", req.year, req.locale),
			req:      req,
		}, err), nil
	}

	summary := format.CalendarSummary(result.Payload, req.year)
	return mcp.NewToolResultText(fmt.Sprintf("General Roman Calendar (%d):\n\n%s", req.year, summary)), nil
}

// particularTool describes a national or diocesan calendar tool.
type particularTool struct {
	name          string
	calendarType  litcal.CalendarType
	idArg         string
	defaultLocale string
}

func (p particularTool) label() string {
	if p.calendarType == litcal.CalendarNational {
		return "National"
	}
	return "Diocesan"
}

// notFound renders an upstream 404 with the identifiers the catalog knows.
func (p particularTool) notFound(ctx context.Context, sc *server.ServerContext, id string) string {
	var (
		msg       string
		available []string
		label     string
	)
	if p.calendarType == litcal.CalendarNational {
		msg = "National calendar not found for: " + id
		available = sc.Metadata().ListNationalCodes(ctx)
		label = availableLabels["nation"]
	} else {
		msg = "Diocesan calendar not found for: " + id
		available = sc.Metadata().ListDiocesanIDs(ctx)
		label = availableLabels["diocese"]
	}
	if len(available) > 0 {
		msg += "\n" + label + strings.Join(available, ", ")
	}
	return msg
}

func handleParticularCalendar(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, p particularTool) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	req, err := parseCalendarRequest(ctx, sc, args, p.calendarType, common.StringArg(args, p.idArg, ""), "locale", p.defaultLocale)
	if err != nil {
		return toolError(err), nil
	}

	result, err := sc.Fetcher().FetchWithParticular(ctx, req.fetch())
	if err != nil {
		return fetchErrorResult(ctx, sc, fetchFailure{
			tool:     p.name,
			what:     strings.ToLower(p.label()) + " calendar",
			notFound: p.notFound(ctx, sc, req.calendarID),
			req:      req,
		}, err), nil
	}

	summary := format.CalendarSummary(result.Payload, req.year)
	return mcp.NewToolResultText(fmt.Sprintf("%s Calendar for %s (%d):\n\n%s", p.label(), req.calendarID, req.year, summary)), nil
}

func handleListCalendars(ctx context.Context, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	doc, err := sc.Metadata().Document(ctx)
	if err != nil {
		sc.Logger().ErrorContext(ctx, "calendar metadata unavailable",
			logging.Tool("list_available_calendars"),
			logging.Err(err),
		)
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", format.CalendarListing(nil), err)), nil
	}
	return mcp.NewToolResultText(format.CalendarListing(doc)), nil
}
