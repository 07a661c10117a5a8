package litcal_tools

import (
	"context"
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/litcal-mcp/internal/fetcher"
	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/server"
	"github.com/teemow/litcal-mcp/internal/tools/common"
)

// Default locales per tool.
const (
	defaultGeneralLocale  = "en"
	defaultNationalLocale = "en_US"
	defaultDiocesanLocale = "en_US"
	defaultLiturgyLocale  = "en"
)

// RegisterLitcalTools registers all liturgical calendar tools with the MCP
// server. The cache maintenance tool is only registered when readOnly is
// false.
func RegisterLitcalTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if sc == nil {
		return fmt.Errorf("server context is required")
	}

	registerCalendarTools(s, sc)
	registerDayTools(s, sc)

	if !readOnly {
		registerCacheTools(s, sc)
	}
	return nil
}

// calendarRequest is a validated calendar-year request.
type calendarRequest struct {
	calendarType litcal.CalendarType
	calendarID   string
	year         int
	locale       string
	yearType     litcal.YearType
}

func (r calendarRequest) fetch() fetcher.Request {
	return fetcher.Request{
		CalendarType: r.calendarType,
		CalendarID:   r.calendarID,
		Year:         r.year,
		Locale:       r.locale,
		YearType:     r.yearType,
	}
}

// parseCalendarRequest validates the year, locale and year_type arguments
// and the calendar id for calendarType. localeArg names the argument
// carrying the locale.
func parseCalendarRequest(ctx context.Context, sc *server.ServerContext, args map[string]any, calendarType litcal.CalendarType, rawID, localeArg, defaultLocale string) (calendarRequest, error) {
	v := sc.Validator()

	id, err := v.CalendarID(ctx, calendarType, rawID)
	if err != nil {
		return calendarRequest{}, err
	}

	year, err := common.IntArg(args, "year")
	if err != nil {
		return calendarRequest{}, err
	}
	if year, err = v.Year(year); err != nil {
		return calendarRequest{}, err
	}

	locale, err := v.Locale(common.StringArg(args, localeArg, ""), defaultLocale)
	if err != nil {
		return calendarRequest{}, err
	}

	yearType, err := v.YearType(common.StringArg(args, "year_type", ""))
	if err != nil {
		return calendarRequest{}, err
	}

	return calendarRequest{
		calendarType: calendarType,
		calendarID:   id,
		year:         year,
		locale:       locale,
		yearType:     yearType,
	}, nil
}
