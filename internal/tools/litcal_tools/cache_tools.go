package litcal_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/litcal-mcp/internal/fetcher"
	"github.com/teemow/litcal-mcp/internal/logging"
	"github.com/teemow/litcal-mcp/internal/server"
	"github.com/teemow/litcal-mcp/internal/tools/common"
)

// cacheSelectors are the arguments narrowing clear_calendar_cache to one
// entry.
var cacheSelectors = []string{"calendar_type", "calendar_id", "year", "locale", "year_type"}

// registerCacheTools registers cache maintenance tools. They modify server
// state and are only available outside read-only mode.
func registerCacheTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	clearTool := mcp.NewTool("clear_calendar_cache",
		mcp.WithDescription("Remove cached calendar data. Without arguments every cached calendar is removed; otherwise only the calendar described by the arguments."),
		mcp.WithString("calendar_type",
			mcp.Description(calendarTypeDescription),
		),
		mcp.WithString("calendar_id",
			mcp.Description(calendarIDDescription),
		),
		mcp.WithString("year",
			mcp.Description(yearDescription),
		),
		mcp.WithString("locale",
			mcp.Description("Locale of the cached calendar (default: 'en')"),
		),
		mcp.WithString("year_type",
			mcp.Description(yearTypeDescription),
		),
	)
	s.AddTool(clearTool, common.InstrumentedToolHandler("clear_calendar_cache", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleClearCache(ctx, request, sc)
		}))
}

func handleClearCache(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	selective := false
	for _, key := range cacheSelectors {
		if common.StringArg(args, key, "") != "" {
			selective = true
			break
		}
	}

	if !selective {
		n, err := sc.Fetcher().Invalidate(ctx, nil)
		if err != nil {
			return clearFailed(ctx, sc, err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Cleared %d cached calendar(s)", n)), nil
	}

	calendarType, rawID, err := calendarSelection(ctx, sc, args)
	if err != nil {
		return toolError(err), nil
	}
	req, err := parseCalendarRequest(ctx, sc, args, calendarType, rawID, "locale", "")
	if err != nil {
		return toolError(err), nil
	}

	// The entry was stored under the resolved locale.
	key, err := sc.Fetcher().Key(ctx, req.fetch())
	if err != nil {
		return toolError(err), nil
	}
	n, err := sc.Fetcher().Invalidate(ctx, &fetcher.Request{
		CalendarType: key.CalendarType,
		CalendarID:   key.CalendarID,
		Year:         key.Year,
		Locale:       key.Locale,
		YearType:     key.YearType,
	})
	if err != nil {
		return clearFailed(ctx, sc, err), nil
	}
	if n == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No cached calendar for %s", key.Filename())), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Cleared cached calendar %s", key.Filename())), nil
}

func clearFailed(ctx context.Context, sc *server.ServerContext, err error) *mcp.CallToolResult {
	sc.Logger().ErrorContext(ctx, "failed to clear calendar cache",
		logging.Tool("clear_calendar_cache"),
		logging.Err(err),
	)
	return mcp.NewToolResultError(fmt.Sprintf("Failed to clear calendar cache: %v", err))
}
