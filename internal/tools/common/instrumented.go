package common

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/litcal-mcp/internal/instrumentation"
	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/server"
)

// ToolHandler is the signature of an MCP tool handler.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// calendarInfo is what a tool call requested, as far as it can be read from
// the raw arguments before validation.
type calendarInfo struct {
	calendarType string
	calendarID   string
	locale       string
	year         int
}

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging. The requested calendar is read from the generic
// calendar_type, calendar_id, locale and year arguments.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return instrumented(toolName, sc, func(args map[string]any) calendarInfo {
		info := calendarInfo{
			calendarType: StringArg(args, "calendar_type", ""),
			calendarID:   StringArg(args, "calendar_id", ""),
			locale:       StringArg(args, "locale", StringArg(args, "target_locale", "")),
		}
		if ct, err := litcal.ParseCalendarType(info.calendarType); err == nil {
			info.calendarType = string(ct)
		}
		info.year, _ = IntArg(args, "year")
		return info
	}, handler)
}

// InstrumentedCalendarToolHandler is like InstrumentedToolHandler for tools
// bound to one calendar type, whose identifier comes from idArg.
//
// Usage:
//
//	s.AddTool(tool, common.InstrumentedCalendarToolHandler("get_national_calendar", litcal.CalendarNational, "nation", sc, handler))
func InstrumentedCalendarToolHandler(toolName string, calendarType litcal.CalendarType, idArg string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return instrumented(toolName, sc, func(args map[string]any) calendarInfo {
		info := calendarInfo{
			calendarType: string(calendarType),
			locale:       StringArg(args, "locale", ""),
		}
		if idArg != "" {
			info.calendarID = StringArg(args, idArg, "")
		}
		info.year, _ = IntArg(args, "year")
		return info
	}, handler)
}

func instrumented(toolName string, sc *server.ServerContext, describe func(map[string]any) calendarInfo, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		info := describe(args)

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.NewSpanAttributeBuilder().
				WithCalendar(info.calendarType, strings.ToLower(info.calendarID)).
				WithLocale(info.locale).
				WithYear(info.year).
				Build()...)
		defer span.End()

		// Get metrics and audit logger (may be nil if not configured)
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		// If no instrumentation configured, just call the handler
		if metrics == nil && auditLogger == nil {
			result, err := handler(ctx, request)
			finishSpan(span, result, err)
			return result, err
		}

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithCalendar(info.calendarType, info.calendarID).
			WithLocale(info.locale).
			WithYear(info.year).
			WithArguments(args)

		result, err := handler(ctx, request)
		duration := time.Since(start)
		finishSpan(span, result, err)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			invocation.CompleteWithError(err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			invocation.Complete(false, nil)
		default:
			invocation.CompleteSuccess()
		}

		if metrics != nil {
			metrics.RecordToolInvocationForCalendar(ctx, toolName, status, info.calendarType, info.calendarID, duration)
		}

		if auditLogger != nil {
			auditLogger.LogToolInvocation(invocation)
		}

		return result, err
	}
}

// errToolResult marks spans of calls that returned an error result.
var errToolResult = errors.New("tool returned an error result")

func finishSpan(span trace.Span, result *mcp.CallToolResult, err error) {
	switch {
	case err != nil:
		instrumentation.SetSpanError(span, err)
	case result != nil && result.IsError:
		instrumentation.SetSpanError(span, errToolResult)
	default:
		instrumentation.SetSpanSuccess(span)
	}
}
