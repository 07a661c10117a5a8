package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/teemow/litcal-mcp/internal/config"
	"github.com/teemow/litcal-mcp/internal/instrumentation"
	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/server"
)

func newServerContext(t *testing.T, opts ...server.Option) *server.ServerContext {
	t.Helper()
	settings := config.Defaults()
	settings.CacheDir = t.TempDir()
	sc, err := server.NewServerContext(context.Background(), &settings, opts...)
	if err != nil {
		t.Fatalf("failed to create server context: %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	ctx := context.Background()
	sc := newServerContext(t)

	called := false
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("success"), nil
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)
	result, err := wrapped(ctx, mcp.CallToolRequest{})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !called {
		t.Error("expected handler to be called")
	}
	if result == nil {
		t.Error("expected result, got nil")
	}
}

func TestInstrumentedToolHandler_Error(t *testing.T) {
	ctx := context.Background()
	sc := newServerContext(t)

	expectedErr := errors.New("test error")
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)
	_, err := wrapped(ctx, mcp.CallToolRequest{})

	if err != expectedErr {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

func TestInstrumentedToolHandler_ErrorResult(t *testing.T) {
	ctx := context.Background()
	sc := newServerContext(t)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("error message"), nil
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)
	result, err := wrapped(ctx, mcp.CallToolRequest{})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result == nil {
		t.Fatal("expected result, got nil")
	}
	if !result.IsError {
		t.Error("expected result.IsError to be true")
	}
}

func TestInstrumentedToolHandler_WithMetricsAndAudit(t *testing.T) {
	ctx := context.Background()

	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), false)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	sc := newServerContext(t, server.WithMetrics(metrics))

	var buf bytes.Buffer
	sc.SetAuditLogger(instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		time.Sleep(time.Millisecond)
		return mcp.NewToolResultText("ok"), nil
	}

	wrapped := InstrumentedToolHandler("get_liturgy_of_the_day", sc, handler)
	result, err := wrapped(ctx, callRequest(map[string]any{
		"calendar_type": "national",
		"calendar_id":   "US",
		"locale":        "en_US",
		"date":          "2024-12-25",
	}))
	if err != nil || result == nil {
		t.Fatalf("unexpected result %v, error %v", result, err)
	}

	out := buf.String()
	for _, want := range []string{`"tool":"get_liturgy_of_the_day"`, `"calendar_type":"NATIONAL"`, `"calendar_id":"US"`, `"locale":"en_US"`} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("audit log %s does not contain %s", out, want)
		}
	}
}

func TestInstrumentedCalendarToolHandler_ErrorWithMetrics(t *testing.T) {
	ctx := context.Background()

	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), true)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	sc := newServerContext(t, server.WithMetrics(metrics))

	expectedErr := errors.New("upstream unavailable")
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	}

	wrapped := InstrumentedCalendarToolHandler("get_diocesan_calendar", litcal.CalendarDiocesan, "diocese", sc, handler)
	_, err = wrapped(ctx, callRequest(map[string]any{"diocese": "romamo_it", "year": 2024}))

	// With a noop meter only the code path is exercised.
	if err != expectedErr {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}
