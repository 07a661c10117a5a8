package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/litcal-mcp/internal/server"
)

// Resource URIs.
const (
	CalendarsURI = "litcal://calendars"
	SettingsURI  = "litcal://settings"
)

// RegisterCalendarResources registers the calendar catalog and settings
// resources.
func RegisterCalendarResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc == nil {
		return fmt.Errorf("server context is required")
	}

	calendarsResource := mcp.NewResource(
		CalendarsURI,
		"Available Liturgical Calendars",
		mcp.WithResourceDescription("National and diocesan calendars and the locales supported by the Liturgical Calendar API"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(calendarsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleCalendars(ctx, request, sc)
	})

	settingsResource := mcp.NewResource(
		SettingsURI,
		"Server Settings",
		mcp.WithResourceDescription("Upstream API and cache settings of this server"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(settingsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSettings(ctx, request, sc)
	})

	return nil
}

// handleCalendars returns the metadata document as fetched from the API
func handleCalendars(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	doc, err := sc.Metadata().Document(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar metadata: %w", err)
	}
	return jsonContents(request.Params.URI, doc)
}

// handleSettings returns the effective settings. Credentials are omitted.
func handleSettings(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	settings := sc.Settings()

	data := map[string]any{
		"apiBaseURL":          settings.APIBaseURL,
		"timeoutSeconds":      settings.Timeout.Seconds(),
		"metadataCacheExpiry": settings.MetadataCacheExpiry.String(),
		"calendarCacheExpiry": settings.CalendarCacheExpiry.String(),
		"cacheBackend":        sc.Store().Backend(),
		"rateLimit":           settings.RateLimit,
		"metadataAvailable":   sc.Metadata().Available(),
	}
	if last := sc.Metadata().LastRefresh(); !last.IsZero() {
		data["metadataRefreshedAt"] = last.UTC().Format(time.RFC3339)
	}

	return jsonContents(request.Params.URI, data)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
