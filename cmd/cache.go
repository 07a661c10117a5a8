package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/litcal-mcp/internal/fetcher"
	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/logging"
	"github.com/teemow/litcal-mcp/internal/server"
)

// warmConcurrency bounds parallel downloads during cache warm.
const warmConcurrency = 4

// cacheSelection are the flags naming calendars in the cache subcommands.
type cacheSelection struct {
	calendarType string
	ids          string
	year         int
	locales      string
	yearType     string
}

func (s *cacheSelection) register(cmd *cobra.Command, idsUsage, localesUsage string) {
	cmd.Flags().StringVar(&s.calendarType, "type", "", "Calendar type: GENERAL_ROMAN, NATIONAL or DIOCESAN")
	cmd.Flags().StringVar(&s.ids, "id", "", idsUsage)
	cmd.Flags().IntVar(&s.year, "year", 0, "Calendar year (default: current year)")
	cmd.Flags().StringVar(&s.locales, "locale", "", localesUsage)
	cmd.Flags().StringVar(&s.yearType, "year-type", "", "Year type: CIVIL (default) or LITURGICAL")
}

// requests validates the selection and expands it into one request per
// calendar id and locale.
func (s *cacheSelection) requests(ctx context.Context, sc *server.ServerContext) ([]fetcher.Request, error) {
	v := sc.Validator()

	calendarType, err := v.CalendarType(s.calendarType)
	if err != nil {
		return nil, err
	}
	year, err := v.Year(s.year)
	if err != nil {
		return nil, err
	}
	yearType, err := v.YearType(s.yearType)
	if err != nil {
		return nil, err
	}

	ids := parseCommaSeparatedList(s.ids)
	if len(ids) == 0 {
		ids = []string{""}
	}
	locales := parseCommaSeparatedList(s.locales)
	if len(locales) == 0 {
		locales = []string{""}
	}

	var reqs []fetcher.Request
	for _, rawID := range ids {
		id, err := v.CalendarID(ctx, calendarType, rawID)
		if err != nil {
			return nil, err
		}
		for _, rawLocale := range locales {
			locale, err := v.Locale(rawLocale, litcal.DefaultLocale)
			if err != nil {
				return nil, err
			}
			reqs = append(reqs, fetcher.Request{
				CalendarType: calendarType,
				CalendarID:   id,
				Year:         year,
				Locale:       locale,
				YearType:     yearType,
			})
		}
	}
	return reqs, nil
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the calendar cache",
		Long: `Inspect and maintain the calendar data cache shared by all server
instances using the same cache directory or Valkey database.`,
	}

	cmd.AddCommand(newCacheClearCmd())
	cmd.AddCommand(newCacheWarmCmd())
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	var (
		sel   cacheSelection
		flags settingsFlags
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached calendars",
		Long: `Remove cached calendars. Without selection flags every cached calendar
is removed. With --type, --id, --year, --locale or --year-type only the
matching calendar is removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServerContext(cmd, &flags, debug, func(ctx context.Context, sc *server.ServerContext) error {
				return runCacheClear(ctx, cmd, sc, &sel, cmd.OutOrStdout())
			})
		},
	}

	sel.register(cmd, "Nation code or diocese id", "Locale of the cached calendar (default: en)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	flags.register(cmd)
	return cmd
}

func runCacheClear(ctx context.Context, cmd *cobra.Command, sc *server.ServerContext, sel *cacheSelection, out io.Writer) error {
	selective := false
	for _, name := range []string{"type", "id", "year", "locale", "year-type"} {
		if cmd.Flags().Changed(name) {
			selective = true
			break
		}
	}

	if !selective {
		n, err := sc.Fetcher().Invalidate(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to clear calendar cache: %w", err)
		}
		fmt.Fprintf(out, "Cleared %d cached calendar(s)\n", n)
		return nil
	}

	reqs, err := sel.requests(ctx, sc)
	if err != nil {
		return err
	}
	total := 0
	for _, req := range reqs {
		key, err := sc.Fetcher().Key(ctx, req)
		if err != nil {
			return err
		}
		req.Locale = key.Locale
		n, err := sc.Fetcher().Invalidate(ctx, &req)
		if err != nil {
			return fmt.Errorf("failed to clear %s: %w", key.Filename(), err)
		}
		total += n
	}
	fmt.Fprintf(out, "Cleared %d cached calendar(s)\n", total)
	return nil
}

func newCacheWarmCmd() *cobra.Command {
	var (
		sel   cacheSelection
		flags settingsFlags
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Download calendars into the cache",
		Long: `Download calendars into the cache ahead of time, so the first tool
call for them is served without waiting for the API.

Examples:
  litcal-mcp cache warm --year 2025 --locale en,it,la
  litcal-mcp cache warm --type NATIONAL --id US,IT --year 2025`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServerContext(cmd, &flags, debug, func(ctx context.Context, sc *server.ServerContext) error {
				return runCacheWarm(ctx, sc, &sel, cmd.OutOrStdout())
			})
		},
	}

	sel.register(cmd, "Comma-separated nation codes or diocese ids", "Comma-separated locales (default: en)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	flags.register(cmd)
	return cmd
}

func runCacheWarm(ctx context.Context, sc *server.ServerContext, sel *cacheSelection, out io.Writer) error {
	reqs, err := sel.requests(ctx, sc)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)
	for _, req := range reqs {
		g.Go(func() error {
			res, err := sc.Fetcher().Fetch(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to fetch %s calendar %q for %d: %w", req.CalendarType, req.CalendarID, req.Year, err)
			}
			source := "downloaded"
			if res.Cached {
				source = "already cached"
			}
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(out, "%s: %s\n", res.Key.Filename(), source)
			return nil
		})
	}
	return g.Wait()
}

// withServerContext loads the settings, builds a server context with its
// metadata loaded and runs fn.
func withServerContext(cmd *cobra.Command, flags *settingsFlags, debug bool, fn func(context.Context, *server.ServerContext) error) error {
	logger, err := newLogger(debug, logging.FormatText)
	if err != nil {
		return err
	}

	settings, err := flags.load(cmd, logger)
	if err != nil {
		return err
	}
	logger.Debug("configuration loaded", settings.LogAttrs()...)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sc, err := server.NewServerContext(ctx, settings, server.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := sc.Shutdown(); err != nil {
			logger.Warn("error during server context shutdown", logging.Err(err))
		}
	}()

	if err := sc.Init(ctx); err != nil {
		logger.Warn("calendar metadata unavailable, locales are not resolved", slog.String("api_base_url", settings.APIBaseURL), logging.Err(err))
	}
	return fn(ctx, sc)
}
