package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rendis/placetap/internal/config"
	"github.com/rendis/placetap/internal/engine/crawler"
	"github.com/rendis/placetap/internal/engine/geo"
	"github.com/rendis/placetap/internal/engine/httpx"
	"github.com/rendis/placetap/internal/engine/storage"
	"github.com/rendis/placetap/internal/engine/surface"
	"github.com/rendis/placetap/internal/logging"
	"github.com/rendis/placetap/internal/model"
	"github.com/rendis/placetap/internal/tui"
	"github.com/rendis/placetap/internal/tui/views"
)

const defaultRadiusKm = 5

type crawlFlags struct {
	limit         string
	headless      bool
	output        string
	category      string
	db            bool
	tui           bool
	near          string
	radius        float64
	area          string
	minRating     float64
	maxStagnation int
	logLevel      string
}

func newCrawlCmd() *cobra.Command {
	var f crawlFlags

	cmd := &cobra.Command{
		Use:   "placetap [subject...]",
		Short: "Collect place listings from Google Maps into a Parquet file",
		Example: `  placetap
  placetap kota solo --limit 40 --headless
  placetap yogyakarta --category bakery --db --tui
  placetap --near "-7.556,110.788" --radius 3 --min-rating 4.5`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			params := f.apply(cmd, cfg).Params(config.Subject(args))
			params.MinRating = f.minRating
			params.Near = strings.TrimSpace(f.near)
			params.RadiusKm = f.radius
			params.AreaFile = f.area
			params.TUI = f.tui
			if !f.db {
				params.DBPath = ""
			}
			return runCrawl(cmd.Context(), params)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.limit, "limit", "", fmt.Sprintf("records to collect (default %d)", config.DefaultLimit))
	fl.BoolVar(&f.headless, "headless", false, "run the browser without a window")
	fl.StringVar(&f.output, "output", "", "output directory (default .)")
	fl.StringVar(&f.category, "category", "", fmt.Sprintf("business category to search (default %q)", config.DefaultCategory))
	fl.BoolVar(&f.db, "db", false, "also mirror records into <slug>.db")
	fl.BoolVar(&f.tui, "tui", false, "show a live progress view")
	fl.StringVar(&f.near, "near", "", `keep places near "lat,lng" or a place name`)
	fl.Float64Var(&f.radius, "radius", defaultRadiusKm, "radius in km for --near")
	fl.StringVar(&f.area, "area", "", "keep places inside the polygons of a GeoJSON file")
	fl.Float64Var(&f.minRating, "min-rating", 0, "minimum star rating")
	fl.IntVar(&f.maxStagnation, "max-stagnation", 0, fmt.Sprintf("scrolls without new cards before giving up (default %d)", config.DefaultMaxStagnation))
	fl.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")

	return cmd
}

// apply overlays the flags the user set on cfg.
func (f crawlFlags) apply(cmd *cobra.Command, cfg config.Config) config.Config {
	changed := cmd.Flags().Changed
	if changed("limit") {
		cfg.Limit = config.ParseLimit(f.limit)
	}
	if changed("headless") {
		cfg.Headless = f.headless
	}
	if changed("output") && f.output != "" {
		cfg.OutputDir = f.output
	}
	if changed("category") && strings.TrimSpace(f.category) != "" {
		cfg.Category = strings.TrimSpace(f.category)
	}
	if changed("max-stagnation") && f.maxStagnation > 0 {
		cfg.MaxStagnation = f.maxStagnation
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	return cfg
}

func runCrawl(ctx context.Context, params model.CrawlParams) error {
	if err := os.MkdirAll(params.OutputDir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	var console io.Writer = os.Stderr
	if params.TUI {
		console = nil
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:   params.LogLevel,
		File:    params.LogPath,
		Console: console,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("session start",
		zap.String("query", params.Query),
		zap.Int("target", params.Target),
		zap.Int("max_stagnation", params.MaxStagnation),
		zap.String("output", params.OutputPath))

	filters, err := buildFilters(ctx, &params, logger)
	if err != nil {
		return err
	}

	sink, err := openSinks(params)
	if err != nil {
		return err
	}

	browser, err := surface.NewChrome(context.Background(), surface.ChromeOptions{
		Headless: params.Headless,
		ExecPath: params.ChromePath,
		Logger:   logger.Named("chrome"),
	})
	if err != nil {
		sink.Close()
		return err
	}
	defer browser.Close()

	startTime := time.Now()
	stats := &crawler.Stats{Target: params.Target}
	feed := views.NewFeed(0)
	opts := &crawler.RunOptions{
		Stats:    stats,
		Filters:  filters,
		OnRecord: feed.Push,
	}
	c := crawler.New(browser, sink, params, logger)

	var (
		res    *crawler.Result
		runErr error
	)
	if params.TUI {
		res, runErr = runWithProgress(ctx, c, opts, params, feed)
	} else {
		res, runErr = c.Run(ctx, opts)
	}

	// The sink is closed even on fatal errors so buffered rows reach disk.
	closeErr := sink.Close()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("crawl failed", zap.Error(runErr))
		if closeErr != nil {
			return fmt.Errorf("%w (closing output: %v)", runErr, closeErr)
		}
		return runErr
	}
	if closeErr != nil {
		return fmt.Errorf("closing output: %w", closeErr)
	}
	if res == nil {
		// Interrupted before the listing opened.
		return runErr
	}

	duration := time.Since(startTime).Truncate(time.Second)
	logger.Info("done",
		zap.Stringer("reason", res.Reason),
		zap.Int("accepted", res.Accepted),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("unique_seen", res.UniqueSeen),
		zap.Int("failures", res.Failures),
		zap.Duration("duration", duration))

	printSummary(os.Stderr, params, res, duration)
	return nil
}

// runWithProgress runs the crawl in the background while the progress
// view owns the terminal. It returns once the crawl has stopped.
func runWithProgress(ctx context.Context, c *crawler.Crawler, opts *crawler.RunOptions, params model.CrawlParams, feed *views.Feed) (*crawler.Result, error) {
	crawlCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		res    *crawler.Result
		runErr error
		done   = make(chan struct{})
	)
	go func() {
		defer close(done)
		res, runErr = c.Run(crawlCtx, opts)
	}()

	viewErr := tui.Run(views.Session{
		Title:  fmt.Sprintf("Crawling %q", params.Query),
		Output: params.OutputPath,
		Stats:  opts.Stats,
		Feed:   feed,
		Cancel: cancel,
		Run: func() error {
			<-done
			return runErr
		},
	})

	cancel()
	<-done
	if runErr == nil && viewErr != nil && !errors.Is(viewErr, context.Canceled) {
		return res, viewErr
	}
	return res, runErr
}

// buildFilters turns the optional rating and geofence settings into record
// filters. A fence around a center also centers the listing on it.
func buildFilters(ctx context.Context, params *model.CrawlParams, logger *zap.Logger) ([]crawler.Filter, error) {
	var filters []crawler.Filter
	if params.MinRating > 0 {
		filters = append(filters, crawler.MinRating(params.MinRating))
	}

	var fence *geo.Fence
	if params.Near != "" {
		center, ok := geo.ParseCenter(params.Near)
		if !ok {
			g := geo.NewGeocoder(httpx.NewClient(httpx.Options{UserAgent: "placetap/" + version}), "", os.Getenv("PLACETAP_GEOCODER_EMAIL"))
			place, err := g.Geocode(ctx, params.Near)
			if err != nil {
				return nil, fmt.Errorf("resolving --near %q: %w", params.Near, err)
			}
			logger.Info("geocoded", zap.String("near", params.Near), zap.String("place", place.Name))
			center = place.Center
		}
		radius := params.RadiusKm
		if radius <= 0 {
			radius = defaultRadiusKm
		}
		fence = geo.RadiusFence(center, radius)
		params.URL = config.SearchURL(params.Query, center.Lat(), center.Lon(), geo.ZoomForRadius(center.Lat(), radius))
	}

	if params.AreaFile != "" {
		area, err := geo.LoadArea(params.AreaFile)
		if err != nil {
			return nil, err
		}
		if fence == nil {
			fence = geo.AreaFence(area)
		} else {
			fence.Within(area)
		}
	}

	if fence != nil {
		filters = append(filters, fence.Keep)
	}
	return filters, nil
}

func openSinks(params model.CrawlParams) (storage.Sink, error) {
	pq, err := storage.NewParquetSink(params.OutputPath, params.FlushEvery)
	if err != nil {
		return nil, err
	}
	if params.DBPath == "" {
		return pq, nil
	}
	store, err := storage.NewStore(params.DBPath)
	if err != nil {
		pq.Close()
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return storage.Tee(pq, store), nil
}

func printSummary(w io.Writer, params model.CrawlParams, res *crawler.Result, duration time.Duration) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "══════════════════════════════\n")
	fmt.Fprintf(w, "  placetap complete (%s)\n", res.Reason)
	fmt.Fprintf(w, "══════════════════════════════\n")
	fmt.Fprintf(w, "  Query:       %s\n", params.Query)
	fmt.Fprintf(w, "  Accepted:    %d/%d\n", res.Accepted, params.Target)
	fmt.Fprintf(w, "  Duplicates:  %d\n", res.Duplicates)
	fmt.Fprintf(w, "  Unique seen: %d\n", res.UniqueSeen)
	if res.Filtered > 0 {
		fmt.Fprintf(w, "  Filtered:    %d\n", res.Filtered)
	}
	fmt.Fprintf(w, "  Skipped:     %d\n", res.Failures+res.Invalid)
	fmt.Fprintf(w, "  Duration:    %s\n", duration)
	fmt.Fprintf(w, "  Output:      %s\n", params.OutputPath)
	if params.DBPath != "" {
		fmt.Fprintf(w, "  Database:    %s\n", params.DBPath)
	}
	fmt.Fprintf(w, "  Log:         %s\n", params.LogPath)
	fmt.Fprintf(w, "══════════════════════════════\n")
}
