package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pfrederiksen/opera-events/internal/config"
	"github.com/pfrederiksen/opera-events/internal/filter"
	"github.com/pfrederiksen/opera-events/internal/logger"
	"github.com/pfrederiksen/opera-events/internal/metrics"
	"github.com/pfrederiksen/opera-events/internal/scraper"
	"github.com/pfrederiksen/opera-events/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	ExitSuccess      = 0
	ExitError        = 1
	ExitInvalidQuery = 2
)

var (
	flagConfig    string
	flagBaseURL   string
	flagTimeout   time.Duration
	flagLogLevel  string
	flagLogFormat string

	flagWorkID   int
	flagQuery    string
	flagFormat   string
	flagSort     string
	flagCities   []string
	flagVenues   []string
	flagFrom     string
	flagTo       string
	flagDates    string
	flagWeekends bool
	flagUpcoming bool
	flagVerbose  bool

	flagAddr string
)

// now is the clock used for year-less listing dates and --upcoming
var now = time.Now

// cfg is loaded before any subcommand runs
var cfg *config.Config

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opera-events",
		Short: "Search opera performances listed on bachtrack.com",
		Long: `A CLI tool to search opera performances listed on bachtrack.com.
Expands each production's compact date list into one entry per performance
and can serve the same searches as an HTTP API.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	pf.StringVar(&flagBaseURL, "base-url", scraper.BaseURL, "Listing site origin")
	pf.DurationVar(&flagTimeout, "timeout", scraper.Timeout, "Timeout for each page fetch")
	pf.StringVar(&flagLogLevel, "log-level", string(logger.LevelInfo), "Log level: debug, info, warn or error")
	pf.StringVar(&flagLogFormat, "log-format", string(logger.FormatJSON), "Log format: json or console")

	cmd.AddCommand(newSearchCmd(), newDetailCmd(), newServeCmd())
	return cmd
}

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "List performances for a work id or a title",
		Example: `  opera-events search --work-id 12285
  opera-events search --q "Il barbiere di Siviglia" --city berlin --weekends
  opera-events search --q tosca --dates "Mar 1-15" --format ics > tosca.ics`,
		Args: cobra.NoArgs,
		RunE: runSearch,
	}

	cmd.Flags().IntVar(&flagWorkID, "work-id", 0, "Catalog work id (e.g., 12285)")
	cmd.Flags().StringVar(&flagQuery, "q", "", "Freetext search term")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text, json, yaml or ics")
	cmd.Flags().StringVar(&flagSort, "sort", string(SortNone), "Sort order: none, date, city or title")
	cmd.Flags().StringSliceVar(&flagCities, "city", nil, "Only performances in a matching city (repeatable)")
	cmd.Flags().StringSliceVar(&flagVenues, "venue", nil, "Only performances at a matching venue (repeatable)")
	cmd.Flags().StringVar(&flagFrom, "from", "", "Earliest date, YYYY-MM-DD")
	cmd.Flags().StringVar(&flagTo, "to", "", "Latest date, YYYY-MM-DD")
	cmd.Flags().StringVar(&flagDates, "dates", "", "Date range such as 'Mar 1-15', 'Mar 1 - Apr 15' or 'March'")
	cmd.Flags().BoolVar(&flagWeekends, "weekends", false, "Only Saturday and Sunday performances")
	cmd.Flags().BoolVar(&flagUpcoming, "upcoming", false, "Skip performances before today")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Show detail links and active filters")

	cmd.MarkFlagsMutuallyExclusive("work-id", "q")
	cmd.MarkFlagsMutuallyExclusive("dates", "from")
	cmd.MarkFlagsMutuallyExclusive("dates", "to")

	return cmd
}

func newDetailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detail URL",
		Short: "Show the address and production details of an event page",
		Args:  cobra.ExactArgs(1),
		RunE:  runDetail,
	}
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&flagAddr, "addr", ":8000", "Listen address")
	return cmd
}

// loadConfig resolves configuration and installs the default logger
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(flagConfig, cmd.Flags())
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Level(loaded.Log.Level), logger.Format(loaded.Log.Format), cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	logger.SetDefault(log)

	cfg = loaded
	return nil
}

func newScraper(m *metrics.Metrics) (*scraper.Scraper, error) {
	base, err := cfg.Scraper.URL()
	if err != nil {
		return nil, err
	}
	fetcher := scraper.NewHTTPFetcher(cfg.Scraper.Timeout, cfg.Scraper.UserAgent, base.String()+"/")

	return scraper.New(
		scraper.WithBaseURL(base),
		scraper.WithFetcher(fetcher),
		scraper.WithQualifiers(cfg.Scraper.Qualifiers),
		scraper.WithClock(now),
		scraper.WithLogger(logger.L()),
		scraper.WithMetrics(m),
	), nil
}

// runSearch is the search command logic
func runSearch(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat, FormatText, FormatJSON, FormatYAML, FormatICS)
	if err != nil {
		return err
	}
	order, ok := parseSortOrder(flagSort)
	if !ok {
		return fmt.Errorf("invalid sort order: %s (must be 'none', 'date', 'city' or 'title')", flagSort)
	}

	q := scraper.Query{WorkID: flagWorkID, Term: flagQuery}
	if err := q.Validate(); err != nil {
		return err
	}

	f, err := buildFilter()
	if err != nil {
		return err
	}

	sc, err := newScraper(nil)
	if err != nil {
		return err
	}

	if flagVerbose {
		logger.Info("searching", zap.String("query", q.String()), zap.String("filter", f.String()))
	}

	events, err := sc.Search(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	found := len(events)
	events = f.Apply(events)
	logger.Debug("filter applied", zap.Int("found", found), zap.Int("kept", len(events)))
	sortEvents(events, order)

	result := &OutputResult{
		Query:        q.String(),
		TotalResults: len(events),
		Results:      events,
		GeneratedAt:  now(),
	}
	if !f.IsEmpty() {
		result.Filter = f.String()
	}

	if err := WriteOutput(cmd.OutOrStdout(), result, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// buildFilter turns the search flags into a Filter
func buildFilter() (*filter.Filter, error) {
	f := filter.NewFilter()
	f.Cities = flagCities
	f.Venues = flagVenues
	f.WeekendsOnly = flagWeekends

	if flagDates != "" {
		from, to, err := filter.ParseDateRange(flagDates, now())
		if err != nil {
			return nil, fmt.Errorf("--dates: %w", err)
		}
		f.DateFrom, f.DateTo = from, to
	}
	if flagFrom != "" {
		from, err := filter.ParseDay(flagFrom)
		if err != nil {
			return nil, fmt.Errorf("--from: %w", err)
		}
		f.DateFrom = from
	}
	if flagTo != "" {
		to, err := filter.ParseDay(flagTo)
		if err != nil {
			return nil, fmt.Errorf("--to: %w", err)
		}
		f.DateTo = to
	}

	if flagUpcoming {
		today := now().UTC().Truncate(24 * time.Hour)
		if f.DateFrom == nil || f.DateFrom.Before(today) {
			f.DateFrom = &today
		}
	}

	return f, nil
}

// runDetail is the detail command logic
func runDetail(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat, FormatText, FormatJSON)
	if err != nil {
		return err
	}

	u, err := url.Parse(args[0])
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &scraper.InvalidQueryError{Reason: fmt.Sprintf("detail url must be absolute, got %q", args[0])}
	}

	sc, err := newScraper(nil)
	if err != nil {
		return err
	}

	info, err := sc.Detail(cmd.Context(), u.String())
	if err != nil {
		return fmt.Errorf("fetching detail: %w", err)
	}

	return WriteDetail(cmd.OutOrStdout(), info, format)
}

// runServe is the serve command logic
func runServe(cmd *cobra.Command, args []string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	sc, err := newScraper(m)
	if err != nil {
		return err
	}

	if cfg.Log.Level != string(logger.LevelDebug) {
		gin.SetMode(gin.ReleaseMode)
	}

	cors := server.DefaultCORSConfig()
	cors.AllowOrigins = cfg.Server.AllowOrigins

	base, err := cfg.Scraper.URL()
	if err != nil {
		return err
	}

	srv := server.New(sc, server.Options{
		Logger:     logger.L(),
		Metrics:    m,
		Gatherer:   reg,
		CORS:       cors,
		DetailHost: base.Host,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx, cfg.Server)
}

// ExitCode maps a command error to the process exit status
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var qerr *scraper.InvalidQueryError
	if errors.As(err, &qerr) {
		return ExitInvalidQuery
	}
	return ExitError
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitCode(err))
	}
}
