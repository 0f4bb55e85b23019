package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bigislandtech/meetup-sync/internal/config"
	"github.com/bigislandtech/meetup-sync/internal/extract"
	"github.com/bigislandtech/meetup-sync/internal/logger"
	"github.com/bigislandtech/meetup-sync/internal/metrics"
	"github.com/bigislandtech/meetup-sync/internal/pipeline"
	"github.com/bigislandtech/meetup-sync/internal/scraper"
	"github.com/bigislandtech/meetup-sync/internal/storage"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig      string
	flagDataFile    string
	flagListingURL  string
	flagMetricsFile string
	flagFormat      string
	flagDryRun      bool
	flagForce       bool
	flagNoRender    bool
	flagVerbose     bool
)

// NewRootCmd creates the root command. Running it without a subcommand syncs.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meetup-sync",
		Short: "Sync Meetup events into the website dataset",
		Long: `A CLI tool that scrapes a Meetup group's events and merges them into the
events dataset used by the website. Hand-authored events and manual status
overrides are never touched; nothing is ever deleted.`,
		RunE:          runSync,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Path to YAML config file")
	pf.StringVar(&flagDataFile, "data-file", "", "Events dataset (.ts or .json); overrides config")
	pf.BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	addSyncFlags(cmd)

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Scrape Meetup and update the events dataset",
		RunE:  runSync,
	}
	addSyncFlags(cmd)
	return cmd
}

func addSyncFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&flagDryRun, "dry-run", false, "Run the whole pipeline but only print what would be written")
	f.BoolVar(&flagForce, "force", false, "Rewrite every matched event even when nothing changed")
	f.StringVar(&flagListingURL, "listing-url", "", "Meetup events listing URL; overrides config")
	f.BoolVar(&flagNoRender, "no-render", false, "Disable the headless browser fallback")
	f.StringVar(&flagMetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	f.StringVar(&flagFormat, "format", "text", "Output format: text or json")
}

// loadConfig reads the config file and applies command-line overrides
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}

	if flagDataFile != "" {
		cfg.Dataset.Path = flagDataFile
	}
	if flagListingURL != "" {
		cfg.Source.ListingURL = flagListingURL
	}
	if flagMetricsFile != "" {
		cfg.Metrics.File = flagMetricsFile
	}
	if flagNoRender {
		cfg.Fetch.Render = false
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger installs the default logger on the command's stderr so stdout
// carries only results
func setupLogger(cmd *cobra.Command, cfg config.Config) *logger.Logger {
	level := logger.ParseLevel(cfg.Log.Level)
	if flagVerbose {
		level = logger.LevelDebug
	}
	log := logger.New(level, cmd.ErrOrStderr())
	logger.SetDefault(log)
	return log
}

// pageSources returns the retrieval tiers in the order they are tried
func pageSources(cfg config.Config) []scraper.PageSource {
	sources := []scraper.PageSource{
		scraper.NewStaticSource(cfg.Fetch.HTTPTimeout, cfg.Source.UserAgent),
	}
	if cfg.Fetch.Render {
		sources = append(sources, scraper.NewRenderSource(
			cfg.Fetch.RenderTimeout, cfg.Fetch.SettleDelay, cfg.Source.UserAgent, cfg.Fetch.ChromePath))
	}
	return sources
}

// runSync is the main command logic
func runSync(cmd *cobra.Command, args []string) error {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	log := setupLogger(cmd, cfg)
	out := cmd.OutOrStdout()

	if flagVerbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Listing: %s\n", cfg.Source.ListingURL)
		fmt.Fprintf(cmd.ErrOrStderr(), "Dataset: %s\n", cfg.Dataset.Path)
		fmt.Fprintf(cmd.ErrOrStderr(), "Render fallback: %v\n", cfg.Fetch.Render)
	}

	m := metrics.New()
	sources := pageSources(cfg)
	crawler := scraper.NewCrawler(cfg.Source.Group, sources, log, m)
	fetcher := scraper.NewFetcher(sources, extract.FromConfig(cfg.Extract, loc), cfg.Extract.DefaultTime, cfg.Fetch.Pacing, log, m)
	store := storage.New(cfg.Dataset.Path, cfg.Dataset.ArrayName)

	var writer storage.Writer = storage.NewFileWriter()
	if flagDryRun {
		writer = storage.NewDryRunWriter(out)
	}

	runner := pipeline.NewRunner(crawler, fetcher, store, writer, log, m)
	summary, runErr := runner.Run(commandContext(cmd), pipeline.Options{
		ListingURL: cfg.Source.ListingURL,
		DryRun:     flagDryRun,
		Force:      flagForce,
		Location:   loc,
	})

	if cfg.Metrics.File != "" {
		if err := m.WriteTextfile(cfg.Metrics.File); err != nil {
			log.Warn("Could not write metrics textfile", logger.Fields{"path": cfg.Metrics.File, "error": err.Error()})
		}
	}

	if runErr != nil {
		return runErr
	}

	if err := WriteSummary(out, summary, cfg.Dataset.Path, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// commandContext returns the command's context, or a background one when the
// command runs outside Execute
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Execute runs the CLI
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the root command and maps the outcome to an exit code
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}
