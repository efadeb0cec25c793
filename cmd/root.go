package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/jobmetrics/internal/cache"
	"github.com/theirongolddev/jobmetrics/internal/cli"
	"github.com/theirongolddev/jobmetrics/internal/config"
	"github.com/theirongolddev/jobmetrics/internal/logger"
	"github.com/theirongolddev/jobmetrics/internal/model"
	"github.com/theirongolddev/jobmetrics/internal/notify"
	"github.com/theirongolddev/jobmetrics/internal/pipeline"
	"github.com/theirongolddev/jobmetrics/internal/source"
	"github.com/theirongolddev/jobmetrics/internal/store"
)

var (
	flagConfig     string
	flagDataDir    string
	flagPM         string
	flagCustomer   string
	flagVendor     string
	flagStatus     string
	flagActiveOnly bool
	flagLimit      int
	flagJSON       bool
	flagQuiet      bool
	flagNoHistory  bool
	flagLogLevel   string
)

// cfg is the effective configuration, set before any command runs.
var (
	cfg       config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "jobmetrics",
	Short: "Construction job, AR and AP metrics",
	Long: "Compute job profitability, backlog, billing position and AR/AP aging\n" +
		"from accounting extracts, and answer structured queries over them.",
	SilenceUsage:       true,
	PersistentPreRunE:  initRuntime,
	PersistentPostRunE: closeRuntime,
	RunE:               runSummary,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default "+config.ConfigPath()+")")
	pf.StringVarP(&flagDataDir, "data-dir", "d", "", "Directory holding the extract files")
	pf.StringVarP(&flagPM, "pm", "p", "", "Filter to project manager (substring match)")
	pf.StringVarP(&flagCustomer, "customer", "c", "", "Filter to customer (substring match)")
	pf.StringVar(&flagVendor, "vendor", "", "Filter to vendor (substring match)")
	pf.StringVar(&flagStatus, "status", "", "Filter jobs by status (Active, Closed, Inactive, Overhead)")
	pf.BoolVarP(&flagActiveOnly, "active-only", "a", false, "Only include Active jobs")
	pf.IntVarP(&flagLimit, "limit", "n", 25, "Maximum rows to show (0 for all)")
	pf.BoolVar(&flagJSON, "json", false, "Print JSON instead of tables")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	pf.BoolVar(&flagNoHistory, "no-history", false, "Don't record this refresh in the history database")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
}

// initRuntime loads .env, the config file and flag overrides, then installs the logger.
func initRuntime(_ *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	var err error
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if flagDataDir != "" {
		cfg.General.DataDir = flagDataDir
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagNoHistory {
		cfg.History.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logCloser, err = logger.Setup(cfg.Logging)
	return err
}

func closeRuntime(_ *cobra.Command, _ []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

// reinstallLogger applies a changed cfg.Logging.
func reinstallLogger() error {
	if logCloser != nil {
		_ = logCloser.Close()
	}
	var err error
	logCloser, err = logger.Setup(cfg.Logging)
	return err
}

// runtime bundles a cache with the sinks its hooks write to.
type runtime struct {
	cache    *cache.Cache
	loader   source.DirLoader
	history  *store.History
	notifier *notify.Client
}

// Close releases the history database and broker connection.
func (r *runtime) Close() {
	if r.history != nil {
		_ = r.history.Close()
	}
	if r.notifier != nil {
		_ = r.notifier.Close()
	}
}

// openRuntime builds a cache over the configured extracts without loading it.
// History and AMQP failures are logged and the sink is skipped.
func openRuntime(extra ...cache.Option) *runtime {
	rt := &runtime{loader: source.NewDirLoader(cfg.General.DataDir, cfg.General.Files)}
	opts := []cache.Option{cache.WithRules(cfg.PipelineRules())}

	if cfg.History.Enabled {
		h, err := store.Open(cfg.HistoryPath())
		if err != nil {
			log.Warn().Err(err).Msg("refresh history unavailable")
		} else {
			rt.history = h
			opts = append(opts, cache.WithHook(h.Hook(logger.WithComponent("history"), cfg.History.Keep)))
		}
	}

	if cfg.AMQP.URL != "" {
		c, err := notify.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingPrefix)
		if err != nil {
			log.Warn().Err(err).Msg("refresh events disabled")
		} else {
			rt.notifier = c
			opts = append(opts, cache.WithHook(notify.Hook(c, logger.WithComponent("notify"))))
		}
	}

	rt.cache = cache.New(rt.loader, append(opts, extra...)...)
	return rt
}

// loadSnapshot is the shared loading path used by the reporting commands.
func loadSnapshot(ctx context.Context, trigger string) (*runtime, *cache.Snapshot, error) {
	rt := openRuntime()
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Loading extracts from %s...\n", cfg.General.DataDir)
	}

	res, err := rt.cache.Refresh(ctx, trigger)
	if err != nil {
		rt.Close()
		return nil, nil, err
	}

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Loaded %s jobs, %s AR and %s AP invoices in %s\n",
			cli.FormatNumber(int64(res.Counts.Jobs)),
			cli.FormatNumber(int64(res.Counts.AR)),
			cli.FormatNumber(int64(res.Counts.AP)),
			res.Duration.Round(time.Millisecond),
		)
		if res.Coerced > 0 {
			fmt.Fprintf(os.Stderr, "  %d non-numeric values read as zero\n", res.Coerced)
		}
	}
	return rt, res.Snapshot, nil
}

// jobFilter builds the job filter from the global flags.
func jobFilter() (pipeline.JobFilter, error) {
	f := pipeline.JobFilter{
		ProjectManager: flagPM,
		Customer:       flagCustomer,
	}
	if flagStatus != "" {
		st := model.ParseJobStatus(flagStatus)
		if st == model.StatusUnknown {
			return f, fmt.Errorf("unknown job status %q", flagStatus)
		}
		f.Status = st
	}
	if flagActiveOnly {
		f.Status = model.StatusActive
	}
	return f, nil
}

// limitRows applies --limit. Zero or negative shows everything.
func limitRows[T any](rows []T) []T {
	if flagLimit > 0 && len(rows) > flagLimit {
		return rows[:flagLimit]
	}
	return rows
}
