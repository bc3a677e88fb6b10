package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/analyzer"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/config"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/history"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/logging"
)

// version is set at build time via -ldflags
var version = "dev"

// app carries the state shared by every command once the config is loaded
type app struct {
	configPath string
	logLevel   string

	cfg  *config.Config
	lggr logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "nbhealth",
		Short: "Score the quality of Jupyter notebooks",
		Long: `nbhealth analyzes Jupyter notebooks and scores them on two categories:
builder mindset (formatting, structure, comments, conciseness, reusability,
advanced techniques, dataset joins) and business intelligence (visualization
types and formatting).

Configuration is read from --config (YAML) and NBHEALTH_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.lggr != nil {
				_ = a.lggr.Sync()
			}
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	f.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides log.level)")

	root.AddCommand(newAnalyzeCmd(a))
	root.AddCommand(newHistoryCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newConfigCmd(a))
	return root
}

// load reads and validates the configuration and builds the logger
func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	lggr, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.lggr = lggr
	return nil
}

// engine builds the analysis engine described by the configuration
func (a *app) engine() (*analyzer.Engine, error) {
	reg, err := a.cfg.Registry()
	if err != nil {
		return nil, err
	}
	return analyzer.NewEngine(reg,
		analyzer.WithThresholds(a.cfg.Thresholds),
		analyzer.WithParallelism(a.cfg.Analysis.Parallelism),
		analyzer.WithLogger(a.lggr),
	), nil
}

// openHistory opens the run history store
func (a *app) openHistory() (*history.Store, error) {
	store, err := history.Open(a.cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history at %s: %w", a.cfg.History.Path, err)
	}
	return store, nil
}
