// Package cmd implements the allot CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/theirongolddev/allot/internal/config"
	"github.com/theirongolddev/allot/internal/model"
	"github.com/theirongolddev/allot/internal/pipeline"
	"github.com/theirongolddev/allot/internal/source"
	"github.com/theirongolddev/allot/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagPlan     string
	flagPlansDir string
	flagNoCache  bool
	flagQuiet    bool
	flagVerbose  bool
	flagJSON     bool
)

// cfg and logger are set up once per invocation before any command runs.
var (
	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "allot",
	Short:         "Hierarchical budget allocation editor",
	Long:          "Edit any category of a budget tree; parents re-aggregate, children rebalance proportionally, and variance is tracked against the initial baseline.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "  Warning: %v (using defaults)\n", err)
		}
		cfg = loaded
		if flagPlansDir != "" {
			cfg.General.PlansDir = flagPlansDir
		}

		l, err := newLogger(cfg.Logging.Level, flagVerbose)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
	RunE: runShow,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagPlan, "plan", "f", "", "Plan file or name in the plans dir (default from config, else the built-in sample)")
	rootCmd.PersistentFlags().StringVar(&flagPlansDir, "plans-dir", "", "Directory holding named plan files")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip SQLite cache, reparse plan files")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging on stderr")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print JSON instead of tables")
}

// resolvePlan returns the plan selected by --plan, ALLOT_PLAN or the config,
// falling back to the built-in sample.
func resolvePlan() (path string, err error) {
	return config.ResolvePlanPath(cfg, flagPlan)
}

// loadPlan is the shared plan loading path used by all commands.
// Uses the SQLite cache when available.
func loadPlan() (model.Plan, error) {
	path, err := resolvePlan()
	if err != nil {
		return model.Plan{}, err
	}
	if path == "" {
		return source.SamplePlan(), nil
	}

	if !flagNoCache {
		cache, err := store.Open(pipeline.CachePath())
		if err != nil {
			logger.Debug("cache unavailable", zap.Error(err))
		} else {
			defer func() { _ = cache.Close() }()

			plan, hit, err := pipeline.LoadPlanWithCache(path, cache)
			if err == nil {
				logger.Debug("plan loaded", zap.String("path", path), zap.Bool("cache_hit", hit))
				return plan, nil
			}
			logger.Debug("cache-assisted load failed, reparsing", zap.Error(err))
		}
	}

	return pipeline.LoadPlan(path)
}

// newEngine loads the selected plan and builds an engine using the
// configured zero-total policy.
func newEngine() (*pipeline.Engine, error) {
	plan, err := loadPlan()
	if err != nil {
		return nil, err
	}

	policy, err := pipeline.ParseZeroTotalPolicy(cfg.Engine.ZeroTotal)
	if err != nil {
		return nil, fmt.Errorf("config [engine] zero_total: %w", err)
	}

	return pipeline.NewEngine(plan,
		pipeline.WithLogger(logger),
		pipeline.WithZeroTotalPolicy(policy),
	)
}
