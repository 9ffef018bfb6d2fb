package cmd

import (
	"fmt"

	"github.com/theirongolddev/allot/internal/cli"
	"github.com/theirongolddev/allot/internal/model"
	"github.com/theirongolddev/allot/internal/pipeline"
	"github.com/theirongolddev/allot/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Print the frozen baseline captured at initialization",
	RunE:  runBaseline,
}

func init() {
	rootCmd.AddCommand(baselineCmd)
}

func runBaseline(_ *cobra.Command, _ []string) error {
	plan, baseline, ok := cachedBaseline()
	if !ok {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		snap := eng.Snapshot()
		plan = model.Plan{Name: snap.Plan, Nodes: snap.Nodes}
		baseline = eng.Baseline()
	}

	if flagJSON {
		return printJSON(baseline)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("BASELINE  " + plan.Name))
	fmt.Println()
	fmt.Print(cli.RenderBaseline("", plan.Nodes, baseline))
	return nil
}

// cachedBaseline reads the baseline stored alongside a cached plan file,
// skipping engine initialization. It reports false when the cache is off,
// the sample plan is selected, or anything goes wrong.
func cachedBaseline() (model.Plan, model.Baseline, bool) {
	if flagNoCache {
		return model.Plan{}, nil, false
	}
	path, err := resolvePlan()
	if err != nil || path == "" {
		return model.Plan{}, nil, false
	}

	cache, err := store.Open(pipeline.CachePath())
	if err != nil {
		return model.Plan{}, nil, false
	}
	defer func() { _ = cache.Close() }()

	// Refreshes the row when the file changed since it was cached.
	plan, hit, err := pipeline.LoadPlanWithCache(path, cache)
	if err != nil {
		return model.Plan{}, nil, false
	}
	baseline, err := cache.LoadBaseline(path)
	if err != nil || len(baseline) == 0 {
		logger.Debug("cached baseline unavailable", zap.String("path", path), zap.Error(err))
		return model.Plan{}, nil, false
	}
	logger.Debug("baseline from cache", zap.String("path", path), zap.Bool("cache_hit", hit))
	return plan, baseline, true
}
