package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/theirongolddev/allot/internal/cli"
	"github.com/theirongolddev/allot/internal/config"
	"github.com/theirongolddev/allot/internal/model"
	"github.com/theirongolddev/allot/internal/pipeline"
	"github.com/theirongolddev/allot/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List plan files in the plans directory",
	RunE:  runPlans,
}

func init() {
	rootCmd.AddCommand(plansCmd)
}

// loadPlanList scans the plans dir, through the cache unless --no-cache.
func loadPlanList(dir string) (*pipeline.LoadResult, error) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Scanning %s...\n", dir)
	}

	progressFn := func(current, total int) {
		if flagQuiet {
			return
		}
		if current%50 == 0 || current == total {
			fmt.Fprintf(os.Stderr, "\r  %s", cli.RenderProgressBar(current, total, 30))
		}
	}

	if !flagNoCache {
		cache, err := store.Open(pipeline.CachePath())
		if err != nil {
			if !flagQuiet {
				fmt.Fprintf(os.Stderr, "  Cache unavailable, doing full parse\n")
			}
			logger.Debug("cache open failed", zap.Error(err))
		} else {
			defer func() { _ = cache.Close() }()

			cr, err := pipeline.LoadPlansWithCache(dir, cache, progressFn)
			if err == nil {
				if !flagQuiet && cr.TotalFiles > 0 {
					cached, _ := cache.PlanCount()
					fmt.Fprintf(os.Stderr, "\r  %d cached + %d reparsed (%d pruned, %d in cache)    \n",
						cr.CacheHits, cr.Reparsed, cr.Pruned, cached)
				}
				return &cr.LoadResult, nil
			}
			if !flagQuiet {
				fmt.Fprintf(os.Stderr, "\n  Cache error, falling back to full parse\n")
			}
			logger.Debug("cache-assisted scan failed", zap.Error(err))
		}
	}

	result, err := pipeline.LoadPlans(dir, progressFn)
	if err != nil {
		return nil, err
	}
	if !flagQuiet && result.TotalFiles > 0 {
		fmt.Fprintf(os.Stderr, "\r  Parsed %d plan files    \n", result.ParsedFiles)
	}
	return result, nil
}

func runPlans(_ *cobra.Command, _ []string) error {
	dir := config.PlansDir(cfg)
	result, err := loadPlanList(dir)
	if err != nil {
		return err
	}

	if flagJSON {
		errs := make(map[string]string, len(result.FileErrors))
		for _, fe := range result.FileErrors {
			errs[fe.Path] = fe.Err.Error()
		}
		return printJSON(struct {
			Dir    string              `json:"dir"`
			Plans  []model.PlanSummary `json:"plans"`
			Errors map[string]string   `json:"errors,omitempty"`
		}{dir, result.Plans, errs})
	}

	if result.TotalFiles == 0 {
		fmt.Printf("\n  No plan files in %s\n", dir)
		fmt.Println("  Add a .toml, .json or .yaml plan there, or pass --plan <file>.")
		return nil
	}

	rows := make([][]string, 0, len(result.Plans))
	for _, p := range result.Plans {
		rel, err := filepath.Rel(dir, p.Path)
		if err != nil {
			rel = p.Path
		}
		rows = append(rows, []string{
			p.Name,
			rel,
			cli.FormatNumber(int64(p.Nodes)),
			cli.FormatNumber(int64(p.Leaves)),
			fmt.Sprintf("%d", p.Depth),
			cli.FormatValue(p.GrandTotal),
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Plans in %s", dir),
		Headers: []string{"Name", "File", "Nodes", "Leaves", "Depth", "Grand Total"},
		Rows:    rows,
	}))

	for _, fe := range result.FileErrors {
		fmt.Fprintf(os.Stderr, "  Skipped %s: %v\n", fe.Path, fe.Err)
	}
	return nil
}
