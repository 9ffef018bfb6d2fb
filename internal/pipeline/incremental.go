package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/theirongolddev/allot/internal/model"
	"github.com/theirongolddev/allot/internal/source"
	"github.com/theirongolddev/allot/internal/store"
)

// CachedLoadResult extends LoadResult with cache metadata.
type CachedLoadResult struct {
	LoadResult
	CacheHits int
	Reparsed  int
	Pruned    int
}

// LoadPlansWithCache discovers plan files, diffs them against the cache,
// parses only changed files and drops cache rows for files that are gone.
func LoadPlansWithCache(plansDir string, cache *store.Cache, progressFn ProgressFunc) (*CachedLoadResult, error) {
	files, err := source.ScanDir(plansDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", plansDir, err)
	}

	result := &CachedLoadResult{LoadResult: LoadResult{TotalFiles: len(files)}}

	tracked, err := cache.GetTrackedFiles()
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	// Diff: partition into changed and unchanged
	var toReparse []source.DiscoveredFile
	unchanged := make(map[string]struct{})
	stats := make(map[string]store.FileInfo, len(files))

	for _, f := range files {
		info, err := os.Stat(f.Path)
		if err != nil {
			continue
		}
		fi := store.FileInfo{MtimeNs: info.ModTime().UnixNano(), SizeBytes: info.Size()}
		stats[f.Path] = fi

		if cached, ok := tracked[f.Path]; ok && cached == fi {
			unchanged[f.Path] = struct{}{}
		} else {
			toReparse = append(toReparse, f)
		}
	}

	result.CacheHits = len(unchanged)
	result.Reparsed = len(toReparse)

	// Prune rows for files under plansDir that no longer exist.
	prefix := filepath.Clean(plansDir) + string(filepath.Separator)
	for path := range tracked {
		if _, ok := stats[path]; ok || !strings.HasPrefix(path, prefix) {
			continue
		}
		if err := cache.DeletePlan(path); err == nil {
			result.Pruned++
		}
	}

	summaries := make(map[string]model.PlanSummary, len(files))

	if len(unchanged) > 0 {
		entries, err := cache.LoadAllPlans()
		if err != nil {
			return nil, fmt.Errorf("loading cached plans: %w", err)
		}
		for _, e := range entries {
			if _, ok := unchanged[e.Summary.Path]; ok {
				summaries[e.Summary.Path] = e.Summary
			}
		}
		if progressFn != nil {
			progressFn(result.CacheHits, result.TotalFiles)
		}
	}

	if len(toReparse) > 0 {
		for _, p := range parseAll(toReparse, result.CacheHits, result.TotalFiles, progressFn) {
			if p.err != nil {
				result.FileErrors = append(result.FileErrors, FileError{Path: p.summary.Path, Err: p.err})
				continue
			}
			summaries[p.plan.Path] = p.summary
			_ = cache.SavePlan(p.plan, string(p.format), p.baseline, stats[p.plan.Path])
		}
	}

	// Keep scan order.
	for _, f := range files {
		if s, ok := summaries[f.Path]; ok {
			result.Plans = append(result.Plans, s)
			result.ParsedFiles++
		}
	}

	return result, nil
}

// LoadPlanWithCache returns the plan at path, reusing the cached definition
// when the file's mtime and size are unchanged. hit reports a cache hit.
func LoadPlanWithCache(path string, cache *store.Cache) (plan model.Plan, hit bool, err error) {
	format, err := source.FormatFromPath(path)
	if err != nil {
		return model.Plan{}, false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return model.Plan{}, false, fmt.Errorf("reading plan: %w", err)
	}
	fi := store.FileInfo{MtimeNs: info.ModTime().UnixNano(), SizeBytes: info.Size()}

	tracked, err := cache.GetTrackedFiles()
	if err != nil {
		return model.Plan{}, false, fmt.Errorf("reading cache: %w", err)
	}
	if cached, ok := tracked[path]; ok && cached == fi {
		e, ok, err := cache.LoadPlan(path)
		if err == nil && ok {
			return e.Plan, true, nil
		}
	}

	plan, err = source.ParseFile(path)
	if err != nil {
		return model.Plan{}, false, err
	}
	_ = cache.SavePlan(plan, string(format), BuildBaseline(Aggregate(plan.Nodes)), fi)
	return plan, false, nil
}

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "allot")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "allot")
}

// CachePath returns the full path to the cache database.
func CachePath() string {
	return filepath.Join(CacheDir(), "plans.db")
}
