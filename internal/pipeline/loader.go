package pipeline

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/allot/internal/model"
	"github.com/theirongolddev/allot/internal/source"
)

// LoadResult holds the output of a plan directory load.
type LoadResult struct {
	Plans       []model.PlanSummary
	TotalFiles  int
	ParsedFiles int
	FileErrors  []FileError
}

// FileError records a plan file that could not be parsed or validated.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return e.Err.Error() }

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

type parsed struct {
	plan     model.Plan
	format   source.Format
	baseline model.Baseline
	summary  model.PlanSummary
	err      error
}

// LoadPlan parses and validates a single plan file.
func LoadPlan(path string) (model.Plan, error) {
	return source.ParseFile(path)
}

// LoadPlans discovers and parses every plan file in plansDir.
// It uses a bounded worker pool for parallel parsing.
func LoadPlans(plansDir string, progressFn ProgressFunc) (*LoadResult, error) {
	files, err := source.ScanDir(plansDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", plansDir, err)
	}

	result := &LoadResult{TotalFiles: len(files)}
	if len(files) == 0 {
		return result, nil
	}

	for _, p := range parseAll(files, 0, len(files), progressFn) {
		if p.err != nil {
			result.FileErrors = append(result.FileErrors, FileError{Path: p.summary.Path, Err: p.err})
			continue
		}
		result.ParsedFiles++
		result.Plans = append(result.Plans, p.summary)
	}
	return result, nil
}

// parseAll parses files on a bounded worker pool. Results keep the order of
// files. offset and total only shape the progress reports.
func parseAll(files []source.DiscoveredFile, offset, total int, progressFn ProgressFunc) []parsed {
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make([]parsed, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = parseOne(files[idx])
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n)+offset, total)
				}
			}
		}()
	}

	wg.Wait()
	return results
}

func parseOne(f source.DiscoveredFile) parsed {
	plan, err := source.ParseFile(f.Path)
	if err != nil {
		return parsed{err: err, summary: model.PlanSummary{Name: f.Name, Path: f.Path}}
	}
	baseline := BuildBaseline(Aggregate(plan.Nodes))
	return parsed{
		plan:     plan,
		format:   f.Format,
		baseline: baseline,
		summary:  Summarize(plan, baseline),
	}
}

// Summarize builds the listing view of a plan from its initial baseline.
func Summarize(plan model.Plan, baseline model.Baseline) model.PlanSummary {
	shape := model.Shape(plan.Nodes)
	var total float64
	for _, n := range plan.Nodes {
		total += baseline[n.ID]
	}
	return model.PlanSummary{
		Name:       plan.Name,
		Path:       plan.Path,
		Nodes:      shape.Nodes,
		Leaves:     shape.Leaves,
		Depth:      shape.Depth,
		GrandTotal: Round2(total),
	}
}
