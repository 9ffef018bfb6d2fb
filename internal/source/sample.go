package source

import (
	_ "embed"

	"github.com/theirongolddev/allot/internal/model"
)

//go:embed sample.toml
var sampleTOML []byte

// SampleName is the name of the built-in plan.
const SampleName = "sample"

// SamplePlan returns the built-in demo plan. Its parents are deliberately
// seeded with stale subtotals that the initial aggregation corrects.
func SamplePlan() model.Plan {
	p, err := Parse(sampleTOML, FormatTOML)
	if err != nil {
		panic("source: embedded sample plan is invalid: " + err.Error())
	}
	if p.Name == "" {
		p.Name = SampleName
	}
	return p
}
