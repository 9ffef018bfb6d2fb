package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/theirongolddev/allot/internal/model"
	"github.com/theirongolddev/allot/internal/source"
)

// Reasons an edit is rejected. A rejected edit leaves the tree unchanged.
var (
	ErrEmptyInput  = errors.New("empty input")
	ErrNotANumber  = errors.New("not a number")
	ErrNotFinite   = errors.New("value is not finite")
	ErrUnknownNode = errors.New("unknown node")
)

// Initialize validates a tree definition, aggregates it, captures the
// baseline from the aggregated values and computes the initial variances.
func Initialize(nodes []model.Node) ([]model.Node, model.Baseline, error) {
	if err := source.Validate(nodes); err != nil {
		return nil, nil, err
	}
	aggregated := Aggregate(nodes)
	baseline := BuildBaseline(aggregated)
	return RecalcVariance(aggregated, baseline), baseline, nil
}

// ParseRaw parses a raw edit value. Surrounding whitespace is ignored; the
// rest must be a complete, finite decimal number. Hex literals are rejected.
func ParseRaw(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrEmptyInput
	}
	if unsigned := strings.TrimLeft(s, "+-"); len(unsigned) > 1 && unsigned[0] == '0' && (unsigned[1] == 'x' || unsigned[1] == 'X') {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, raw)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %q", ErrNotFinite, raw)
		}
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrNotFinite, raw)
	}
	return v, nil
}

type editOptions struct {
	policy ZeroTotalPolicy
}

// EditOption tunes Evaluate.
type EditOption func(*editOptions)

// WithZeroTotal selects the zero-total distribution policy.
func WithZeroTotal(p ZeroTotalPolicy) EditOption {
	return func(o *editOptions) { o.policy = p }
}

// ApplyEdit applies one edit and restores the tree invariants. Malformed
// input or an unknown id returns nodes unchanged; no error is reported.
func ApplyEdit(nodes []model.Node, baseline model.Baseline, id, raw string, kind model.EditKind) []model.Node {
	updated, _ := Evaluate(nodes, baseline, model.EditRequest{ID: id, Raw: raw, Kind: kind})
	return updated
}

// Evaluate is ApplyEdit with a diagnostic outcome. On rejection the
// returned slice is the input slice itself and no recompute runs.
func Evaluate(nodes []model.Node, baseline model.Baseline, req model.EditRequest, opts ...EditOption) ([]model.Node, model.Outcome) {
	var o editOptions
	for _, opt := range opts {
		opt(&o)
	}

	parsed, err := ParseRaw(req.Raw)
	if err != nil {
		return nodes, model.Outcome{Err: err}
	}

	target, ok := model.Find(nodes, req.ID)
	if !ok {
		return nodes, model.Outcome{Err: fmt.Errorf("%w %q", ErrUnknownNode, req.ID)}
	}

	computed := parsed
	if req.Kind == model.EditPercent {
		computed = target.Value * (1 + parsed/100)
	}
	if math.IsNaN(computed) || math.IsInf(computed, 0) {
		return nodes, model.Outcome{Err: fmt.Errorf("%w: %s of %q overflows", ErrNotFinite, req.Kind, req.Raw)}
	}

	updated := replaceByID(nodes, req.ID, func(n model.Node) model.Node {
		return DistributeWith(n, computed, o.policy)
	})
	updated = Aggregate(updated)
	updated = RecalcVariance(updated, baseline)

	return updated, model.Outcome{Applied: true, Target: computed}
}

// replaceByID rebuilds the forest with every node matching id swapped for
// fn(node). Matched subtrees are not searched further.
func replaceByID(nodes []model.Node, id string, fn func(model.Node) model.Node) []model.Node {
	out := make([]model.Node, len(nodes))
	for i, n := range nodes {
		switch {
		case n.ID == id:
			out[i] = fn(n)
		case len(n.Children) > 0:
			n.Children = replaceByID(n.Children, id, fn)
			out[i] = n
		default:
			out[i] = n
		}
	}
	return out
}
