package pipeline

import "github.com/theirongolddev/allot/internal/model"

// RecalcVariance returns a copy of the forest with every node's Variance
// derived from its current value and the frozen baseline. Ids missing from
// the baseline are treated as a zero baseline.
func RecalcVariance(nodes []model.Node, baseline model.Baseline) []model.Node {
	if nodes == nil {
		return nil
	}
	out := make([]model.Node, len(nodes))
	for i, n := range nodes {
		n.Variance = FormatVariance(n.Value, baseline[n.ID])
		if len(n.Children) > 0 {
			n.Children = RecalcVariance(n.Children, baseline)
		}
		out[i] = n
	}
	return out
}
