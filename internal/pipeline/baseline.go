package pipeline

import "github.com/theirongolddev/allot/internal/model"

// BuildBaseline walks the forest post-order and records every node's
// aggregated value: leaves contribute their own value, internal nodes the
// rounded sum of their children's baselines.
//
// It is called once on the freshly aggregated tree; the result is never
// recomputed afterward.
func BuildBaseline(nodes []model.Node) model.Baseline {
	b := make(model.Baseline)
	recordBaseline(nodes, b)
	return b
}

func recordBaseline(nodes []model.Node, b model.Baseline) {
	for _, n := range nodes {
		if n.IsLeaf() {
			b[n.ID] = n.Value
			continue
		}
		recordBaseline(n.Children, b)
		var sum float64
		for _, c := range n.Children {
			sum += b[c.ID]
		}
		b[n.ID] = Round2(sum)
	}
}
