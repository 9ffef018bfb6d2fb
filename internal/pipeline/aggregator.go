// Package pipeline implements the allocation recompute pipeline: bottom-up
// aggregation, baseline capture, variance, proportional distribution, and
// the edit orchestration that ties them together.
package pipeline

import "github.com/theirongolddev/allot/internal/model"

// Aggregate returns a copy of the forest in which every internal node's
// value is the rounded sum of its (already aggregated) children. Leaves are
// copied unchanged. The input is never modified.
func Aggregate(nodes []model.Node) []model.Node {
	if nodes == nil {
		return nil
	}
	out := make([]model.Node, len(nodes))
	for i, n := range nodes {
		out[i] = aggregateNode(n)
	}
	return out
}

func aggregateNode(n model.Node) model.Node {
	if n.IsLeaf() {
		return n
	}

	children := Aggregate(n.Children)
	var subtotal float64
	for _, c := range children {
		subtotal += c.Value
	}

	n.Value = Round2(subtotal)
	n.Children = children
	return n
}

// IsConsistent reports whether every internal node equals the rounded sum
// of its children, recursively.
func IsConsistent(nodes []model.Node) bool {
	for _, n := range nodes {
		if n.IsLeaf() {
			continue
		}
		var subtotal float64
		for _, c := range n.Children {
			subtotal += c.Value
		}
		if n.Value != Round2(subtotal) || !IsConsistent(n.Children) {
			return false
		}
	}
	return true
}
