package pipeline

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/allot/internal/model"
)

// ZeroTotalPolicy decides how a new value is pushed into children whose
// prior values sum to zero, where proportional shares are undefined.
type ZeroTotalPolicy int

const (
	// ZeroTotalKeep divides by 1 instead of 0, so zero-valued children
	// stay at zero and the new value vanishes after re-aggregation.
	ZeroTotalKeep ZeroTotalPolicy = iota
	// ZeroTotalEqualSplit gives each child an equal share of the new value.
	ZeroTotalEqualSplit
)

func (p ZeroTotalPolicy) String() string {
	if p == ZeroTotalEqualSplit {
		return "equal"
	}
	return "keep"
}

// ParseZeroTotalPolicy accepts "keep" (or "") and "equal".
func ParseZeroTotalPolicy(s string) (ZeroTotalPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep":
		return ZeroTotalKeep, nil
	case "equal", "equal-split", "split":
		return ZeroTotalEqualSplit, nil
	}
	return ZeroTotalKeep, fmt.Errorf("unknown zero-total policy %q (want keep or equal)", s)
}

// Distribute sets the node to newValue and pushes the value down its
// subtree, giving each child the share it held of its parent's total before
// the edit. Shares are taken level by level from pre-edit values.
func Distribute(n model.Node, newValue float64) model.Node {
	return DistributeWith(n, newValue, ZeroTotalKeep)
}

// DistributeWith is Distribute with an explicit zero-total policy.
func DistributeWith(n model.Node, newValue float64, policy ZeroTotalPolicy) model.Node {
	out := n
	out.Value = Round2(newValue)
	if n.IsLeaf() {
		return out
	}

	var priorTotal float64
	for _, c := range n.Children {
		priorTotal += c.Value
	}

	children := make([]model.Node, len(n.Children))
	if priorTotal == 0 && policy == ZeroTotalEqualSplit {
		share := Round2(newValue / float64(len(n.Children)))
		for i, c := range n.Children {
			children[i] = DistributeWith(c, share, policy)
		}
		out.Children = children
		return out
	}

	divisor := priorTotal
	if divisor == 0 {
		divisor = 1
	}
	for i, c := range n.Children {
		proportion := c.Value / divisor
		children[i] = DistributeWith(c, Round2(proportion*newValue), policy)
	}
	out.Children = children
	return out
}
