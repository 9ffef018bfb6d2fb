// Package model defines domain types for allot allocation trees.
package model

// Node is one allocation category. Internal nodes derive Value from their
// children; Variance is always derived from Value and the frozen baseline.
type Node struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
	Variance string  `json:"variance"`
	Children []Node  `json:"children,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Baseline maps every node id to its aggregated value at initialization.
type Baseline map[string]float64

// Copy returns an independent copy of the baseline.
func (b Baseline) Copy() Baseline {
	out := make(Baseline, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Row is one node flattened into display order.
type Row struct {
	Node  Node
	Depth int
	Path  []string // ids from the root down to and including this node
}

// Find returns the first node with the given id in pre-order.
func Find(nodes []Node, id string) (Node, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
		if found, ok := Find(n.Children, id); ok {
			return found, true
		}
	}
	return Node{}, false
}

// Walk visits every node in pre-order with its depth. Returning false from
// fn stops the walk.
func Walk(nodes []Node, fn func(n Node, depth int) bool) {
	walk(nodes, 0, fn)
}

func walk(nodes []Node, depth int, fn func(Node, int) bool) bool {
	for _, n := range nodes {
		if !fn(n, depth) {
			return false
		}
		if !walk(n.Children, depth+1, fn) {
			return false
		}
	}
	return true
}

// Flatten returns the forest as display rows in pre-order.
func Flatten(nodes []Node) []Row {
	var rows []Row
	var visit func(ns []Node, depth int, prefix []string)
	visit = func(ns []Node, depth int, prefix []string) {
		for _, n := range ns {
			path := make([]string, len(prefix)+1)
			copy(path, prefix)
			path[len(prefix)] = n.ID
			rows = append(rows, Row{Node: n, Depth: depth, Path: path})
			visit(n.Children, depth+1, path)
		}
	}
	visit(nodes, 0, nil)
	return rows
}

// GrandTotal is the sum of the top-level node values.
func GrandTotal(nodes []Node) float64 {
	var total float64
	for _, n := range nodes {
		total += n.Value
	}
	return total
}

// Stats summarizes the shape of a forest.
type Stats struct {
	Nodes  int
	Leaves int
	Depth  int
}

// Shape counts nodes and leaves and measures the maximum depth (a single
// level of roots has depth 1).
func Shape(nodes []Node) Stats {
	var s Stats
	Walk(nodes, func(n Node, depth int) bool {
		s.Nodes++
		if n.IsLeaf() {
			s.Leaves++
		}
		if depth+1 > s.Depth {
			s.Depth = depth + 1
		}
		return true
	})
	return s
}
