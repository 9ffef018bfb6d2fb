package model

// Plan is a named initial tree definition loaded from a file or built in.
type Plan struct {
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	Nodes []Node `json:"nodes"`
}

// PlanSummary is the cached, listing-friendly view of a plan file.
type PlanSummary struct {
	Name       string  `json:"name"`
	Path       string  `json:"path"`
	Nodes      int     `json:"nodes"`
	Leaves     int     `json:"leaves"`
	Depth      int     `json:"depth"`
	GrandTotal float64 `json:"grand_total"` // after the initial aggregation pass
}
