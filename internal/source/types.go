package source

import "github.com/theirongolddev/allot/internal/model"

// RawPlan is the on-disk shape of a plan definition. The same keys are used
// for TOML, JSON and YAML documents.
type RawPlan struct {
	Name  string    `toml:"name" json:"name" yaml:"name"`
	Nodes []RawNode `toml:"nodes" json:"nodes" yaml:"nodes"`
}

// RawNode is one category in a plan definition.
type RawNode struct {
	ID       string    `toml:"id" json:"id" yaml:"id"`
	Label    string    `toml:"label" json:"label" yaml:"label"`
	Value    float64   `toml:"value" json:"value" yaml:"value"`
	Children []RawNode `toml:"children,omitempty" json:"children,omitempty" yaml:"children,omitempty"`
}

// Format identifies a plan file encoding.
type Format string

// Supported plan encodings.
const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DiscoveredFile is a plan file found during directory scanning.
type DiscoveredFile struct {
	Path   string
	Name   string // file name without extension
	Format Format
}

func (r RawPlan) toModel() model.Plan {
	return model.Plan{Name: r.Name, Nodes: toNodes(r.Nodes)}
}

func toNodes(raw []RawNode) []model.Node {
	if len(raw) == 0 {
		return nil
	}
	nodes := make([]model.Node, len(raw))
	for i, r := range raw {
		nodes[i] = model.Node{
			ID:       r.ID,
			Label:    r.Label,
			Value:    r.Value,
			Children: toNodes(r.Children),
		}
	}
	return nodes
}

// FromModel converts a plan back into its on-disk shape.
func FromModel(p model.Plan) RawPlan {
	return RawPlan{Name: p.Name, Nodes: fromNodes(p.Nodes)}
}

func fromNodes(nodes []model.Node) []RawNode {
	if len(nodes) == 0 {
		return nil
	}
	raw := make([]RawNode, len(nodes))
	for i, n := range nodes {
		raw[i] = RawNode{ID: n.ID, Label: n.Label, Value: n.Value, Children: fromNodes(n.Children)}
	}
	return raw
}
