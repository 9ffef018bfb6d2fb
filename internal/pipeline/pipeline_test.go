package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/allot/internal/model"
)

func leaf(id string, v float64) model.Node {
	return model.Node{ID: id, Label: id, Value: v}
}

func parent(id string, v float64, children ...model.Node) model.Node {
	return model.Node{ID: id, Label: id, Value: v, Children: children}
}

// retail is the stale-seeded sample tree: Electronics says 1400 but its
// children sum to 1500.
func retail() []model.Node {
	return []model.Node{
		parent("electronics", 1400, leaf("phones", 800), leaf("laptops", 700)),
		parent("furniture", 1000, leaf("tables", 300), leaf("chairs", 700)),
	}
}

func mustFind(t *testing.T, nodes []model.Node, id string) model.Node {
	t.Helper()
	n, ok := model.Find(nodes, id)
	require.True(t, ok, "node %q not found", id)
	return n
}

func TestAggregate_FixesStaleSubtotals(t *testing.T) {
	in := retail()
	out := Aggregate(in)

	assert.Equal(t, 1500.0, mustFind(t, out, "electronics").Value)
	assert.Equal(t, 1000.0, mustFind(t, out, "furniture").Value)
	assert.True(t, IsConsistent(out))

	// Input untouched.
	assert.Equal(t, 1400.0, in[0].Value)
	assert.False(t, IsConsistent(in))
}

func TestAggregate_Deep(t *testing.T) {
	in := []model.Node{
		parent("root", 0,
			parent("a", 0, leaf("a1", 1.111), leaf("a2", 2.222)),
			parent("b", 0, parent("b1", 0, leaf("b11", 10), leaf("b12", 0.006))),
		),
	}
	out := Aggregate(in)

	assert.Equal(t, 3.33, mustFind(t, out, "a").Value)
	assert.Equal(t, 10.01, mustFind(t, out, "b1").Value)
	assert.Equal(t, 10.01, mustFind(t, out, "b").Value)
	assert.Equal(t, 13.34, mustFind(t, out, "root").Value)
	assert.True(t, IsConsistent(out))
}

func TestBuildBaseline(t *testing.T) {
	b := BuildBaseline(Aggregate(retail()))

	want := model.Baseline{
		"electronics": 1500, "phones": 800, "laptops": 700,
		"furniture": 1000, "tables": 300, "chairs": 700,
	}
	if diff := cmp.Diff(want, b); diff != "" {
		t.Errorf("BuildBaseline() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildBaseline_UsesChildBaselinesNotNodeValue(t *testing.T) {
	// Called on an unaggregated tree, internal baselines still come from
	// the children.
	b := BuildBaseline(retail())
	assert.Equal(t, 1500.0, b["electronics"])
}

func TestRecalcVariance(t *testing.T) {
	baseline := model.Baseline{"a": 800, "b": 0, "c": 300}
	nodes := []model.Node{
		parent("a", 1000, leaf("b", 5), leaf("c", 200)),
		leaf("missing", 42),
	}

	out := RecalcVariance(nodes, baseline)

	assert.Equal(t, "25.00", out[0].Variance)
	assert.Equal(t, "0.00", out[0].Children[0].Variance, "zero baseline")
	assert.Equal(t, "-33.33", out[0].Children[1].Variance)
	assert.Equal(t, "0.00", out[1].Variance, "id absent from baseline")
	assert.Empty(t, nodes[0].Variance, "input untouched")
}

func TestFormatVariance(t *testing.T) {
	tests := []struct {
		value, base float64
		want        string
	}{
		{1000, 800, "25.00"},
		{1700, 1500, "13.33"},
		{700, 700, "0.00"},
		{0, 700, "-100.00"},
		{5, 0, "0.00"},
		{1500.00001, 1500, "0.00"},
		{1499.99999, 1500, "0.00"},
		{1001.25, 1000, "0.13"},
		{998.75, 1000, "-0.13"},
	}
	for _, tt := range tests {
		if got := FormatVariance(tt.value, tt.base); got != tt.want {
			t.Errorf("FormatVariance(%v, %v) = %q, want %q", tt.value, tt.base, got, tt.want)
		}
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1176.470588, 1176.47},
		{823.529411, 823.53},
		{880.0000000000001, 880},
		{-0.001, 0},
		{2.675, 2.67}, // binary value sits just below 2.675
		{0.125, 0.13},
		{1.125, 1.13},
		{-0.125, -0.13},
		{0.875, 0.88},
		{0.005, 0.01}, // just above the half in binary
		{1e6 / 3, 333333.33},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDistribute_ProportionPreservation(t *testing.T) {
	n := parent("p", 300, leaf("a", 100), leaf("b", 200))

	out := Distribute(n, 900)

	assert.Equal(t, 900.0, out.Value)
	assert.Equal(t, Round2(100.0/300*900), out.Children[0].Value)
	assert.Equal(t, Round2(200.0/300*900), out.Children[1].Value)
	// Input untouched.
	assert.Equal(t, 100.0, n.Children[0].Value)
}

func TestDistribute_HalfCentShares(t *testing.T) {
	out := Distribute(parent("p", 8, leaf("x", 1), leaf("y", 7)), 1)

	assert.Equal(t, 0.13, out.Children[0].Value)
	assert.Equal(t, 0.88, out.Children[1].Value)
}

func TestDistribute_Leaf(t *testing.T) {
	out := Distribute(leaf("x", 5), 12.3456)
	assert.Equal(t, 12.35, out.Value)
}

func TestDistribute_UsesPreEditSharesPerLevel(t *testing.T) {
	n := parent("root", 100,
		parent("a", 75, leaf("a1", 25), leaf("a2", 50)),
		leaf("b", 25),
	)

	out := Distribute(n, 200)

	a := mustFind(t, []model.Node{out}, "a")
	assert.Equal(t, 150.0, a.Value)
	assert.Equal(t, 50.0, mustFind(t, []model.Node{out}, "a1").Value)
	assert.Equal(t, 100.0, mustFind(t, []model.Node{out}, "a2").Value)
	assert.Equal(t, 50.0, mustFind(t, []model.Node{out}, "b").Value)
}

func TestDistribute_ZeroTotalKeep(t *testing.T) {
	n := parent("p", 0, leaf("a", 0), leaf("b", 0))

	out := Distribute(n, 500)

	assert.Equal(t, 500.0, out.Value)
	assert.Equal(t, 0.0, out.Children[0].Value)
	assert.Equal(t, 0.0, out.Children[1].Value)
	// After aggregation the new value vanishes.
	assert.Equal(t, 0.0, Aggregate([]model.Node{out})[0].Value)
}

func TestDistribute_ZeroTotalEqualSplit(t *testing.T) {
	n := parent("p", 0, leaf("a", 0), leaf("b", 0), parent("c", 0, leaf("c1", 0), leaf("c2", 0)))

	out := DistributeWith(n, 100, ZeroTotalEqualSplit)

	assert.Equal(t, 33.33, out.Children[0].Value)
	assert.Equal(t, 33.33, out.Children[1].Value)
	assert.Equal(t, 33.33, out.Children[2].Value)
	assert.Equal(t, 16.66, out.Children[2].Children[0].Value) // 33.33/2 sits just below 16.665
}

func TestParseZeroTotalPolicy(t *testing.T) {
	p, err := ParseZeroTotalPolicy("equal")
	require.NoError(t, err)
	assert.Equal(t, ZeroTotalEqualSplit, p)

	p, err = ParseZeroTotalPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ZeroTotalKeep, p)

	_, err = ParseZeroTotalPolicy("spread")
	assert.Error(t, err)
}
