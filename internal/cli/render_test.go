package cli

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/allot/internal/model"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func sampleTree() ([]model.Node, model.Baseline) {
	nodes := []model.Node{
		{ID: "electronics", Label: "Electronics", Value: 1700, Variance: "13.33", Children: []model.Node{
			{ID: "phones", Label: "Phones", Value: 1000, Variance: "25.00"},
			{ID: "laptops", Label: "Laptops", Value: 700, Variance: "0.00"},
		}},
		{ID: "furniture", Label: "Furniture", Value: 1000, Variance: "0.00"},
	}
	baseline := model.Baseline{"electronics": 1500, "phones": 800, "laptops": 700, "furniture": 1000}
	return nodes, baseline
}

func TestTreeRows(t *testing.T) {
	nodes, baseline := sampleTree()
	rows := TreeRows(nodes, baseline)

	require.Len(t, rows, 6)
	assert.Equal(t, []string{"├─ Electronics", "electronics", "1,700.00", "1,500.00", "+200.00", "+13.33%"}, rows[0])
	assert.Equal(t, "│  ├─ Phones", rows[1][0])
	assert.Equal(t, "│  └─ Laptops", rows[2][0])
	assert.Equal(t, "└─ Furniture", rows[3][0])
	assert.Equal(t, []string{"---"}, rows[4])
	assert.Equal(t, []string{"Grand Total", "", "2,700.00", "2,500.00", "+200.00", ""}, rows[5])
}

func TestRenderTreeAlignsUnicodeCells(t *testing.T) {
	nodes, baseline := sampleTree()
	out := RenderTree("Retail", nodes, baseline)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Greater(t, len(lines), 3)
	assert.Contains(t, lines[0], "Retail")

	width := lipgloss.Width(lines[1])
	for _, l := range lines[1:] {
		assert.Equal(t, width, lipgloss.Width(l), "line %q", l)
	}
	assert.Contains(t, out, "Grand Total")
	assert.Contains(t, out, "+25.00%")
}

func TestRenderBaseline(t *testing.T) {
	nodes, baseline := sampleTree()
	out := RenderBaseline("", nodes, baseline)

	assert.Contains(t, out, "  phones")
	assert.Contains(t, out, "1,500.00")
}

func TestRenderTableEmpty(t *testing.T) {
	assert.Empty(t, RenderTable(Table{}))
}

func TestRenderProgressBar(t *testing.T) {
	assert.Empty(t, RenderProgressBar(1, 0, 10))
	assert.Contains(t, RenderProgressBar(5, 10, 10), "5/10")
}
