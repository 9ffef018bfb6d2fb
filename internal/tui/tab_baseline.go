package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/allot/internal/cli"
	"github.com/theirongolddev/allot/internal/tui/components"
	"github.com/theirongolddev/allot/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderBaselineTab(cw int) string {
	t := theme.Active

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	// Top-level categories against their frozen values
	items := make([]components.BarItem, 0, len(a.snap.Nodes))
	for _, n := range a.snap.Nodes {
		items = append(items, components.BarItem{
			Label:    n.Label,
			Value:    n.Value,
			Baseline: a.baseline[n.ID],
		})
	}
	innerW := components.CardInnerWidth(cw)
	bars := components.ComparisonBars(items, innerW)
	halves := components.LayoutRow(cw, 2)

	// Grand total history
	var hist strings.Builder
	hist.WriteString(components.Sparkline(a.history, t.Accent))
	hist.WriteString("\n")
	if n := len(a.history); n > 0 {
		hist.WriteString(labelStyle.Render("first ") + valueStyle.Render(cli.FormatValue(a.history[0])))
		hist.WriteString(labelStyle.Render("  latest ") + valueStyle.Render(cli.FormatValue(a.history[n-1])))
		hist.WriteString(labelStyle.Render(fmt.Sprintf("  %d revisions", n-1)))
	}

	// Leaves moved off their baseline
	var leaves, moved int
	for _, r := range a.rows {
		if !r.Node.IsLeaf() {
			continue
		}
		leaves++
		if r.Node.Value != a.baseline[r.Node.ID] {
			moved++
		}
	}
	hist.WriteString("\n\n")
	hist.WriteString(labelStyle.Render(fmt.Sprintf("Leaves off baseline (%d/%d)", moved, leaves)))
	hist.WriteString("\n")
	hist.WriteString(components.ProgressBar(components.ShareOf(float64(moved), float64(leaves)), max(10, halves[0]-12)))

	// Frozen baseline listing
	var list strings.Builder
	idW := 0
	for _, r := range a.rows {
		idW = max(idW, lipgloss.Width(r.Node.ID)+2*r.Depth)
	}
	for i, r := range a.rows {
		id := strings.Repeat("  ", r.Depth) + r.Node.ID
		fmt.Fprintf(&list, "%s %s", labelStyle.Render(fmt.Sprintf("%-*s", idW, id)),
			valueStyle.Render(fmt.Sprintf("%14s", cli.FormatValue(a.baseline[r.Node.ID]))))
		if i < len(a.rows)-1 {
			list.WriteString("\n")
		}
	}
	if len(a.rows) == 0 {
		list.WriteString(dimStyle.Render("No categories"))
	}

	var b strings.Builder
	b.WriteString(components.ContentCard("Current vs Baseline", bars, cw))
	b.WriteString("\n")
	b.WriteString(components.CardRow([]string{
		components.ContentCard("Grand Total History", hist.String(), halves[0]),
		components.ContentCard("Frozen Baseline", list.String(), halves[1]),
	}))
	return b.String()
}
