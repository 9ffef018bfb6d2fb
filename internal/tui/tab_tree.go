package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/allot/internal/cli"
	"github.com/theirongolddev/allot/internal/model"
	"github.com/theirongolddev/allot/internal/pipeline"
	"github.com/theirongolddev/allot/internal/tui/components"
	"github.com/theirongolddev/allot/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// treeState tracks the tree tab cursor and the inline edit prompt.
type treeState struct {
	cursor   int
	kind     model.EditKind // default kind for Enter
	editing  bool
	editKind model.EditKind
	editID   string
	input    textinput.Model
}

func (a *App) moveCursor(delta int) {
	if len(a.rows) == 0 {
		return
	}
	a.tree.cursor = max(0, min(a.tree.cursor+delta, len(a.rows)-1))
}

// selectedRow returns the row under the cursor.
func (a App) selectedRow() (model.Row, bool) {
	if a.tree.cursor < 0 || a.tree.cursor >= len(a.rows) {
		return model.Row{}, false
	}
	return a.rows[a.tree.cursor], true
}

func (a App) updateTreeKey(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "j", "down":
		a.moveCursor(1)
	case "k", "up":
		a.moveCursor(-1)
	case "g", "home":
		a.tree.cursor = 0
	case "G", "end":
		a.tree.cursor = max(0, len(a.rows)-1)
	case "a":
		m, cmd := a.startEdit(model.EditAbsolute)
		return m, cmd, true
	case "p", "%":
		m, cmd := a.startEdit(model.EditPercent)
		return m, cmd, true
	case "enter":
		m, cmd := a.startEdit(a.tree.kind)
		return m, cmd, true
	default:
		return a, nil, false
	}
	return a, nil, true
}

func (a App) startEdit(kind model.EditKind) (tea.Model, tea.Cmd) {
	row, ok := a.selectedRow()
	if !ok {
		return a, nil
	}

	ti := newEditInput()
	if kind == model.EditPercent {
		ti.Placeholder = "+10 or -25"
		ti.Prompt = "% "
	} else {
		ti.Placeholder = cli.FormatValue(row.Node.Value)
		ti.Prompt = "= "
	}
	ti.Focus()

	a.tree.editing = true
	a.tree.editKind = kind
	a.tree.editID = row.Node.ID
	a.tree.input = ti
	return a, ti.Cursor.BlinkCmd()
}

func (a App) updateEditInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		req := model.EditRequest{
			ID:   a.tree.editID,
			Raw:  a.tree.input.Value(),
			Kind: a.tree.editKind,
		}
		a.tree.editing = false
		if a.engine == nil {
			return a, nil
		}
		return a, applyEditCmd(a.engine, req)
	case "esc":
		a.tree.editing = false
		a.setStatus("Edit canceled", components.StatusInfo)
		return a, nil
	}

	var cmd tea.Cmd
	a.tree.input, cmd = a.tree.input.Update(msg)
	return a, cmd
}

func formatTarget(v float64) string {
	return cli.FormatValue(pipeline.Round2(v))
}

// rowValues indexes the current value of every visible node by id.
func rowValues(rows []model.Row) map[string]float64 {
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.Node.ID] = r.Node.Value
	}
	return out
}

func (a App) renderTreeTab(cw, h int) string {
	t := theme.Active

	// Summary cards
	baseTotal := 0.0
	for _, n := range a.snap.Nodes {
		baseTotal += a.baseline[n.ID]
	}
	baseTotal = pipeline.Round2(baseTotal)
	delta := pipeline.Round2(a.snap.GrandTotal - baseTotal)
	deltaSign := 0
	switch {
	case delta > 0:
		deltaSign = 1
	case delta < 0:
		deltaSign = -1
	}

	shape := model.Shape(a.snap.Nodes)
	metrics := []components.Metric{
		{Label: "Grand Total", Value: cli.FormatValue(a.snap.GrandTotal), Delta: cli.FormatDelta(a.snap.GrandTotal, baseTotal) + " vs baseline", DeltaSign: deltaSign},
		{Label: "Baseline", Value: cli.FormatValue(baseTotal), Delta: "frozen at load"},
		{Label: "Categories", Value: fmt.Sprintf("%d", shape.Nodes), Delta: fmt.Sprintf("%d leaves · depth %d", shape.Leaves, shape.Depth)},
		{Label: "Revision", Value: fmt.Sprintf("%d", a.snap.Revision), Delta: fmt.Sprintf("%d edits this session", len(a.history)-1)},
	}
	cards := components.MetricCardRow(metrics, cw)

	// Tree table
	innerW := components.CardInnerWidth(cw)
	shareW := 14
	valueW := 14
	varW := 9
	idW := 14
	labelW := innerW - shareW - 2*valueW - varW - idW - 5
	if labelW < 12 {
		labelW = 12
	}

	headStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	selStyle := lipgloss.NewStyle().Background(t.SurfaceBright).Foreground(t.TextPrimary).Bold(true)

	var body strings.Builder
	fmt.Fprintf(&body, "%s %s %s %s %s %s\n",
		headStyle.Render(fmt.Sprintf("%-*s", labelW, "Category")),
		headStyle.Render(fmt.Sprintf("%-*s", idW, "ID")),
		headStyle.Render(fmt.Sprintf("%*s", valueW, "Value")),
		headStyle.Render(fmt.Sprintf("%*s", valueW, "Baseline")),
		headStyle.Render(fmt.Sprintf("%*s", varW, "Var")),
		headStyle.Render("Share"),
	)
	body.WriteString(dimStyle.Render(strings.Repeat("─", innerW)))
	body.WriteString("\n")

	// Rows visible below the cards, card borders, header and prompt.
	visible := h - lipgloss.Height(cards) - 6
	if visible < 3 {
		visible = 3
	}
	start := 0
	if a.tree.cursor >= visible {
		start = a.tree.cursor - visible + 1
	}
	end := min(len(a.rows), start+visible)

	values := rowValues(a.rows)
	for i := start; i < end; i++ {
		row := a.rows[i]
		n := row.Node

		marker := "•"
		if !n.IsLeaf() {
			marker = "▾"
		}
		label := strings.Repeat("  ", row.Depth) + marker + " " + n.Label
		label = truncStr(label, labelW)

		parentTotal := a.snap.GrandTotal
		if len(row.Path) > 1 {
			parentTotal = values[row.Path[len(row.Path)-2]]
		}
		share := components.ShareBar(components.ShareOf(n.Value, parentTotal), shareW)

		varStyle := lipgloss.NewStyle().Foreground(components.VarianceColor(cli.VarianceSign(n.Variance)))

		cells := []string{
			fmt.Sprintf("%-*s", labelW, label),
			fmt.Sprintf("%-*s", idW, truncStr(n.ID, idW)),
			fmt.Sprintf("%*s", valueW, cli.FormatValue(n.Value)),
			fmt.Sprintf("%*s", valueW, cli.FormatValue(a.baseline[n.ID])),
			fmt.Sprintf("%*s", varW, cli.FormatVariance(n.Variance)),
		}

		if i == a.tree.cursor {
			line := selStyle.Render(strings.Join(cells, " ")) + " " + share
			body.WriteString(line)
		} else {
			style := labelStyle
			if !n.IsLeaf() {
				style = style.Bold(true)
			}
			fmt.Fprintf(&body, "%s %s %s %s %s %s",
				style.Render(cells[0]),
				mutedStyle.Render(cells[1]),
				labelStyle.Render(cells[2]),
				mutedStyle.Render(cells[3]),
				varStyle.Render(cells[4]),
				share,
			)
		}
		body.WriteString("\n")
	}
	if len(a.rows) > visible {
		body.WriteString(dimStyle.Render(fmt.Sprintf("%d–%d of %d", start+1, end, len(a.rows))))
		body.WriteString("\n")
	}

	// Edit prompt
	if a.tree.editing {
		promptStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true)
		body.WriteString(promptStyle.Render(fmt.Sprintf("%s %s ", a.tree.editKind, a.tree.editID)))
		body.WriteString(a.tree.input.View())
	} else {
		body.WriteString(dimStyle.Render(fmt.Sprintf("[a] absolute  [p] percent  [Enter] %s", a.tree.kind)))
	}

	var b strings.Builder
	b.WriteString(cards)
	b.WriteString("\n")
	b.WriteString(components.ContentCard("Allocation · "+a.snap.Plan, body.String(), cw))
	return b.String()
}
