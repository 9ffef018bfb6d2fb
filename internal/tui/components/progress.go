package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/allot/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders a block progress bar followed by the percentage.
func ProgressBar(pct float64, width int) string {
	t := theme.Active
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	var barColor lipgloss.Color
	switch {
	case pct >= 0.8:
		barColor = t.AccentBright
	case pct >= 0.5:
		barColor = t.Accent
	default:
		barColor = t.Cyan
	}

	filledStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface)
	emptyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	b.WriteString(filledStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(emptyStyle.Render(strings.Repeat("░", width-filled)))

	return b.String() + spaceStyle.Render(" ") + pctStyle.Render(fmt.Sprintf("%.0f%%", pct*100))
}

// ShareOf returns part/whole clamped to [0, 1]; a zero or negative whole
// gives 0.
func ShareOf(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	pct := part / whole
	if pct < 0 {
		return 0
	}
	if pct > 1 {
		return 1
	}
	return pct
}

// ShareBar renders the share a node holds of its parent as a compact bar
// with a right-aligned percentage. width is the total rendered width.
func ShareBar(pct float64, width int) string {
	t := theme.Active

	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}

	barW := width - 5
	if barW < 4 {
		barW = 4
	}

	bar := progress.New(
		progress.WithSolidFill(string(t.Accent)),
		progress.WithWidth(barW),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	pctStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	return bar.ViewAs(pct) + pctStyle.Render(fmt.Sprintf("%4.0f%%", pct*100))
}

// VarianceColor returns green for growth, red for shrinkage and a muted
// color for no change.
func VarianceColor(sign int) lipgloss.Color {
	t := theme.Active
	switch {
	case sign > 0:
		return t.Green
	case sign < 0:
		return t.Red
	}
	return t.TextMuted
}
