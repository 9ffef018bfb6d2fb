package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/allot/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline renders a unicode sparkline from values, scaled between their
// minimum and maximum.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo

	style := lipgloss.NewStyle().Foreground(color).Background(t.Surface)

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := len(blocks) / 2
		if span > 0 {
			idx = int((v - lo) / span * float64(len(blocks)-1))
		}
		idx = max(0, min(idx, len(blocks)-1))
		buf.WriteRune(blocks[idx])
	}

	return style.Render(buf.String())
}

// BarItem is one category in a baseline comparison chart.
type BarItem struct {
	Label    string
	Value    float64
	Baseline float64
}

// ComparisonBars renders one horizontal bar per item scaled to the largest
// value or baseline. The baseline position is marked with │ so growth and
// shrinkage are visible at a glance.
func ComparisonBars(items []BarItem, width int) string {
	if len(items) == 0 {
		return ""
	}
	t := theme.Active

	labelW := 0
	peak := 0.0
	for _, it := range items {
		labelW = max(labelW, lipgloss.Width(it.Label))
		peak = max(peak, it.Value, it.Baseline)
	}
	labelW = min(labelW, 18)
	if peak <= 0 {
		peak = 1
	}

	barW := width - labelW - 12
	if barW < 10 {
		barW = 10
	}

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	markStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Bold(true)
	emptyStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	var b strings.Builder
	for i, it := range items {
		filled := int(ShareOf(it.Value, peak) * float64(barW))
		mark := int(ShareOf(it.Baseline, peak) * float64(barW))
		if mark >= barW {
			mark = barW - 1
		}

		sign := 0
		switch {
		case it.Value > it.Baseline:
			sign = 1
		case it.Value < it.Baseline:
			sign = -1
		}
		barStyle := lipgloss.NewStyle().Foreground(VarianceColor(sign))
		if sign == 0 {
			barStyle = barStyle.Foreground(t.Accent)
		}

		label := it.Label
		if lipgloss.Width(label) > labelW {
			label = string([]rune(label)[:labelW-1]) + "…"
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-*s ", labelW, label)))

		for x := 0; x < barW; x++ {
			switch {
			case x == mark:
				b.WriteString(markStyle.Render("│"))
			case x < filled:
				b.WriteString(barStyle.Render("█"))
			default:
				b.WriteString(emptyStyle.Render("·"))
			}
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf(" %9.2f", it.Value)))
		if i < len(items)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
