package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/theirongolddev/allot/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestCardRowHeightMatchesTallest(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	shortLines := len(strings.Split(shortCard, "\n"))
	tallLines := len(strings.Split(tallCard, "\n"))
	if shortLines >= tallLines {
		t.Fatal("Test setup error: short card should be shorter than tall card")
	}

	joined := CardRow([]string{tallCard, shortCard})
	lines := strings.Split(joined, "\n")
	if len(lines) != tallLines {
		t.Errorf("Joined height should match tallest card: got %d, want %d", len(lines), tallLines)
	}

	for i, line := range lines {
		if !strings.Contains(line, "\x1b[") {
			t.Errorf("Line %d has no ANSI styling: %q", i, line)
		}
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	theme.SetActive("flexoki-dark")

	row := MetricCardRow([]Metric{
		{Label: "Grand total", Value: "2,700.00", Delta: "+200.00", DeltaSign: 1},
		{Label: "Baseline", Value: "2,500.00"},
		{Label: "Revision", Value: "3"},
	}, 61)

	for i, line := range strings.Split(row, "\n") {
		if w := lipgloss.Width(line); w != 61 {
			t.Errorf("line %d width = %d, want 61", i, w)
		}
	}
}

func TestLayoutRow(t *testing.T) {
	got := LayoutRow(10, 3)
	want := []int{4, 3, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("LayoutRow(10, 3) = %v, want %v", got, want)
		}
	}
	if LayoutRow(10, 0) != nil {
		t.Fatal("LayoutRow with n=0 should be nil")
	}
}

func TestTabVisualWidth(t *testing.T) {
	theme.SetActive("flexoki-dark")

	for _, tab := range Tabs {
		if got, want := TabVisualWidth(tab, true), len(tab.Name)+2; got != want {
			t.Errorf("active %s width = %d, want %d", tab.Name, got, want)
		}
		// Inactive tabs add "[k]" around or after the shortcut letter.
		want := len(tab.Name) + 2 + 2
		if tab.KeyPos < 0 {
			want++
		}
		if got := TabVisualWidth(tab, false); got != want {
			t.Errorf("inactive %s width = %d, want %d", tab.Name, got, want)
		}
	}
}

func TestShareOf(t *testing.T) {
	tests := []struct {
		part, whole, want float64
	}{
		{50, 100, 0.5},
		{5, 0, 0},
		{-1, 10, 0},
		{20, 10, 1},
	}
	for _, tt := range tests {
		if got := ShareOf(tt.part, tt.whole); got != tt.want {
			t.Errorf("ShareOf(%v, %v) = %v, want %v", tt.part, tt.whole, got, tt.want)
		}
	}
}

func TestComparisonBarsMarksBaseline(t *testing.T) {
	theme.SetActive("terminal")
	out := ComparisonBars([]BarItem{
		{Label: "Electronics", Value: 1700, Baseline: 1500},
		{Label: "Furniture", Value: 1000, Baseline: 1000},
	}, 60)

	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	for _, l := range lines {
		if !strings.Contains(l, "│") {
			t.Errorf("missing baseline marker in %q", l)
		}
	}
	if ComparisonBars(nil, 60) != "" {
		t.Error("empty items should render nothing")
	}
}

func TestSparklineFlat(t *testing.T) {
	out := Sparkline([]float64{5, 5, 5}, theme.Active.Accent)
	if !strings.Contains(out, "▅▅▅") {
		t.Errorf("flat series should render mid blocks, got %q", out)
	}
}
