package components

import (
	"strings"

	"github.com/theirongolddev/allot/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Tab represents a single tab in the tab bar.
type Tab struct {
	Name   string
	Key    rune
	KeyPos int // position of the shortcut letter in the name (-1 if not in name)
}

// Tabs defines all available tabs.
var Tabs = []Tab{
	{Name: "Tree", Key: 't', KeyPos: 0},
	{Name: "Baseline", Key: 'b', KeyPos: 0},
	{Name: "Settings", Key: 'x', KeyPos: -1}, // x is not in "Settings"
}

// tabPadding is the horizontal padding around every tab label.
const tabPadding = 1

func tabLabel(tab Tab, active bool) (plain string, styled func() string) {
	t := theme.Active

	activeStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.SurfaceHover).
		Bold(true).
		Padding(0, tabPadding)

	inactiveStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted)

	keyStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Bold(true)

	dimKeyStyle := lipgloss.NewStyle().
		Foreground(t.TextDim)

	pad := strings.Repeat(" ", tabPadding)

	if active {
		return pad + tab.Name + pad, func() string { return activeStyle.Render(tab.Name) }
	}

	if tab.KeyPos >= 0 && tab.KeyPos < len(tab.Name) {
		before := tab.Name[:tab.KeyPos]
		key := string(tab.Name[tab.KeyPos])
		after := tab.Name[tab.KeyPos+1:]
		return pad + before + "[" + key + "]" + after + pad, func() string {
			return pad + inactiveStyle.Render(before) +
				dimKeyStyle.Render("[") + keyStyle.Render(key) + dimKeyStyle.Render("]") +
				inactiveStyle.Render(after) + pad
		}
	}

	// Key not in name (e.g., "Settings" with 'x')
	return pad + tab.Name + "[" + string(tab.Key) + "]" + pad, func() string {
		return pad + inactiveStyle.Render(tab.Name) +
			dimKeyStyle.Render("[") + keyStyle.Render(string(tab.Key)) + dimKeyStyle.Render("]") + pad
	}
}

// TabVisualWidth returns the rendered width of a tab, used for mouse
// hitboxes.
func TabVisualWidth(tab Tab, active bool) int {
	plain, _ := tabLabel(tab, active)
	return lipgloss.Width(plain)
}

// RenderTabBar renders the tab bar with the given active index. Tabs are
// separated by a single column.
func RenderTabBar(activeIdx int, width int) string {
	t := theme.Active

	parts := make([]string, 0, len(Tabs))
	for i, tab := range Tabs {
		_, render := tabLabel(tab, i == activeIdx)
		parts = append(parts, render())
	}

	row := strings.Join(parts, " ")
	return lipgloss.NewStyle().
		Background(t.Surface).
		Width(width).
		Render(row)
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
