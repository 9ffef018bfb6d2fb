package components

import (
	"strings"

	"github.com/theirongolddev/allot/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// StatusKind picks the color of the status bar message.
type StatusKind int

// Status message kinds.
const (
	StatusInfo StatusKind = iota
	StatusOK
	StatusError
)

// RenderStatusBar renders the bottom status bar: key hints on the left, the
// last message in the middle and revision info on the right.
func RenderStatusBar(width int, hints, message string, kind StatusKind, right string) string {
	t := theme.Active

	base := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	msgColor := t.TextPrimary
	switch kind {
	case StatusOK:
		msgColor = t.Green
	case StatusError:
		msgColor = t.Red
	}
	msgStyle := base.Foreground(msgColor)

	left := base.Render(" " + hints)
	mid := ""
	if message != "" {
		mid = msgStyle.Render("  " + message)
	}
	rightStr := ""
	if right != "" {
		rightStr = base.Render(right + " ")
	}

	// Drop the message first when space runs out.
	padding := width - lipgloss.Width(left) - lipgloss.Width(mid) - lipgloss.Width(rightStr)
	if padding < 0 {
		mid = ""
		padding = width - lipgloss.Width(left) - lipgloss.Width(rightStr)
	}
	if padding < 0 {
		padding = 0
	}

	return lipgloss.NewStyle().Width(width).Background(t.Surface).Render(
		left + mid + base.Render(strings.Repeat(" ", padding)) + rightStr,
	)
}
