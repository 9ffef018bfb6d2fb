package tui

import "testing"

func TestTabAtXMatchesTabWidths(t *testing.T) {
	names := []string{"Tree", "Baseline", "Settings"}
	for active := range names {
		a := App{activeTab: active}
		pos := 0

		for i := range names {
			w := tabWidthForTest(names, i, active)
			x := pos + w/2 // midpoint inside this tab
			if got := a.tabAtX(x); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, x, got, i)
			}
			pos += w
			if i < len(names)-1 {
				pos++ // separator
			}
		}
		if got := a.tabAtX(pos + 5); got != -1 {
			t.Fatalf("active=%d x=%d past the last tab -> %d, want -1", active, pos+5, got)
		}
	}
}

func tabWidthForTest(names []string, tabIdx, activeIdx int) int {
	w := len(names[tabIdx]) + 2 // horizontal padding in tab renderer
	if tabIdx == activeIdx {
		return w
	}
	if tabIdx == 2 {
		return w + 3 // inactive Settings appends "[x]"
	}
	return w + 2 // brackets around the shortcut letter
}
