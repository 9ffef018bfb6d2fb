package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/allot/internal/config"
	"github.com/theirongolddev/allot/internal/model"
	"github.com/theirongolddev/allot/internal/pipeline"
	"github.com/theirongolddev/allot/internal/tui/components"
	"github.com/theirongolddev/allot/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	settingsFieldTheme = iota
	settingsFieldZeroTotal
	settingsFieldEditKind
	settingsFieldPlansDir
	settingsFieldDefaultPlan
	settingsFieldCount // sentinel
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool  // flash "saved" message briefly
	saveErr error // non-nil if last save or validation failed
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50
	return ti
}

func (a App) updateSettingsKey(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "j", "down":
		if a.settings.cursor < settingsFieldCount-1 {
			a.settings.cursor++
		}
	case "k", "up":
		if a.settings.cursor > 0 {
			a.settings.cursor--
		}
	case "enter":
		m, cmd := a.settingsStartEdit()
		return m, cmd, true
	default:
		return a, nil, false
	}
	return a, nil, true
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd) {
	cfg := loadConfigOrDefault()
	a.settings.editing = true
	a.settings.saved = false
	a.settings.saveErr = nil

	ti := newSettingsInput()

	switch a.settings.cursor {
	case settingsFieldTheme:
		ti.Placeholder = strings.Join(theme.Names(), ", ")
		ti.SetValue(cfg.Appearance.Theme)
	case settingsFieldZeroTotal:
		ti.Placeholder = "keep or equal"
		ti.SetValue(cfg.Engine.ZeroTotal)
	case settingsFieldEditKind:
		ti.Placeholder = "absolute or percent"
		ti.SetValue(cfg.General.DefaultEditKind)
	case settingsFieldPlansDir:
		ti.Placeholder = config.PlansDir(cfg)
		ti.SetValue(cfg.General.PlansDir)
	case settingsFieldDefaultPlan:
		ti.Placeholder = "sample, a name in the plans dir, or a path"
		ti.SetValue(cfg.General.DefaultPlan)
	}

	ti.Focus()
	a.settings.input = ti
	return a, ti.Cursor.BlinkCmd()
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.settingsSave()
		a.settings.editing = false
		a.settings.saved = a.settings.saveErr == nil
		return a, nil
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

// settingsSave validates the edited field and writes the config file.
// Engine settings apply to the next loaded plan; the edit kind applies now.
func (a *App) settingsSave() {
	cfg := loadConfigOrDefault()
	val := strings.TrimSpace(a.settings.input.Value())

	switch a.settings.cursor {
	case settingsFieldTheme:
		found := false
		for _, name := range theme.Names() {
			if name == val {
				found = true
				break
			}
		}
		if !found {
			a.settings.saveErr = fmt.Errorf("unknown theme %q", val)
			return
		}
		cfg.Appearance.Theme = val
		theme.SetActive(val)
	case settingsFieldZeroTotal:
		p, err := pipeline.ParseZeroTotalPolicy(val)
		if err != nil {
			a.settings.saveErr = err
			return
		}
		cfg.Engine.ZeroTotal = p.String()
	case settingsFieldEditKind:
		k, err := model.ParseEditKind(val)
		if err != nil {
			a.settings.saveErr = err
			return
		}
		cfg.General.DefaultEditKind = k.String()
		a.tree.kind = k
	case settingsFieldPlansDir:
		cfg.General.PlansDir = val
	case settingsFieldDefaultPlan:
		cfg.General.DefaultPlan = val
	}

	a.settings.saveErr = config.Save(cfg)
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active
	cfg := loadConfigOrDefault()

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	orNotSet := func(s string) string {
		if s == "" {
			return "(not set)"
		}
		return s
	}

	fields := []struct {
		label string
		value string
	}{
		{"Theme", cfg.Appearance.Theme},
		{"Zero-total policy", cfg.Engine.ZeroTotal},
		{"Default edit kind", cfg.General.DefaultEditKind},
		{"Plans directory", config.PlansDir(cfg)},
		{"Default plan", orNotSet(cfg.General.DefaultPlan)},
	}

	var formBody strings.Builder
	for i, f := range fields {
		if a.settings.editing && i == a.settings.cursor {
			formBody.WriteString(markerStyle.Render("▸ "))
			formBody.WriteString(accentStyle.Render(fmt.Sprintf("%-18s ", f.label)))
			formBody.WriteString(a.settings.input.View())
			formBody.WriteString("\n")
			continue
		}

		if i == a.settings.cursor {
			marker := markerStyle.Render("▸ ")
			label := selectedLabelStyle.Render(fmt.Sprintf("%-18s ", f.label+":"))
			value := selectedStyle.Render(f.value)
			formBody.WriteString(marker)
			formBody.WriteString(label)
			formBody.WriteString(value)
			usedWidth := lipgloss.Width(marker) + lipgloss.Width(label) + lipgloss.Width(value)
			if padLen := components.CardInnerWidth(cw) - usedWidth; padLen > 0 {
				formBody.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", padLen)))
			}
		} else {
			formBody.WriteString(lipgloss.NewStyle().Background(t.Surface).Render("  "))
			formBody.WriteString(labelStyle.Render(fmt.Sprintf("%-18s ", f.label+":")))
			formBody.WriteString(valueStyle.Render(f.value))
		}
		formBody.WriteString("\n")
	}

	if a.settings.saveErr != nil {
		warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		formBody.WriteString("\n")
		formBody.WriteString(warnStyle.Render(fmt.Sprintf("Not saved: %s", a.settings.saveErr)))
	} else if a.settings.saved {
		formBody.WriteString("\n")
		formBody.WriteString(greenStyle.Render("Saved!"))
	}

	formBody.WriteString("\n")
	formBody.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit  [Esc] cancel"))

	planPath := a.opts.PlanPath
	if planPath == "" {
		planPath = "(built-in sample)"
	}
	cacheState := "miss"
	if a.cacheHit {
		cacheState = "hit"
	}
	if !a.opts.UseCache {
		cacheState = "disabled"
	}

	var infoBody strings.Builder
	infoBody.WriteString(labelStyle.Render("Plan file:       ") + valueStyle.Render(planPath) + "\n")
	infoBody.WriteString(labelStyle.Render("Active policy:   ") + valueStyle.Render(a.opts.Policy.String()) + "\n")
	infoBody.WriteString(labelStyle.Render("Cache:           ") + valueStyle.Render(cacheState) + "\n")
	infoBody.WriteString(labelStyle.Render("Load time:       ") + valueStyle.Render(fmt.Sprintf("%.0fms", float64(a.loadTime.Microseconds())/1000)) + "\n")
	infoBody.WriteString(labelStyle.Render("Config file:     ") + valueStyle.Render(config.ConfigPath()))

	var b strings.Builder
	b.WriteString(components.ContentCard("Settings", formBody.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("Session", infoBody.String(), cw))

	return b.String()
}
