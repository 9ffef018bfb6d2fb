// Package tui provides the interactive Bubble Tea allocation editor.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/allot/internal/config"
	"github.com/theirongolddev/allot/internal/model"
	"github.com/theirongolddev/allot/internal/pipeline"
	"github.com/theirongolddev/allot/internal/source"
	"github.com/theirongolddev/allot/internal/store"
	"github.com/theirongolddev/allot/internal/tui/components"
	"github.com/theirongolddev/allot/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// PlanLoadedMsg is sent when the plan has been read and the engine built.
type PlanLoadedMsg struct {
	Engine   *pipeline.Engine
	CacheHit bool
	LoadTime time.Duration
	Err      error
}

// EditResultMsg carries the outcome of one edit.
type EditResultMsg struct {
	Request  model.EditRequest
	Snapshot pipeline.Snapshot
	Outcome  model.Outcome
}

// Options configures a new App.
type Options struct {
	PlanPath    string // empty selects the built-in sample
	UseCache    bool
	Policy      pipeline.ZeroTotalPolicy
	DefaultKind model.EditKind
	NeedSetup   bool
}

const (
	tabTree = iota
	tabBaseline
	tabSettings
)

// App is the root Bubble Tea model.
type App struct {
	opts Options

	// Data
	engine   *pipeline.Engine
	snap     pipeline.Snapshot
	baseline model.Baseline
	rows     []model.Row
	history  []float64 // grand total per applied revision
	loaded   bool
	loadErr  error
	loadTime time.Duration
	cacheHit bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Tree tab state
	tree treeState

	// Settings tab state
	settings settingsState

	// Status line
	status     string
	statusKind components.StatusKind

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *SetupValues // shared across App copies; the form writes into it

	spinner spinner.Model
}

const (
	minTerminalWidth = 80
	maxContentWidth  = 160

	minContentHeight = 5 // minimum content area height
)

// loadConfigOrDefault loads config, returning defaults on error.
// This ensures the TUI can always start even if config is corrupted.
func loadConfigOrDefault() config.Config {
	cfg, err := config.Load()
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		opts:    opts,
		spinner: sp,
		tree:    treeState{kind: opts.DefaultKind},
		setupVals: &SetupValues{
			EditKind:  opts.DefaultKind.String(),
			ZeroTotal: opts.Policy.String(),
			Theme:     theme.Active.Name,
		},
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadPlanCmd(a.opts),
		a.spinner.Tick,
	)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.setupForm != nil || a.tree.editing {
			return a, nil
		}

		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if a.activeTab == tabTree {
				a.moveCursor(-1)
			}
			return a, nil

		case tea.MouseButtonWheelDown:
			if a.activeTab == tabTree {
				a.moveCursor(1)
			}
			return a, nil

		case tea.MouseButtonLeft:
			// Tab bar is the first line
			if msg.Action == tea.MouseActionPress && msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
			return a, nil
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case PlanLoadedMsg:
		a.loaded = true
		a.loadTime = msg.LoadTime
		if msg.Err != nil {
			a.loadErr = msg.Err
			return a, nil
		}
		a.engine = msg.Engine
		a.cacheHit = msg.CacheHit
		a.baseline = msg.Engine.Baseline()
		a.setSnapshot(msg.Engine.Snapshot())
		a.history = []float64{a.snap.GrandTotal}
		a.setStatus(fmt.Sprintf("Loaded %s (%d categories)", a.snap.Plan, len(a.rows)), components.StatusInfo)

		if a.opts.NeedSetup {
			a.setupForm = NewSetupForm(a.setupVals)
			if a.width > 0 {
				a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
			}
			return a, a.setupForm.Init()
		}
		return a, nil

	case EditResultMsg:
		if msg.Outcome.Applied {
			a.setSnapshot(msg.Snapshot)
			a.history = append(a.history, msg.Snapshot.GrandTotal)
			a.setStatus(fmt.Sprintf("%s → %s (rev %d)", msg.Request.ID, formatTarget(msg.Outcome.Target), msg.Snapshot.Revision), components.StatusOK)
		} else {
			a.setStatus(fmt.Sprintf("%s unchanged: %s", msg.Request.ID, msg.Outcome.Reason()), components.StatusError)
		}
		return a, nil

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	// Forward unhandled messages (cursor blinks, etc.)
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.tree.editing {
		var cmd tea.Cmd
		a.tree.input, cmd = a.tree.input.Update(msg)
		return a, cmd
	}
	if a.settings.editing {
		var cmd tea.Cmd
		a.settings.input, cmd = a.settings.input.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global: quit
	if key == "ctrl+c" {
		return a, tea.Quit
	}

	if !a.loaded {
		return a, nil
	}

	if a.loadErr != nil {
		if key == "q" || key == "esc" {
			return a, tea.Quit
		}
		return a, nil
	}

	// First-run setup wizard intercepts all keys
	if a.setupForm != nil {
		if key == "esc" {
			a.setupForm = nil
			a.setStatus("Setup skipped; run `allot setup` later", components.StatusInfo)
			return a, nil
		}
		return a.updateSetupForm(msg)
	}

	// Text inputs own the keyboard while editing
	if a.tree.editing {
		return a.updateEditInput(msg)
	}
	if a.settings.editing {
		return a.updateSettingsInput(msg)
	}

	// Help toggle
	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}

	// Dismiss help
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch a.activeTab {
	case tabTree:
		if m, cmd, handled := a.updateTreeKey(key); handled {
			return m, cmd
		}
	case tabSettings:
		if m, cmd, handled := a.updateSettingsKey(key); handled {
			return m, cmd
		}
	}

	if key == "q" {
		return a, tea.Quit
	}

	// Tab navigation
	switch key {
	case "left", "shift+tab":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
	default:
		if len(key) == 1 {
			if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
				a.activeTab = idx
			}
		}
	}
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		cfg := loadConfigOrDefault()
		a.setupVals.Apply(&cfg)
		if err := config.Save(cfg); err != nil {
			a.setStatus(fmt.Sprintf("Could not save config: %s", err), components.StatusError)
		} else {
			a.setStatus("Saved "+config.ConfigPath(), components.StatusOK)
		}
		theme.SetActive(cfg.Appearance.Theme)
		if kind, err := model.ParseEditKind(cfg.General.DefaultEditKind); err == nil {
			a.tree.kind = kind
		}
		a.setupForm = nil
		return a, nil

	case huh.StateAborted:
		a.setupForm = nil
		return a, nil
	}

	return a, cmd
}

func (a *App) setSnapshot(s pipeline.Snapshot) {
	a.snap = s
	a.rows = model.Flatten(s.Nodes)
	if a.tree.cursor >= len(a.rows) {
		a.tree.cursor = len(a.rows) - 1
	}
	if a.tree.cursor < 0 {
		a.tree.cursor = 0
	}
}

func (a *App) setStatus(msg string, kind components.StatusKind) {
	a.status = msg
	a.statusKind = kind
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}

	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}

	if !a.loaded {
		return a.viewLoading()
	}

	if a.loadErr != nil {
		return a.viewLoadError()
	}

	// First-run setup wizard
	if a.setupForm != nil {
		return a.setupForm.View()
	}

	if a.showHelp {
		return a.viewHelp()
	}

	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}

	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  allot needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)

	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)

	logoStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)

	subtitleStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ allot"))
	b.WriteString(subtitleStyle.Render(" · Budget Allocation"))
	b.WriteString("\n\n")
	b.WriteString(a.spinner.View())
	b.WriteString(subtitleStyle.Render(" Loading plan..."))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewLoadError() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Red).
		Background(t.Surface).
		Padding(1, 3).
		Width(min(a.width-4, 90))

	titleStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Bold(true)
	bodyStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	body := titleStyle.Render("Could not load plan") + "\n\n" +
		bodyStyle.Render(a.loadErr.Error()) + "\n\n" +
		dimStyle.Render("Press q to quit")

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(body),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)

	sectionStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface).
		Bold(true)

	keyStyle := lipgloss.NewStyle().
		Foreground(t.Cyan).
		Background(t.Surface).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	dimStyle := lipgloss.NewStyle().
		Foreground(t.TextDim).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")

	sections := []struct {
		title    string
		bindings []struct{ key, desc string }
	}{
		{"Navigation", []struct{ key, desc string }{
			{"t b x", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Move between categories"},
			{"g G", "First / last category"},
		}},
		{"Editing", []struct{ key, desc string }{
			{"a", "Set an absolute value"},
			{"p", "Change by percent"},
			{"Enter", "Edit (default kind) / Apply"},
			{"Esc", "Cancel edit"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionStyle.Render(sec.title))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w)

	hints := "[?]help  [q]uit"
	if a.activeTab == tabTree {
		hints = "[a]bs  [p]ct  [?]help  [q]uit"
	}
	right := fmt.Sprintf("%s · rev %d", a.snap.Plan, a.snap.Revision)
	statusBar := components.RenderStatusBar(w, hints, a.status, a.statusKind, right)

	headerH := lipgloss.Height(header)
	statusH := lipgloss.Height(statusBar)
	contentH := h - headerH - statusH
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var content string
	switch a.activeTab {
	case tabTree:
		content = a.renderTreeTab(cw, contentH)
	case tabBaseline:
		content = a.renderBaselineTab(cw)
	case tabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)

	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// ─── Commands ───────────────────────────────────────────────────

// loadPlanCmd reads the plan (through the cache when enabled) and builds
// the engine in the background.
func loadPlanCmd(opts Options) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()

		plan, hit, err := readPlan(opts)
		if err != nil {
			return PlanLoadedMsg{Err: err, LoadTime: time.Since(start)}
		}

		eng, err := pipeline.NewEngine(plan,
			pipeline.WithLogger(zap.NewNop()),
			pipeline.WithZeroTotalPolicy(opts.Policy),
		)
		return PlanLoadedMsg{Engine: eng, CacheHit: hit, Err: err, LoadTime: time.Since(start)}
	}
}

func readPlan(opts Options) (model.Plan, bool, error) {
	if opts.PlanPath == "" {
		return source.SamplePlan(), false, nil
	}

	if opts.UseCache {
		cache, err := store.Open(pipeline.CachePath())
		if err == nil {
			defer func() { _ = cache.Close() }()
			return pipeline.LoadPlanWithCache(opts.PlanPath, cache)
		}
	}

	plan, err := pipeline.LoadPlan(opts.PlanPath)
	return plan, false, err
}

// applyEditCmd runs one edit through the engine off the UI goroutine.
func applyEditCmd(eng *pipeline.Engine, req model.EditRequest) tea.Cmd {
	return func() tea.Msg {
		snap, out := eng.Apply(context.Background(), req)
		return EditResultMsg{Request: req, Snapshot: snap, Outcome: out}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

func newEditInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 64
	ti.Width = 24
	return ti
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		placed := lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
		result.WriteString(placed)
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)

		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW

		// Separator is one column between tabs.
		if i < len(components.Tabs)-1 {
			pos++
		}
	}
	return -1
}
