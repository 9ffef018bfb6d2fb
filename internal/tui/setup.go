package tui

import (
	"github.com/theirongolddev/allot/internal/config"
	"github.com/theirongolddev/allot/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// SetupValues holds the answers collected by the first-run wizard.
type SetupValues struct {
	PlansDir    string
	DefaultPlan string
	EditKind    string
	ZeroTotal   string
	Theme       string
}

// NewSetupForm builds the first-run wizard. Answers are written into vals
// as the user moves through the form. It is shared by the TUI and the
// setup command.
func NewSetupForm(vals *SetupValues) *huh.Form {
	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(t.Name, t.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to allot").
				Description("Edit any category of a budget tree and watch\nparents and children rebalance against a frozen baseline."),
			huh.NewInput().
				Title("Plans directory").
				Description("Where named plan files (.toml, .json, .yaml) live.").
				Placeholder(config.PlansDir(config.DefaultConfig())).
				Value(&vals.PlansDir),
			huh.NewInput().
				Title("Default plan").
				Description("A name in the plans directory or a file path. Empty uses the built-in sample.").
				Placeholder(config.SamplePlanName).
				Value(&vals.DefaultPlan),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default edit kind").
				Options(
					huh.NewOption("Absolute value", "absolute"),
					huh.NewOption("Percent change", "percent"),
				).
				Value(&vals.EditKind),
			huh.NewSelect[string]().
				Title("Editing a category whose children are all zero").
				Options(
					huh.NewOption("Keep children at zero", "keep"),
					huh.NewOption("Split the value equally", "equal"),
				).
				Value(&vals.ZeroTotal),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.Theme),
		),
	).WithShowHelp(true)
}

// Apply copies the wizard answers onto cfg. Empty answers keep the
// existing value.
func (v SetupValues) Apply(cfg *config.Config) {
	if v.PlansDir != "" {
		cfg.General.PlansDir = v.PlansDir
	}
	if v.DefaultPlan != "" {
		cfg.General.DefaultPlan = v.DefaultPlan
	}
	if v.EditKind != "" {
		cfg.General.DefaultEditKind = v.EditKind
	}
	if v.ZeroTotal != "" {
		cfg.Engine.ZeroTotal = v.ZeroTotal
	}
	if v.Theme != "" {
		cfg.Appearance.Theme = v.Theme
	}
}
