package cmd

import (
	"fmt"

	"github.com/theirongolddev/allot/internal/config"
	"github.com/theirongolddev/allot/internal/model"
	"github.com/theirongolddev/allot/internal/pipeline"
	"github.com/theirongolddev/allot/internal/tui"
	"github.com/theirongolddev/allot/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive allocation editor",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	theme.SetActive(cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	path, err := resolvePlan()
	if err != nil {
		return err
	}
	policy, err := pipeline.ParseZeroTotalPolicy(cfg.Engine.ZeroTotal)
	if err != nil {
		return fmt.Errorf("config [engine] zero_total: %w", err)
	}
	kind, err := model.ParseEditKind(cfg.General.DefaultEditKind)
	if err != nil {
		return fmt.Errorf("config [general] default_edit_kind: %w", err)
	}

	app := tui.NewApp(tui.Options{
		PlanPath:    path,
		UseCache:    !flagNoCache,
		Policy:      policy,
		DefaultKind: kind,
		NeedSetup:   !config.Exists(),
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
