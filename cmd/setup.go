package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/allot/internal/config"
	"github.com/theirongolddev/allot/internal/tui"
	"github.com/theirongolddev/allot/internal/tui/theme"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	vals := tui.SetupValues{
		PlansDir:    cfg.General.PlansDir,
		DefaultPlan: cfg.General.DefaultPlan,
		EditKind:    cfg.General.DefaultEditKind,
		ZeroTotal:   cfg.Engine.ZeroTotal,
		Theme:       cfg.Appearance.Theme,
	}

	if err := tui.NewSetupForm(&vals).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup canceled; nothing saved.")
			return nil
		}
		return fmt.Errorf("setup form: %w", err)
	}

	vals.Apply(&cfg)
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	theme.SetActive(cfg.Appearance.Theme)

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Printf("  Plans directory: %s\n", config.PlansDir(cfg))
	fmt.Println("  Run `allot setup` anytime to reconfigure.")
	fmt.Println()

	return nil
}
