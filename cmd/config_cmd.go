package cmd

import (
	"fmt"

	"github.com/theirongolddev/allot/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	if flagJSON {
		return printJSON(cfg)
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	defaultPlan := cfg.General.DefaultPlan
	if defaultPlan == "" {
		defaultPlan = config.SamplePlanName + " (built-in)"
	}

	fmt.Println("  [General]")
	fmt.Printf("    Plans directory:   %s\n", config.PlansDir(cfg))
	fmt.Printf("    Default plan:      %s\n", defaultPlan)
	fmt.Printf("    Default edit kind: %s\n", cfg.General.DefaultEditKind)
	fmt.Println()

	fmt.Println("  [Engine]")
	fmt.Printf("    Zero-total policy: %s\n", cfg.Engine.ZeroTotal)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:       %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Events buffer: %d\n", cfg.Daemon.EventsBuffer)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Logging]")
	fmt.Printf("    Level: %s\n", cfg.Logging.Level)
	fmt.Println()

	fmt.Printf("  Overrides: %s, %s\n", config.EnvPlan, config.EnvLogLevel)
	fmt.Println("  Run `allot setup` to reconfigure.")
	return nil
}
