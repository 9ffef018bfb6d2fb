package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/theirongolddev/allot/internal/cli"
	"github.com/theirongolddev/allot/internal/model"
	"github.com/theirongolddev/allot/internal/pipeline"
	"github.com/theirongolddev/allot/internal/source"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Render the plan as a tree table with baseline and variance",
	RunE:  runShow,
}

var showFormat string

func init() {
	showCmd.Flags().StringVar(&showFormat, "format", "", "Export the aggregated plan as toml, json or yaml")
	rootCmd.AddCommand(showCmd)
}

func runShow(_ *cobra.Command, _ []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}

	snap := eng.Snapshot()
	if showFormat != "" {
		return exportPlan(os.Stdout, snap, showFormat)
	}
	if flagJSON {
		return printJSON(snap)
	}

	printTree(snap, eng)
	return nil
}

func printTree(snap pipeline.Snapshot, eng *pipeline.Engine) {
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("ALLOCATION  %s  rev %d", snap.Plan, snap.Revision)))
	fmt.Println()
	fmt.Print(cli.RenderTree("", snap.Nodes, eng.Baseline()))
}

// exportPlan writes the snapshot's tree as a plan file that parses back to
// the same values.
func exportPlan(w io.Writer, snap pipeline.Snapshot, format string) error {
	plan := model.Plan{Name: snap.Plan, Nodes: snap.Nodes}
	return source.Encode(w, plan, source.Format(strings.ToLower(strings.TrimSpace(format))))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
