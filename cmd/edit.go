package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/theirongolddev/allot/internal/model"
	"github.com/theirongolddev/allot/internal/pipeline"

	"github.com/spf13/cobra"
)

var flagEditKind string

var editCmd = &cobra.Command{
	Use:   "edit ID=VALUE [ID=VALUE ...]",
	Short: "Apply edits in order and print the resulting tree",
	Long: `Apply one or more edits against a single engine, in order.

A trailing % makes an edit a percent change (phones=+10%, furniture=-25%);
otherwise --kind decides. Rejected edits leave the tree unchanged and are
reported on stderr.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVarP(&flagEditKind, "kind", "k", "", "Edit kind for values without %: absolute or percent (default from config)")
	rootCmd.AddCommand(editCmd)
}

// editResult pairs a request with its outcome for JSON output.
type editResult struct {
	ID      string `json:"id"`
	Value   string `json:"value"`
	Kind    string `json:"kind"`
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

func runEdit(cmd *cobra.Command, args []string) error {
	kindName := flagEditKind
	if kindName == "" {
		kindName = cfg.General.DefaultEditKind
	}
	kind, err := model.ParseEditKind(kindName)
	if err != nil {
		return err
	}

	reqs := make([]model.EditRequest, 0, len(args))
	for _, arg := range args {
		req, err := parseEditArg(arg, kind)
		if err != nil {
			return err
		}
		reqs = append(reqs, req)
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	snap, outcomes := eng.ApplyAll(ctx, reqs)

	results := make([]editResult, len(outcomes))
	for i, out := range outcomes {
		results[i] = editResult{
			ID:      reqs[i].ID,
			Value:   reqs[i].Raw,
			Kind:    reqs[i].Kind.String(),
			Applied: out.Applied,
			Reason:  out.Reason(),
		}
	}

	if flagJSON {
		return printJSON(struct {
			Snapshot pipeline.Snapshot `json:"snapshot"`
			Edits    []editResult      `json:"edits"`
		}{snap, results})
	}

	printTree(snap, eng)
	for _, r := range results {
		if !r.Applied {
			fmt.Fprintf(os.Stderr, "  Rejected %s=%s (%s): %s\n", r.ID, r.Value, r.Kind, r.Reason)
		}
	}
	return nil
}

// parseEditArg splits ID=VALUE. A trailing % on the value selects a
// percent edit regardless of def. The value itself is not validated here;
// malformed values become rejected edits.
func parseEditArg(arg string, def model.EditKind) (model.EditRequest, error) {
	id, raw, ok := strings.Cut(arg, "=")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return model.EditRequest{}, fmt.Errorf("edit %q is not ID=VALUE", arg)
	}

	kind := def
	trimmed := strings.TrimSpace(raw)
	if pct, found := strings.CutSuffix(trimmed, "%"); found {
		kind = model.EditPercent
		raw = pct
	}
	return model.EditRequest{ID: id, Raw: raw, Kind: kind}, nil
}
