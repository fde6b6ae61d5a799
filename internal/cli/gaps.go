package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/truthgraph/internal/engine"
)

// NewGapsCommand creates the gaps command.
func NewGapsCommand(rootOpts *RootOptions) *cobra.Command {
	var scope engine.Scope
	var strict, recompute bool

	cmd := &cobra.Command{
		Use:   "gaps",
		Short: "Report missing required clause facts",
		Long: `List the clauses whose required fact slots are missing or only partially
filled, for one document or a whole family. Slots come from the slot
schema given with --schema or the schema config key.

With --recompute the stored slots are first recomputed against the current
schema, so a changed schema applies without re-ingesting.
With --strict the command exits 1 when any gap is found.

Examples:
  truthgraph gaps --schema contract.cue --document msa
  truthgraph gaps --schema contract.cue --family acme --recompute
  truthgraph gaps --family acme --strict`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireScope(scope); err != nil {
				return err
			}
			return runGaps(rootOpts, scope, strict, recompute, cmd)
		},
	}
	scopeFlags(cmd, &scope)
	cmd.Flags().BoolVar(&strict, "strict", false, "exit 1 when gaps are found")
	cmd.Flags().BoolVar(&recompute, "recompute", false, "recompute slots with the current schema first")
	return cmd
}

func runGaps(opts *RootOptions, scope engine.Scope, strict, recompute bool, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := commandContext(cmd)

	if recompute {
		if err := recomputeSlots(ctx, s.engine, scope); err != nil {
			return s.formatter.Fail("slot recomputation failed", err)
		}
	}

	var report engine.GapReport
	if scope.DocumentID != "" {
		report, err = s.engine.GapReport(ctx, scope.DocumentID)
	} else {
		report, err = s.engine.FamilyGapReport(ctx, scope.FamilyID)
	}
	if err != nil {
		return s.formatter.Fail("gap report failed", err)
	}

	if err := s.formatter.Render(report, func(w io.Writer) error { return report.Render(w) }); err != nil {
		return err
	}
	if strict && len(report.Gaps) > 0 {
		return NewExitError(ExitFailure, "gaps found")
	}
	return nil
}

func recomputeSlots(ctx context.Context, e *engine.Engine, scope engine.Scope) error {
	if scope.DocumentID != "" {
		return e.RecomputeSlots(ctx, scope.DocumentID)
	}
	order, err := e.FamilyOrder(ctx, scope.FamilyID)
	if err != nil {
		return err
	}
	for _, doc := range order.Documents() {
		if err := e.RecomputeSlots(ctx, doc.ID); err != nil {
			return err
		}
	}
	return nil
}
