package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/truthgraph/internal/engine"
)

// ReachResult is the JSON form of the reach command.
type ReachResult struct {
	From    string                   `json:"from"`
	Clauses []engine.ReachableClause `json:"clauses"`
	Cycles  [][]string               `json:"cycles"`
}

// NewReachCommand creates the reach command.
func NewReachCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reach <clause-id>",
		Short: "List clauses reachable through cross-references",
		Long: `Follow resolved cross-references from a clause and list every clause
reached, once each, with its distance. Clauses on a reference cycle are
marked.

Example:
  truthgraph reach 9c1e...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReach(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runReach(opts *RootOptions, clauseID string, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := commandContext(cmd)

	clause, err := s.store.GetClause(ctx, clauseID)
	if err != nil {
		return s.formatter.Fail("reach failed", err)
	}
	doc, err := s.engine.Document(ctx, clause.DocumentID)
	if err != nil {
		return s.formatter.Fail("reach failed", err)
	}
	graph, err := s.engine.ReferenceGraph(ctx, doc.FamilyID)
	if err != nil {
		return s.formatter.Fail("reach failed", err)
	}
	reached, err := graph.Reachable(ctx, clauseID)
	if err != nil {
		return s.formatter.Fail("reach failed", err)
	}

	labels := make(map[string]string)
	clauses, err := s.store.FamilyClauses(ctx, doc.FamilyID)
	if err != nil {
		return s.formatter.Fail("reach failed", err)
	}
	for _, c := range clauses {
		labels[c.ID] = fmt.Sprintf("[%s] %s %s", c.DocumentID, c.SectionNumber, c.Heading)
	}

	cycles, err := graph.Cycles(ctx)
	if err != nil {
		return s.formatter.Fail("reach failed", err)
	}

	result := ReachResult{From: clauseID, Clauses: reached, Cycles: cycles}
	return s.formatter.Render(result, func(w io.Writer) error {
		for _, r := range reached {
			marker := ""
			if r.InCycle {
				marker = "  (cycle)"
			}
			fmt.Fprintf(w, "%d  %s%s\n", r.Depth, labels[r.ClauseID], marker)
		}
		return nil
	})
}
