package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/truthgraph/internal/engine"
	"github.com/roach88/truthgraph/internal/ir"
)

// NewEffectiveCommand creates the effective command.
func NewEffectiveCommand(rootOpts *RootOptions) *cobra.Command {
	var family, kind string

	cmd := &cobra.Command{
		Use:   "effective <entity-type>",
		Short: "Show the effective value of a fact across a family",
		Long: `Decide which fact of an entity type is authoritative across a contract
family: the latest amendment wins over the base agreement, which wins over
schedules. Equal-rank documents that disagree are reported as conflicting.

Examples:
  truthgraph effective notice_period --family acme
  truthgraph effective governing_law --family acme --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEffective(rootOpts, args[0], family, kind, cmd)
		},
	}
	cmd.Flags().StringVar(&family, "family", "", "contract family (required)")
	cmd.Flags().StringVar(&kind, "kind", string(ir.FactEntity), "fact kind")
	_ = cmd.MarkFlagRequired("family")
	return cmd
}

func runEffective(opts *RootOptions, key, family, kind string, cmd *cobra.Command) error {
	factKind, err := ir.ParseFactKind(kind)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --kind", err)
	}

	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	d, err := s.engine.EffectiveValue(commandContext(cmd), factKind, key, family)
	if err != nil {
		return s.formatter.Fail("effective value failed", err)
	}
	return s.formatter.Render(d, func(w io.Writer) error {
		switch d.Status {
		case engine.DecisionEffective:
			fmt.Fprintf(w, "%s = %s\n", key, d.Effective.Value)
			fmt.Fprintf(w, "  document: %s\n", d.Effective.DocumentID)
			fmt.Fprintf(w, "  source:   %s\n", d.Effective.SourceText)
		case engine.DecisionConflicting:
			fmt.Fprintf(w, "%s is conflicting\n", key)
			for _, f := range d.Conflicting {
				fmt.Fprintf(w, "  %s  [%s]\n", f.Value, f.DocumentID)
			}
		default:
			fmt.Fprintf(w, "%s has no value in family %s\n", key, family)
		}
		if d.Reason != "" {
			fmt.Fprintf(w, "  reason:   %s\n", d.Reason)
		}
		if opts.Verbose {
			for _, c := range d.Candidates {
				fmt.Fprintf(w, "  candidate %-12s %s  [%s]\n", c.Rank, c.Fact.Value, c.Fact.DocumentID)
			}
		}
		return nil
	})
}
