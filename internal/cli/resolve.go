package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/truthgraph/internal/engine"
	"github.com/roach88/truthgraph/internal/ir"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	var scope engine.Scope

	cmd := &cobra.Command{
		Use:   "resolve <term>",
		Short: "Resolve a defined term",
		Long: `Resolve a defined term in a document or family scope.

The search order is the document itself, the family's governing document,
the latest amendment, then the whole family. Tied candidates are reported
as ambiguous rather than picked.

Examples:
  truthgraph resolve "Notice Period" --document msa
  truthgraph resolve "Effective Date" --family acme --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireScope(scope); err != nil {
				return err
			}
			return runResolve(rootOpts, args[0], scope, cmd)
		},
	}
	scopeFlags(cmd, &scope)
	return cmd
}

func runResolve(opts *RootOptions, term string, scope engine.Scope, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	r, err := s.engine.Resolve(commandContext(cmd), term, scope)
	if err != nil {
		return s.formatter.Fail("resolve failed", err)
	}
	return s.formatter.Render(r, func(w io.Writer) error {
		return writeBindingResult(w, term, r)
	})
}

func writeBindingResult(w io.Writer, term string, r ir.BindingResult) error {
	switch r.Status {
	case ir.BindingResolved:
		b := r.Binding
		fmt.Fprintf(w, "%s = %s\n", b.Term, b.Value)
		fmt.Fprintf(w, "  tier:     %s\n", r.Tier)
		fmt.Fprintf(w, "  document: %s\n", b.DocumentID)
		fmt.Fprintf(w, "  scope:    %s\n", b.Scope)
		fmt.Fprintf(w, "  fact:     %s\n", b.FactID)
	case ir.BindingAmbiguous:
		fmt.Fprintf(w, "%s is ambiguous (%s tier, %d candidates)\n", term, r.Tier, len(r.Candidates))
		for _, c := range r.Candidates {
			fmt.Fprintf(w, "  %s = %s  [%s]\n", c.Term, c.Value, c.DocumentID)
		}
	default:
		fmt.Fprintf(w, "%s is unbound\n", term)
	}
	return nil
}
