package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/truthgraph/internal/engine"
	"github.com/roach88/truthgraph/internal/ir"
)

// NewProvenanceCommand creates the provenance command.
func NewProvenanceCommand(rootOpts *RootOptions) *cobra.Command {
	var answerID string

	cmd := &cobra.Command{
		Use:   "provenance <inference-id>...",
		Short: "Show the provenance chain of an answer",
		Long: `Assemble the chain from the given inferences through the bindings and
facts they cite down to the source text. An answer whose chain has a
missing link is withheld and the command exits 1.

Example:
  truthgraph provenance inf-0001 inf-0002 --answer notice-question`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvenance(rootOpts, engine.Answer{ID: answerID, InferenceIDs: args}, cmd)
		},
	}
	cmd.Flags().StringVar(&answerID, "answer", "", "answer ID (generated when empty)")
	return cmd
}

func runProvenance(opts *RootOptions, answer engine.Answer, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	chain, err := s.engine.ChainFor(commandContext(cmd), answer)
	if err != nil {
		return s.formatter.Fail("answer withheld", err)
	}
	return s.formatter.Render(chain, func(w io.Writer) error {
		fmt.Fprintf(w, "Answer %s\n", chain.AnswerID)
		return writeChain(w, chain)
	})
}

// writeChain prints one line per link, facts with their source text and
// location.
func writeChain(w io.Writer, chain ir.ProvenanceChain) error {
	for _, l := range chain.Links {
		marker := ""
		if l.Invalidated {
			marker = " (invalidated)"
		}
		fmt.Fprintf(w, "  %-9s %s%s\n", l.Layer, l.Value, marker)
		if l.Layer != ir.LayerFact {
			continue
		}
		where := l.DocumentID
		if l.Location != "" {
			where += ", " + l.Location
		}
		fmt.Fprintf(w, "            %q  [%s]\n", l.SourceText, where)
	}
	return nil
}
