package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/truthgraph/internal/engine"
)

// NewOpinionCommand creates the opinion command.
func NewOpinionCommand(rootOpts *RootOptions) *cobra.Command {
	var role string
	var minConfidence float64

	cmd := &cobra.Command{
		Use:   "opinion <inference-id>...",
		Short: "Form a role-specific opinion over inferences",
		Long: `Judge current inferences for a role under a confidence threshold policy.
Invalidated inferences are ignored. Opinions are computed on every call
and never stored.

Example:
  truthgraph opinion --role buyer --min-confidence 0.8 inf-0001 inf-0002`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpinion(rootOpts, role, engine.ThresholdPolicy{MinConfidence: minConfidence}, args, cmd)
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "role the opinion is for (required)")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0.7, "confidence every inference must reach")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func runOpinion(opts *RootOptions, role string, policy engine.OpinionPolicy, ids []string, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.engine.FormOpinion(commandContext(cmd), role, policy, ids)
	if err != nil {
		return s.formatter.Fail("opinion failed", err)
	}
	return s.formatter.Render(res, func(w io.Writer) error {
		o := res.Opinion
		fmt.Fprintf(w, "%s: %s\n", o.Role, o.Verdict)
		fmt.Fprintf(w, "  policy:    %s\n", o.Policy)
		fmt.Fprintf(w, "  rationale: %s\n", o.Rationale)
		return nil
	})
}
