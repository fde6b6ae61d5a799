package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/truthgraph/internal/engine"
	"github.com/roach88/truthgraph/internal/ir"
)

type inferOptions struct {
	scope      engine.Scope
	kind       string
	claim      string
	facts      []string
	bindings   []string
	external   []string
	reasoning  string
	confidence float64
	basis      string
	producer   string
	queryID    string
	revises    string
}

// NewInferCommand creates the infer command.
func NewInferCommand(rootOpts *RootOptions) *cobra.Command {
	o := &inferOptions{}

	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Record an inference over stored facts and bindings",
		Long: `Record a derived claim with its supporting facts and bindings and the
confidence assigned by the producer. An inference must cite at least one
fact or binding. Confidence below 0.5 marks the inference for review.

With --revises the new inference replaces an earlier one, which is kept
but marked invalidated.

Examples:
  truthgraph infer --family acme --kind answer --claim "60 days notice" \
    --fact 3f2a... --binding 91bc... --confidence 0.9 --producer analyst
  truthgraph infer --document msa --kind risk --claim "..." --fact 3f2a... \
    --confidence 0.3 --producer reviewer --revises inf-0001`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireScope(o.scope); err != nil {
				return err
			}
			return runInfer(rootOpts, o, cmd)
		},
	}

	f := cmd.Flags()
	scopeFlags(cmd, &o.scope)
	f.StringVar(&o.kind, "kind", string(ir.InferenceAnswer), "inference kind (answer|gap|classification|obligation|risk)")
	f.StringVar(&o.claim, "claim", "", "the claim (required)")
	f.StringSliceVar(&o.facts, "fact", nil, "supporting fact ID (repeatable)")
	f.StringSliceVar(&o.bindings, "binding", nil, "supporting binding ID (repeatable)")
	f.StringSliceVar(&o.external, "external", nil, "external knowledge source ID (repeatable)")
	f.StringVar(&o.reasoning, "reasoning", "", "reasoning behind the claim")
	f.Float64Var(&o.confidence, "confidence", 0, "confidence in [0, 1]")
	f.StringVar(&o.basis, "basis", "", "how the confidence was obtained")
	f.StringVar(&o.producer, "producer", "", "producer ID (required)")
	f.StringVar(&o.queryID, "query", "", "query the inference answers")
	f.StringVar(&o.revises, "revises", "", "inference ID this one replaces")
	_ = cmd.MarkFlagRequired("claim")
	_ = cmd.MarkFlagRequired("producer")
	return cmd
}

func runInfer(opts *RootOptions, o *inferOptions, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := commandContext(cmd)

	req := engine.InferenceRequest{
		DocumentID: o.scope.DocumentID,
		FamilyID:   o.scope.FamilyID,
		Kind:       ir.InferenceKind(o.kind),
		Claim:      o.claim,
		FactIDs:    o.facts,
		BindingIDs: o.bindings,
		Reasoning:  o.reasoning,
		ProducerID: o.producer,
		QueryID:    o.queryID,
	}
	for _, src := range o.external {
		req.DomainSources = append(req.DomainSources, ir.DomainSource{SourceID: src, Origin: ir.OriginExternal})
	}
	policy := engine.FixedScore{Confidence: o.confidence, Basis: o.basis}

	var res ir.InferenceResult
	if o.revises != "" {
		res, err = s.engine.Revise(ctx, o.revises, req, policy)
	} else {
		res, err = s.engine.Infer(ctx, req, policy)
	}
	if err != nil {
		return s.formatter.Fail("inference rejected", err)
	}

	return s.formatter.Render(res, func(w io.Writer) error {
		inf := res.Inference
		fmt.Fprintf(w, "Recorded inference %s\n", inf.ID)
		fmt.Fprintf(w, "  kind:       %s\n", inf.Kind)
		fmt.Fprintf(w, "  confidence: %.2f (%s)\n", inf.Confidence, inf.ConfidenceBasis)
		if inf.NeedsReview {
			fmt.Fprintln(w, "  needs review")
		}
		if o.revises != "" {
			fmt.Fprintf(w, "  replaces:   %s\n", o.revises)
		}
		return writeChain(w, res.Chain)
	})
}
