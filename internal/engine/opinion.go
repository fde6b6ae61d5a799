package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/truthgraph/internal/ir"
)

// Verdicts produced by ThresholdPolicy.
const (
	VerdictSupported    = "supported"
	VerdictNeedsReview  = "needs_review"
	VerdictInsufficient = "insufficient"
)

// OpinionPolicy turns current inferences into a role-specific judgment.
type OpinionPolicy interface {
	Name() string
	Judge(role string, inferences []ir.Inference) (verdict, rationale string)
}

// ThresholdPolicy supports a conclusion when every inference reaches
// MinConfidence and none needs review.
type ThresholdPolicy struct {
	MinConfidence float64
}

// Name implements OpinionPolicy.
func (p ThresholdPolicy) Name() string {
	return fmt.Sprintf("threshold>=%.2f", p.MinConfidence)
}

// Judge implements OpinionPolicy.
func (p ThresholdPolicy) Judge(role string, inferences []ir.Inference) (string, string) {
	if len(inferences) == 0 {
		return VerdictInsufficient, "no current inference to judge"
	}
	var weak []string
	for _, inf := range inferences {
		if inf.NeedsReview || inf.Confidence < p.MinConfidence {
			weak = append(weak, fmt.Sprintf("%s (%.2f)", inf.ID, inf.Confidence))
		}
	}
	if len(weak) > 0 {
		return VerdictNeedsReview, fmt.Sprintf("for %s: %d of %d inference(s) below %.2f: %s",
			role, len(weak), len(inferences), p.MinConfidence, strings.Join(weak, ", "))
	}
	return VerdictSupported, fmt.Sprintf("for %s: %d inference(s) at or above %.2f",
		role, len(inferences), p.MinConfidence)
}

// FormOpinion judges the named inferences for a role under a policy.
// Invalidated inferences are ignored. The opinion is formed fresh on every
// call and never stored.
func (e *Engine) FormOpinion(ctx context.Context, role string, policy OpinionPolicy, inferenceIDs []string) (ir.OpinionResult, error) {
	if role == "" || policy == nil {
		return ir.OpinionResult{}, newError(ErrCodeInvalidInput, "", "opinion needs a role and a policy")
	}
	ids := newOrderedSet(inferenceIDs...)
	found, err := e.store.GetInferences(ctx, ids.items)
	if err != nil {
		return ir.OpinionResult{}, err
	}
	if missing := missingIDs(ids.items, found); len(missing) > 0 {
		return ir.OpinionResult{}, newError(ErrCodeNotFound, "",
			fmt.Sprintf("opinion cites %d unknown inference(s)", len(missing)), missing...)
	}

	current := make([]ir.Inference, 0, len(ids.items))
	used := make([]string, 0, len(ids.items))
	for _, id := range ids.items {
		if inf := found[id]; !inf.Invalidated() {
			current = append(current, inf)
			used = append(used, id)
		}
	}

	verdict, rationale := policy.Judge(role, current)
	op := ir.Opinion{
		Role:         role,
		Policy:       policy.Name(),
		Verdict:      verdict,
		Rationale:    rationale,
		InferenceIDs: used,
		FormedAt:     e.clock.Now().UTC(),
	}
	e.logger.Debug("opinion formed", "role", role, "policy", op.Policy, "verdict", verdict)
	return ir.OpinionResult{Opinion: op}, nil
}
