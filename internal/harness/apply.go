package harness

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/truthgraph/internal/engine"
	"github.com/roach88/truthgraph/internal/ir"
)

// AppliedInference is one recorded inference, by bundle ref.
type AppliedInference struct {
	Ref    string             `json:"ref"`
	Result ir.InferenceResult `json:"result"`
}

// Applied records what applying a bundle produced.
type Applied struct {
	Documents  []string                          `json:"documents"`
	Facts      map[string]string                 `json:"facts"` // Fact ref to fact ID
	Inserted   int                               `json:"inserted"`
	Unchanged  int                               `json:"unchanged"`
	Bindings   int                               `json:"bindings"`
	Clauses    int                               `json:"clauses"`
	References map[string]engine.ReferenceReport `json:"references"` // By family
	Inferences []AppliedInference                `json:"inferences"`
}

// NewApplied returns an empty Applied ready to accumulate bundles.
func NewApplied() *Applied {
	return &Applied{
		Documents:  []string{},
		Facts:      make(map[string]string),
		References: make(map[string]engine.ReferenceReport),
		Inferences: []AppliedInference{},
	}
}

// Families returns the families touched, sorted.
func (a *Applied) Families() []string {
	out := make([]string, 0, len(a.References))
	for f := range a.References {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Inference returns the recorded inference with the given ref.
func (a *Applied) Inference(ref string) (ir.InferenceResult, bool) {
	for _, inf := range a.Inferences {
		if inf.Ref == ref {
			return inf.Result, true
		}
	}
	return ir.InferenceResult{}, false
}

// Apply loads a bundle into the engine.
//
// Documents are registered first, then each document's facts are ingested
// and its bindings derived, then clauses are classified, then the
// cross-references of every touched family are resolved. Inferences run
// last, in bundle order.
func Apply(ctx context.Context, e *engine.Engine, b *Bundle, into *Applied) error {
	if into == nil {
		return fmt.Errorf("apply: nil result")
	}
	families := make(map[string]bool)

	for _, d := range b.Documents {
		if err := e.RegisterDocument(ctx, d.Document()); err != nil {
			return fmt.Errorf("register %s: %w", d.ID, err)
		}
		into.Documents = append(into.Documents, d.ID)
		families[d.Family] = true
	}

	for _, d := range b.Documents {
		facts := make([]ir.Fact, len(d.Facts))
		for i, fe := range d.Facts {
			f, err := fe.Fact(d.ID)
			if err != nil {
				return fmt.Errorf("document %s fact %d: %w", d.ID, i, err)
			}
			facts[i] = f
		}
		if len(facts) > 0 {
			res, err := e.Ingest(ctx, d.ID, facts)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", d.ID, err)
			}
			into.Inserted += res.Inserted
			into.Unchanged += res.Unchanged
			for i, fe := range d.Facts {
				if fe.Ref != "" {
					into.Facts[fe.Ref] = res.FactIDs[i]
				}
			}
		}
		bindings, err := e.DeriveBindings(ctx, d.ID)
		if err != nil {
			return fmt.Errorf("derive bindings %s: %w", d.ID, err)
		}
		into.Bindings += len(bindings)
	}

	for _, d := range b.Documents {
		if len(d.Clauses) == 0 {
			continue
		}
		clauses, err := e.Classify(ctx, d.ID, d.Signals())
		if err != nil {
			return fmt.Errorf("classify %s: %w", d.ID, err)
		}
		into.Clauses += len(clauses)
	}

	for _, family := range sortedKeys(families) {
		report, err := e.ResolveReferences(ctx, family)
		if err != nil {
			return fmt.Errorf("resolve references %s: %w", family, err)
		}
		prev := into.References[family]
		report.Examined += prev.Examined
		report.Resolved += prev.Resolved
		into.References[family] = report
	}

	for _, entry := range b.Inferences {
		res, err := applyInference(ctx, e, entry, into)
		if err != nil {
			return fmt.Errorf("inference %s: %w", entry.Ref, err)
		}
		into.Inferences = append(into.Inferences, AppliedInference{Ref: entry.Ref, Result: res})
	}
	return nil
}

func applyInference(ctx context.Context, e *engine.Engine, entry InferenceEntry, applied *Applied) (ir.InferenceResult, error) {
	req := engine.InferenceRequest{
		DocumentID: entry.Document,
		FamilyID:   entry.Family,
		Kind:       ir.InferenceKind(entry.Kind),
		Claim:      entry.Claim,
		FactIDs:    []string{},
		BindingIDs: []string{},
		Reasoning:  entry.Reasoning,
		ProducerID: entry.Producer,
	}
	for _, ref := range entry.Facts {
		id, ok := applied.Facts[ref]
		if !ok {
			return ir.InferenceResult{}, fmt.Errorf("unknown fact ref %q", ref)
		}
		req.FactIDs = append(req.FactIDs, id)
	}
	scope := engine.Scope{DocumentID: entry.Document, FamilyID: entry.Family}
	for _, term := range entry.Terms {
		r, err := e.Resolve(ctx, term, scope)
		if err != nil {
			return ir.InferenceResult{}, err
		}
		if r.Status != ir.BindingResolved {
			return ir.InferenceResult{}, fmt.Errorf("term %q is %s", term, r.Status)
		}
		req.BindingIDs = append(req.BindingIDs, r.Binding.ID)
	}
	for _, src := range entry.External {
		req.DomainSources = append(req.DomainSources, ir.DomainSource{SourceID: src, Origin: ir.OriginExternal})
	}

	policy := engine.FixedScore{Confidence: entry.Confidence, Basis: entry.Basis}
	if entry.Revises == "" {
		return e.Infer(ctx, req, policy)
	}
	old, ok := applied.Inference(entry.Revises)
	if !ok {
		return ir.InferenceResult{}, fmt.Errorf("revises unknown inference %q", entry.Revises)
	}
	return e.Revise(ctx, old.Inference.ID, req, policy)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
