package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/truthgraph/internal/ir"
	"github.com/roach88/truthgraph/internal/metrics"
)

// Answer is a displayed answer together with the evidence it cites.
// An empty ID is filled with a generated identifier.
type Answer struct {
	ID           string   `json:"id"`
	InferenceIDs []string `json:"inference_ids"`
	FactIDs      []string `json:"fact_ids"`
	BindingIDs   []string `json:"binding_ids"`
}

// evidenceReader is satisfied by both *store.Store and *store.Tx.
type evidenceReader interface {
	GetFacts(ctx context.Context, ids []string) (map[string]ir.Fact, error)
	GetBindings(ctx context.Context, ids []string) (map[string]ir.Binding, error)
	GetInferences(ctx context.Context, ids []string) (map[string]ir.Inference, error)
}

// ChainFor walks backward from an answer through its inferences to their
// bindings and facts, and returns the ordered chain: facts first, then
// bindings, then inferences, each identity once. A binding contributes the
// fact that defines it. Any identity that cannot be found, or a chain that
// reaches no fact, fails with BROKEN_PROVENANCE and no chain is returned.
func (e *Engine) ChainFor(ctx context.Context, a Answer) (ir.ProvenanceChain, error) {
	defer metrics.ObserveDuration("provenance", time.Now())

	if a.ID == "" {
		a.ID = e.ids.Generate()
	}
	chain, err := assembleChain(ctx, e.store, a)
	if err != nil {
		e.reject(err)
		e.logger.Warn("answer withheld", "answer_id", a.ID, "error", err)
		return ir.ProvenanceChain{}, err
	}
	return chain, nil
}

func assembleChain(ctx context.Context, r evidenceReader, a Answer) (ir.ProvenanceChain, error) {
	var (
		factIDs      = newOrderedSet(a.FactIDs...)
		bindingIDs   = newOrderedSet(a.BindingIDs...)
		inferenceIDs = newOrderedSet(a.InferenceIDs...)
	)

	inferences, err := r.GetInferences(ctx, inferenceIDs.items)
	if err != nil {
		return ir.ProvenanceChain{}, err
	}
	if missing := missingIDs(inferenceIDs.items, inferences); len(missing) > 0 {
		return ir.ProvenanceChain{}, brokenProvenance(a.ID, "inference", missing)
	}
	for _, id := range inferenceIDs.items {
		inf := inferences[id]
		factIDs.add(inf.FactIDs...)
		bindingIDs.add(inf.BindingIDs...)
	}

	bindings, err := r.GetBindings(ctx, bindingIDs.items)
	if err != nil {
		return ir.ProvenanceChain{}, err
	}
	if missing := missingIDs(bindingIDs.items, bindings); len(missing) > 0 {
		return ir.ProvenanceChain{}, brokenProvenance(a.ID, "binding", missing)
	}
	for _, id := range bindingIDs.items {
		factIDs.add(bindings[id].FactID)
	}

	facts, err := r.GetFacts(ctx, factIDs.items)
	if err != nil {
		return ir.ProvenanceChain{}, err
	}
	if missing := missingIDs(factIDs.items, facts); len(missing) > 0 {
		return ir.ProvenanceChain{}, brokenProvenance(a.ID, "fact", missing)
	}
	if len(factIDs.items) == 0 {
		return ir.ProvenanceChain{}, newError(ErrCodeBrokenProvenance, "",
			fmt.Sprintf("answer %s reaches no source fact", a.ID), a.ID)
	}

	chain := ir.ProvenanceChain{
		AnswerID: a.ID,
		Links:    make([]ir.ProvenanceLink, 0, len(factIDs.items)+len(bindingIDs.items)+len(inferenceIDs.items)),
	}
	for _, id := range factIDs.items {
		f := facts[id]
		span := f.Span
		chain.Links = append(chain.Links, ir.ProvenanceLink{
			Layer:      ir.LayerFact,
			ID:         f.ID,
			Value:      f.Value,
			SourceText: f.SourceText,
			Span:       &span,
			Location:   f.Location,
			DocumentID: f.DocumentID,
		})
	}
	for _, id := range bindingIDs.items {
		b := bindings[id]
		chain.Links = append(chain.Links, ir.ProvenanceLink{
			Layer:      ir.LayerBinding,
			ID:         b.ID,
			Value:      fmt.Sprintf("%s = %s", b.Term, b.Value),
			DocumentID: b.DocumentID,
		})
	}
	for _, id := range inferenceIDs.items {
		inf := inferences[id]
		chain.Links = append(chain.Links, ir.ProvenanceLink{
			Layer:       ir.LayerInference,
			ID:          inf.ID,
			Value:       inf.Claim,
			SourceText:  inf.Reasoning,
			DocumentID:  inf.DocumentID,
			Invalidated: inf.Invalidated(),
		})
	}
	return chain, nil
}

func brokenProvenance(answerID, layer string, missing []string) *Error {
	return newError(ErrCodeBrokenProvenance, "",
		fmt.Sprintf("answer %s cites %d unknown %s record(s)", answerID, len(missing), layer), missing...)
}

// orderedSet keeps first-seen order and drops empty and repeated IDs.
type orderedSet struct {
	items []string
	seen  map[string]bool
}

func newOrderedSet(ids ...string) *orderedSet {
	s := &orderedSet{items: []string{}, seen: make(map[string]bool)}
	s.add(ids...)
	return s
}

func (s *orderedSet) add(ids ...string) {
	for _, id := range ids {
		if id == "" || s.seen[id] {
			continue
		}
		s.seen[id] = true
		s.items = append(s.items, id)
	}
}

func missingIDs[V any](ids []string, found map[string]V) []string {
	var out []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
