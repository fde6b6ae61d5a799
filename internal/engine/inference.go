package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/roach88/truthgraph/internal/ir"
	"github.com/roach88/truthgraph/internal/metrics"
	"github.com/roach88/truthgraph/internal/store"
)

// InferenceRequest asks the engine to record a derived claim. Exactly one
// of DocumentID or FamilyID names the scope.
type InferenceRequest struct {
	DocumentID    string            `json:"document_id,omitempty" yaml:"document_id" validate:"required_without=FamilyID,excluded_with=FamilyID"`
	FamilyID      string            `json:"family_id,omitempty" yaml:"family_id"`
	Kind          ir.InferenceKind  `json:"kind" yaml:"kind" validate:"required,oneof=answer gap classification obligation risk"`
	Claim         string            `json:"claim" yaml:"claim" validate:"required"`
	FactIDs       []string          `json:"fact_ids" yaml:"fact_ids" validate:"dive,required"`
	BindingIDs    []string          `json:"binding_ids" yaml:"binding_ids" validate:"dive,required"`
	DomainSources []ir.DomainSource `json:"domain_sources" yaml:"domain_sources" validate:"dive"`
	Reasoning     string            `json:"reasoning" yaml:"reasoning"`
	ProducerID    string            `json:"producer_id" yaml:"producer_id" validate:"required"`
	QueryID       string            `json:"query_id,omitempty" yaml:"query_id"`
}

// Evidence is what a scoring policy sees: the cited records as stored.
type Evidence struct {
	Request  InferenceRequest
	Facts    []ir.Fact
	Bindings []ir.Binding
}

// ScoringPolicy assigns a confidence in [0, 1] and a short basis to an
// inference. The engine applies the review threshold, not the formula.
type ScoringPolicy interface {
	Score(ev Evidence) (confidence float64, basis string)
}

// ScoringFunc adapts a function to ScoringPolicy.
type ScoringFunc func(ev Evidence) (float64, string)

// Score implements ScoringPolicy.
func (f ScoringFunc) Score(ev Evidence) (float64, string) { return f(ev) }

// FixedScore is a ScoringPolicy that returns the same confidence for every
// inference.
type FixedScore struct {
	Confidence float64
	Basis      string
}

// Score implements ScoringPolicy.
func (s FixedScore) Score(Evidence) (float64, string) {
	basis := s.Basis
	if basis == "" {
		basis = "fixed"
	}
	return s.Confidence, basis
}

// Infer records a new inference and returns it with its provenance chain.
//
// The request must cite at least one fact or binding, every cited record
// must exist inside the request's family, and the policy's confidence must
// lie in [0, 1]; otherwise Infer fails with INVALID_INFERENCE and nothing
// is stored. A confidence below the review threshold sets NeedsReview.
func (e *Engine) Infer(ctx context.Context, req InferenceRequest, policy ScoringPolicy) (ir.InferenceResult, error) {
	defer metrics.ObserveDuration("infer", time.Now())

	inf, chain, err := e.recordInference(ctx, req, policy, "")
	if err != nil {
		e.reject(err)
		return ir.InferenceResult{}, err
	}
	return ir.InferenceResult{Inference: inf, Chain: chain}, nil
}

// Revise records a new inference replacing an existing one. The old
// inference keeps its confidence and gets InvalidatedBy set to the new
// inference, in the same transaction. Revising an inference that was
// already invalidated fails with INVALID_INFERENCE.
func (e *Engine) Revise(ctx context.Context, oldID string, req InferenceRequest, policy ScoringPolicy) (ir.InferenceResult, error) {
	defer metrics.ObserveDuration("revise", time.Now())

	inf, chain, err := e.recordInference(ctx, req, policy, oldID)
	if err != nil {
		e.reject(err)
		return ir.InferenceResult{}, err
	}
	e.logger.Info("inference revised", "inference_id", oldID, "invalidated_by", inf.ID)
	return ir.InferenceResult{Inference: inf, Chain: chain}, nil
}

func (e *Engine) recordInference(ctx context.Context, req InferenceRequest, policy ScoringPolicy, replaces string) (ir.Inference, ir.ProvenanceChain, error) {
	if err := e.validateRecord(req.DocumentID, "inference request", req); err != nil {
		return ir.Inference{}, ir.ProvenanceChain{}, err
	}
	if len(req.FactIDs) == 0 && len(req.BindingIDs) == 0 {
		return ir.Inference{}, ir.ProvenanceChain{}, newError(ErrCodeInvalidInference, req.DocumentID,
			"inference cites no supporting fact or binding")
	}
	if policy == nil {
		return ir.Inference{}, ir.ProvenanceChain{}, newError(ErrCodeInvalidInput, req.DocumentID,
			"no scoring policy supplied")
	}

	familyID, err := e.inferenceFamily(ctx, req)
	if err != nil {
		return ir.Inference{}, ir.ProvenanceChain{}, err
	}
	if req.DocumentID != "" {
		release := e.locks.lock(req.DocumentID)
		defer release()
	}

	var (
		inf   ir.Inference
		chain ir.ProvenanceChain
	)
	err = e.store.InTx(ctx, func(tx *store.Tx) error {
		ev, err := e.gatherEvidence(ctx, tx, req, familyID)
		if err != nil {
			return err
		}

		confidence, basis := policy.Score(ev)
		if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
			return newError(ErrCodeInvalidInference, req.DocumentID,
				fmt.Sprintf("confidence %v outside [0, 1]", confidence))
		}

		inf = ir.Inference{
			ID:              e.ids.Generate(),
			DocumentID:      req.DocumentID,
			FamilyID:        req.FamilyID,
			Kind:            req.Kind,
			Claim:           req.Claim,
			FactIDs:         orEmpty(req.FactIDs),
			BindingIDs:      orEmpty(req.BindingIDs),
			DomainSources:   req.DomainSources,
			Reasoning:       req.Reasoning,
			Confidence:      confidence,
			ConfidenceBasis: basis,
			NeedsReview:     ir.NeedsReviewAt(confidence),
			ProducerID:      req.ProducerID,
			CreatedAt:       e.clock.Now().UTC(),
			QueryID:         req.QueryID,
		}
		if inf.DomainSources == nil {
			inf.DomainSources = []ir.DomainSource{}
		}
		if err := tx.InsertInference(ctx, inf); err != nil {
			return err
		}

		if replaces != "" {
			updated, err := tx.Invalidate(ctx, replaces, inf.ID)
			if err != nil {
				return err
			}
			if !updated {
				return newError(ErrCodeInvalidInference, req.DocumentID,
					fmt.Sprintf("inference %s was already revised", replaces), replaces)
			}
		}

		chain, err = assembleChain(ctx, tx, Answer{ID: inf.ID, InferenceIDs: []string{inf.ID}})
		return err
	})
	if err != nil {
		return ir.Inference{}, ir.ProvenanceChain{}, mapStoreError(err, req.DocumentID)
	}

	metrics.RecordInference(string(inf.Kind), inf.Confidence, inf.NeedsReview)
	attrs := []any{
		"inference_id", inf.ID,
		"kind", inf.Kind,
		"confidence", inf.Confidence,
		"external", inf.UsesExternalKnowledge(),
	}
	if inf.NeedsReview {
		e.logger.Warn("inference needs review", attrs...)
	} else {
		e.logger.Info("inference recorded", attrs...)
	}
	return inf, chain, nil
}

// inferenceFamily returns the family that cited records must belong to.
func (e *Engine) inferenceFamily(ctx context.Context, req InferenceRequest) (string, error) {
	if req.DocumentID != "" {
		doc, err := e.store.GetDocument(ctx, req.DocumentID)
		if err != nil {
			return "", mapStoreError(err, req.DocumentID)
		}
		return doc.FamilyID, nil
	}
	docs, err := e.store.FamilyDocuments(ctx, req.FamilyID)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", newError(ErrCodeNotFound, "", fmt.Sprintf("family %s has no documents", req.FamilyID), req.FamilyID)
	}
	return req.FamilyID, nil
}

func (e *Engine) gatherEvidence(ctx context.Context, tx *store.Tx, req InferenceRequest, familyID string) (Evidence, error) {
	ev := Evidence{Request: req}

	facts, err := tx.GetFacts(ctx, req.FactIDs)
	if err != nil {
		return ev, err
	}
	bindings, err := tx.GetBindings(ctx, req.BindingIDs)
	if err != nil {
		return ev, err
	}
	missing := append(missingIDs(req.FactIDs, facts), missingIDs(req.BindingIDs, bindings)...)
	if len(missing) > 0 {
		return ev, newError(ErrCodeInvalidInference, req.DocumentID,
			fmt.Sprintf("inference cites %d unknown record(s)", len(missing)), missing...)
	}

	families := make(map[string]string)
	inFamily := func(documentID string) (bool, error) {
		fam, ok := families[documentID]
		if !ok {
			doc, err := tx.GetDocument(ctx, documentID)
			if err != nil {
				return false, err
			}
			fam = doc.FamilyID
			families[documentID] = fam
		}
		return fam == familyID, nil
	}

	var foreign []string
	for _, id := range req.FactIDs {
		f := facts[id]
		ok, err := inFamily(f.DocumentID)
		if err != nil {
			return ev, err
		}
		if !ok {
			foreign = append(foreign, id)
		}
		ev.Facts = append(ev.Facts, f)
	}
	for _, id := range req.BindingIDs {
		b := bindings[id]
		ok, err := inFamily(b.DocumentID)
		if err != nil {
			return ev, err
		}
		if !ok {
			foreign = append(foreign, id)
		}
		ev.Bindings = append(ev.Bindings, b)
	}
	if len(foreign) > 0 {
		return ev, newError(ErrCodeInvalidInference, req.DocumentID,
			fmt.Sprintf("inference cites %d record(s) outside family %s", len(foreign), familyID), foreign...)
	}
	return ev, nil
}

// Inferences returns the inferences of a scope in creation order.
func (e *Engine) Inferences(ctx context.Context, scope Scope, includeInvalidated bool) ([]ir.Inference, error) {
	return e.store.ScopeInferences(ctx, scope.DocumentID, scope.FamilyID, includeInvalidated)
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
