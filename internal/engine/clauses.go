package engine

import (
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/roach88/truthgraph/internal/ir"
	"github.com/roach88/truthgraph/internal/metrics"
	"github.com/roach88/truthgraph/internal/query"
	"github.com/roach88/truthgraph/internal/store"
)

// Classify groups a document's facts into clauses using classification
// signals from the external classifier, records the cross-references the
// clauses contain, and computes their fact slots.
//
// A fact belongs to the innermost signal span containing it. A clause_text
// fact covering exactly the signal span is the clause body. Clauses of the
// document that no signal produces any more are removed, and kept clauses
// have their fact links and cross-references replaced. Re-running
// Classify with the same signals and facts produces the same clauses.
func (e *Engine) Classify(ctx context.Context, documentID string, signals []ir.ClauseSignal) ([]ir.Clause, error) {
	defer metrics.ObserveDuration("classify", time.Now())

	for i, sig := range signals {
		if err := e.validateRecord(documentID, fmt.Sprintf("clause signal %d", i), sig); err != nil {
			return nil, err
		}
	}

	release := e.locks.lock(documentID)
	defer release()

	facts, err := e.store.CollectFacts(ctx, query.All(query.DocumentIs{DocumentID: documentID}))
	if err != nil {
		return nil, err
	}

	clauses, xrefs, err := buildClauses(documentID, signals, facts)
	if err != nil {
		return nil, err
	}
	factsByID := make(map[string]ir.Fact, len(facts))
	for _, f := range facts {
		factsByID[f.ID] = f
	}

	err = e.store.InTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetDocument(ctx, documentID); err != nil {
			return err
		}
		keep := make([]string, len(clauses))
		for i, c := range clauses {
			keep[i] = c.ID
		}
		if _, err := tx.PruneClauses(ctx, documentID, keep); err != nil {
			return err
		}
		for _, c := range clauses {
			if _, err := tx.InsertClause(ctx, c); err != nil {
				return err
			}
		}
		keepRefs := make([]string, len(xrefs))
		for i, x := range xrefs {
			if _, err := tx.InsertCrossReference(ctx, x); err != nil {
				return err
			}
			keepRefs[i] = x.ID
		}
		if _, err := tx.PruneCrossReferences(ctx, documentID, keepRefs); err != nil {
			return err
		}
		for _, c := range clauses {
			if err := ctx.Err(); err != nil {
				return err
			}
			slots, err := computeSlots(c, factsByID, e.schema.Specs(c.ClauseType))
			if err != nil {
				return err
			}
			if err := tx.ReplaceClauseSlots(ctx, c.ID, slots); err != nil {
				return err
			}
			recordSlots(slots)
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, documentID)
	}

	e.logger.Info("clauses classified",
		"document_id", documentID,
		"clauses", len(clauses),
		"cross_references", len(xrefs))
	return clauses, nil
}

// buildClauses is the pure grouping step of Classify.
func buildClauses(documentID string, signals []ir.ClauseSignal, facts []ir.Fact) ([]ir.Clause, []ir.CrossReference, error) {
	clauses := make([]ir.Clause, 0, len(signals))
	for _, sig := range signals {
		id, err := ir.ClauseID(documentID, sig)
		if err != nil {
			return nil, nil, wrapError(ErrCodeInvalidInput, documentID, err, "clause identity")
		}
		c := ir.Clause{
			ID:                   id,
			DocumentID:           documentID,
			ClauseType:           sig.ClauseType,
			Heading:              sig.Heading,
			SectionNumber:        sig.SectionNumber,
			Span:                 sig.Span,
			FactIDs:              []string{},
			CrossReferenceIDs:    []string{},
			ClassificationMethod: sig.Method,
			Confidence:           sig.Confidence,
		}
		if slices.ContainsFunc(clauses, func(o ir.Clause) bool { return o.ID == id }) {
			continue
		}
		clauses = append(clauses, c)
	}
	slices.SortFunc(clauses, func(a, b ir.Clause) int {
		if c := cmp.Compare(a.Span.Start, b.Span.Start); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Span.End, a.Span.End); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	var xrefs []ir.CrossReference
	for _, f := range facts {
		owner := innermostClause(clauses, f.Span)
		if owner < 0 {
			continue
		}
		c := &clauses[owner]
		c.FactIDs = append(c.FactIDs, f.ID)
		if f.Kind == ir.FactClauseText && f.Span == c.Span && c.BodyFactID == "" {
			c.BodyFactID = f.ID
		}
		if f.Kind == ir.FactCrossReference {
			xid, err := ir.CrossReferenceID(c.ID, f.ID)
			if err != nil {
				return nil, nil, wrapError(ErrCodeInvalidInput, documentID, err, "cross reference identity")
			}
			c.CrossReferenceIDs = append(c.CrossReferenceIDs, xid)
			xrefs = append(xrefs, ir.CrossReference{
				ID:             xid,
				SourceClauseID: c.ID,
				TargetRef:      f.Value,
				ReferenceType:  referenceType(f),
				Effect:         referenceEffect(f.SourceText),
				Context:        f.SourceText,
				FactID:         f.ID,
			})
		}
	}
	return clauses, xrefs, nil
}

// innermostClause returns the index of the smallest clause span containing
// span, or -1.
func innermostClause(clauses []ir.Clause, span ir.Span) int {
	best := -1
	for i, c := range clauses {
		if !c.Span.Contains(span) {
			continue
		}
		if best < 0 || c.Span.End-c.Span.Start < clauses[best].Span.End-clauses[best].Span.Start {
			best = i
		}
	}
	return best
}

func referenceType(f ir.Fact) string {
	if f.EntityType != "" {
		return f.EntityType
	}
	return "reference"
}

// referenceEffect names how a reference qualifies its clause, from the
// wording around it.
func referenceEffect(context string) string {
	lower := strings.ToLower(context)
	switch {
	case strings.Contains(lower, "notwithstanding"):
		return "overrides"
	case strings.Contains(lower, "subject to"):
		return "subject_to"
	case strings.Contains(lower, "surviv"):
		return "survival"
	case strings.Contains(lower, "as defined in"), strings.Contains(lower, "has the meaning"):
		return "definition"
	default:
		return ""
	}
}

// ComputeSlots evaluates a stored clause against the given fact specs and
// replaces its stored slots. The result is deterministic for a given
// contained-fact set.
func (e *Engine) ComputeSlots(ctx context.Context, clauseID string, specs []ir.FactSpec) ([]ir.ClauseFactSlot, error) {
	clause, err := e.store.GetClause(ctx, clauseID)
	if err != nil {
		return nil, mapStoreError(err, "")
	}

	release := e.locks.lock(clause.DocumentID)
	defer release()

	facts, err := e.store.GetFacts(ctx, clause.FactIDs)
	if err != nil {
		return nil, err
	}
	slots, err := computeSlots(clause, facts, specs)
	if err != nil {
		return nil, err
	}
	err = e.store.InTx(ctx, func(tx *store.Tx) error {
		return tx.ReplaceClauseSlots(ctx, clauseID, slots)
	})
	if err != nil {
		return nil, err
	}
	recordSlots(slots)
	return slots, nil
}

// RecomputeSlots recomputes every clause of a document with the engine's
// slot schema.
func (e *Engine) RecomputeSlots(ctx context.Context, documentID string) error {
	clauses, err := e.store.DocumentClauses(ctx, documentID)
	if err != nil {
		return err
	}
	for _, c := range clauses {
		if _, err := e.ComputeSlots(ctx, c.ID, e.schema.Specs(c.ClauseType)); err != nil {
			return err
		}
	}
	return nil
}

// computeSlots evaluates each spec against the clause's contained facts.
//
// A spec selects facts by entity type (the spec name when unset) and, when
// set, by kind. The first selected fact in structural order with a
// non-empty value matching the spec pattern fills the slot. Selected facts
// that are empty or do not match make it partial. No selected fact leaves
// it missing.
func computeSlots(clause ir.Clause, facts map[string]ir.Fact, specs []ir.FactSpec) ([]ir.ClauseFactSlot, error) {
	contained := make([]ir.Fact, 0, len(clause.FactIDs))
	for _, id := range clause.FactIDs {
		if f, ok := facts[id]; ok {
			contained = append(contained, f)
		}
	}
	slices.SortFunc(contained, func(a, b ir.Fact) int {
		if c := cmp.Compare(a.Span.Start, b.Span.Start); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Span.End, b.Span.End); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	slots := make([]ir.ClauseFactSlot, 0, len(specs))
	for _, spec := range specs {
		var pattern *regexp.Regexp
		if spec.Pattern != "" {
			p, err := regexp.Compile(spec.Pattern)
			if err != nil {
				return nil, wrapError(ErrCodeInvalidInput, clause.DocumentID, err,
					fmt.Sprintf("fact spec %q: bad pattern", spec.Name))
			}
			pattern = p
		}
		entityType := spec.EntityType
		if entityType == "" {
			entityType = spec.Name
		}

		slot := ir.ClauseFactSlot{ClauseID: clause.ID, SpecName: spec.Name, Status: ir.SlotMissing, Required: spec.Required}
		for _, f := range contained {
			if f.EntityType != entityType || (spec.Kind != "" && f.Kind != spec.Kind) {
				continue
			}
			value := strings.TrimSpace(f.Value)
			if value != "" && (pattern == nil || pattern.MatchString(value)) {
				slot.Status = ir.SlotFilled
				slot.FactID = f.ID
				break
			}
			if slot.Status == ir.SlotMissing {
				slot.Status = ir.SlotPartial
				slot.FactID = f.ID
			}
		}
		slots = append(slots, slot)
	}
	slices.SortFunc(slots, func(a, b ir.ClauseFactSlot) int { return cmp.Compare(a.SpecName, b.SpecName) })
	return slots, nil
}

func recordSlots(slots []ir.ClauseFactSlot) {
	for _, s := range slots {
		metrics.SlotStatuses.WithLabelValues(string(s.Status)).Inc()
	}
}
