package engine

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/truthgraph/internal/ir"
	"github.com/roach88/truthgraph/internal/metrics"
	"github.com/roach88/truthgraph/internal/query"
)

// DecisionStatus is the outcome of a precedence decision.
type DecisionStatus string

const (
	DecisionEffective   DecisionStatus = "effective"
	DecisionConflicting DecisionStatus = "conflicting"
	DecisionNone        DecisionStatus = "none"
)

// Candidate is one fact considered by a precedence decision, with the
// effective date its document declares. The date is reported for audit;
// amendments rank by sequence number.
type Candidate struct {
	Fact          ir.Fact    `json:"fact"`
	Rank          string     `json:"rank"`
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
}

// PrecedenceDecision points at the effective fact for a key without
// rewriting or merging any fact. Candidates lists every fact considered,
// highest precedence first, so callers can audit the choice.
type PrecedenceDecision struct {
	FamilyID    string         `json:"family_id"`
	Kind        ir.FactKind    `json:"kind"`
	Key         string         `json:"key"`
	Status      DecisionStatus `json:"status"`
	Effective   *ir.Fact       `json:"effective,omitempty"`
	Conflicting []ir.Fact      `json:"conflicting,omitempty"`
	Candidates  []Candidate    `json:"candidates"`
	Reason      string         `json:"reason"`
}

// Result returns the effective fact as a typed result, or false when the
// decision has none.
func (d PrecedenceDecision) Result() (ir.FactResult, bool) {
	if d.Effective == nil {
		return ir.FactResult{}, false
	}
	return ir.FactResult{Fact: *d.Effective}, true
}

// EffectiveValue decides which fact of the given kind and entity type is
// authoritative across a family, loading the family's ordering from the
// store.
func (e *Engine) EffectiveValue(ctx context.Context, kind ir.FactKind, key, familyID string) (PrecedenceDecision, error) {
	order, err := e.FamilyOrder(ctx, familyID)
	if err != nil {
		return PrecedenceDecision{}, err
	}
	return e.EffectiveValueWithOrder(ctx, kind, key, order)
}

// EffectiveValueWithOrder decides which fact is authoritative using an
// explicit family ordering.
//
// The highest-ranked documents holding a matching fact win: latest
// amendment, then the base agreement, then schedules. Inside one document
// the latest extraction timestamp breaks ties. Two documents of equal rank
// that disagree, or one document whose latest facts disagree, give a
// conflicting decision naming the disagreeing facts.
func (e *Engine) EffectiveValueWithOrder(ctx context.Context, kind ir.FactKind, key string, order FamilyOrder) (PrecedenceDecision, error) {
	defer metrics.ObserveDuration("effective_value", time.Now())

	if _, err := ir.ParseFactKind(string(kind)); err != nil {
		return PrecedenceDecision{}, wrapError(ErrCodeInvalidInput, "", err, "effective value")
	}

	facts, err := e.store.CollectFacts(ctx, query.All(
		query.FamilyIs{FamilyID: order.FamilyID},
		query.KindIs{Kind: kind},
		query.EntityTypeIs{EntityType: key},
	))
	if err != nil {
		return PrecedenceDecision{}, err
	}

	d, err := decide(ctx, order, kind, key, facts)
	if err != nil {
		return PrecedenceDecision{}, err
	}

	metrics.PrecedenceDecisions.WithLabelValues(string(d.Status)).Inc()
	if d.Status == DecisionConflicting {
		e.logger.Warn("conflicting facts",
			"family_id", order.FamilyID,
			"key", key,
			"candidates", len(d.Conflicting))
	}
	return d, nil
}

// MustEffectiveValue is EffectiveValue for callers that need one fact: a
// conflicting decision becomes CONFLICTING_FACTS and no candidate NOT_FOUND.
func (e *Engine) MustEffectiveValue(ctx context.Context, kind ir.FactKind, key, familyID string) (ir.Fact, error) {
	d, err := e.EffectiveValue(ctx, kind, key, familyID)
	if err != nil {
		return ir.Fact{}, err
	}
	switch d.Status {
	case DecisionEffective:
		return *d.Effective, nil
	case DecisionConflicting:
		ids := make([]string, len(d.Conflicting))
		for i, f := range d.Conflicting {
			ids[i] = f.ID
		}
		return ir.Fact{}, newError(ErrCodeConflictingFacts, "", d.Reason, ids...)
	default:
		return ir.Fact{}, newError(ErrCodeNotFound, "", fmt.Sprintf("no %s fact for %q in family %q", kind, key, familyID))
	}
}

// decide is the pure precedence rule over a candidate set.
func decide(ctx context.Context, order FamilyOrder, kind ir.FactKind, key string, facts []ir.Fact) (PrecedenceDecision, error) {
	d := PrecedenceDecision{
		FamilyID:   order.FamilyID,
		Kind:       kind,
		Key:        key,
		Status:     DecisionNone,
		Candidates: []Candidate{},
	}

	ranked := make([]ir.Fact, 0, len(facts))
	for _, f := range facts {
		if err := ctx.Err(); err != nil {
			return PrecedenceDecision{}, err
		}
		if _, ok := order.Rank(f.DocumentID); ok {
			ranked = append(ranked, f)
		}
	}
	if len(ranked) == 0 {
		d.Reason = "no candidate facts"
		return d, nil
	}

	// Highest rank first, then latest extraction, then id for stability.
	slices.SortStableFunc(ranked, func(a, b ir.Fact) int {
		if c := order.Compare(b.DocumentID, a.DocumentID); c != 0 {
			return c
		}
		if c := b.ExtractedAt.Compare(a.ExtractedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	for _, f := range ranked {
		r, _ := order.Rank(f.DocumentID)
		doc, _ := order.Document(f.DocumentID)
		d.Candidates = append(d.Candidates, Candidate{Fact: f, Rank: r.String(), EffectiveDate: doc.EffectiveDate})
	}

	top := ranked[0]
	var tied []ir.Fact
	for _, f := range ranked {
		if order.Compare(f.DocumentID, top.DocumentID) != 0 {
			break
		}
		tied = append(tied, f)
	}

	// Each top-ranked document contributes its latest facts.
	latest := make(map[string][]ir.Fact)
	var docs []string
	for _, f := range tied {
		cur, ok := latest[f.DocumentID]
		if !ok {
			docs = append(docs, f.DocumentID)
			latest[f.DocumentID] = []ir.Fact{f}
			continue
		}
		if f.ExtractedAt.Equal(cur[0].ExtractedAt) {
			latest[f.DocumentID] = append(cur, f)
		}
	}

	var contenders []ir.Fact
	for _, doc := range docs {
		contenders = append(contenders, latest[doc]...)
	}
	if agree(contenders) {
		eff := contenders[0]
		d.Status = DecisionEffective
		d.Effective = &eff
		r, _ := order.Rank(eff.DocumentID)
		d.Reason = fmt.Sprintf("highest precedence %s in document %q", r, eff.DocumentID)
		return d, nil
	}

	d.Status = DecisionConflicting
	d.Conflicting = contenders
	if len(docs) > 1 {
		d.Reason = fmt.Sprintf("%d documents of equal precedence disagree on %q", len(docs), key)
	} else {
		d.Reason = fmt.Sprintf("facts extracted at the same time in %q disagree on %q", docs[0], key)
	}
	return d, nil
}

func agree(facts []ir.Fact) bool {
	for _, f := range facts[1:] {
		if f.Value != facts[0].Value {
			return false
		}
	}
	return true
}
