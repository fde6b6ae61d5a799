package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/roach88/truthgraph/internal/ir"
	"github.com/roach88/truthgraph/internal/metrics"
	"github.com/roach88/truthgraph/internal/query"
	"github.com/roach88/truthgraph/internal/store"
)

// Entity types of facts that carry term definitions.
const (
	EntityDefinedTerm = "defined_term"
	EntityAlias       = "alias"
)

// Resolution search tiers, in order.
const (
	TierSameDocument    = "same_document"
	TierGoverning       = "governing"
	TierLatestAmendment = "latest_amendment"
	TierFamily          = "family"
)

// Scope is the resolution scope: a single document or a whole family.
// When DocumentID is set FamilyID is filled from the document.
type Scope struct {
	DocumentID string `json:"document_id,omitempty"`
	FamilyID   string `json:"family_id,omitempty"`
}

var (
	quote = `["\x{201C}\x{201D}']`

	// "Term" means X / "Term" shall mean X / "Term" refers to X
	definitionPattern = regexp.MustCompile(`^\s*` + quote + `([^"\x{201C}\x{201D}']+)` + quote +
		`\s+(?:means|shall mean|refers to|has the meaning)\s+(.+?)\s*[.;]?\s*$`)

	// X (the "Term") / X (hereinafter "Term")
	aliasPattern = regexp.MustCompile(`^\s*(.+?)\s*\(\s*(?:the|hereinafter(?: referred to as)?(?: the)?)?\s*` +
		quote + `([^"\x{201C}\x{201D}']+)` + quote + `\s*\)\s*[.,;]?\s*$`)

	// Definitions limited to their own document.
	localScopePattern = regexp.MustCompile(`(?i)\b(?:in|for the purposes of) this (?:schedule|amendment|annex|exhibit|appendix)\b`)
)

// parseDefinition extracts (kind, term, value, scope) from a definition or
// alias fact. ok is false when the text has neither form.
func parseDefinition(f ir.Fact) (kind ir.BindingKind, term, value string, scope ir.BindingScope, ok bool) {
	text := f.SourceText
	if text == "" {
		text = f.Value
	}
	scope = ir.ScopeFamily
	if localScopePattern.MatchString(text) {
		scope = ir.ScopeDocument
	}

	switch f.EntityType {
	case EntityDefinedTerm:
		if m := definitionPattern.FindStringSubmatch(text); m != nil {
			return ir.BindingDefinition, strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), scope, true
		}
	case EntityAlias:
		if m := aliasPattern.FindStringSubmatch(text); m != nil {
			return ir.BindingAlias, strings.TrimSpace(m[2]), strings.TrimSpace(m[1]), scope, true
		}
	}
	return "", "", "", "", false
}

// DeriveBindings scans a document's definition and alias facts and
// registers a binding for each one that parses. Facts that do not parse are
// skipped and logged. Returns the registered bindings in structural order.
func (e *Engine) DeriveBindings(ctx context.Context, documentID string) ([]ir.Binding, error) {
	var bindings []ir.Binding
	for _, entityType := range []string{EntityDefinedTerm, EntityAlias} {
		facts, err := e.store.CollectFacts(ctx, query.All(
			query.DocumentIs{DocumentID: documentID},
			query.EntityTypeIs{EntityType: entityType},
		))
		if err != nil {
			return nil, err
		}
		for _, f := range facts {
			kind, term, value, scope, ok := parseDefinition(f)
			if !ok {
				e.logger.Debug("definition did not parse",
					"document_id", documentID,
					"fact_id", f.ID,
					"entity_type", f.EntityType)
				continue
			}
			bindings = append(bindings, ir.Binding{
				DocumentID: documentID,
				Kind:       kind,
				Term:       term,
				Value:      value,
				FactID:     f.ID,
				Scope:      scope,
			})
		}
	}

	registered := make([]ir.Binding, 0, len(bindings))
	for _, b := range bindings {
		stored, err := e.RegisterBinding(ctx, b)
		if err != nil {
			return nil, err
		}
		registered = append(registered, stored)
	}
	return registered, nil
}

// RegisterBinding stores a binding and rebuilds the override chain of its
// term: every family-scoped binding of the term points at the next
// higher-ranked one, so a lower-tier binding is overridden by the new one
// and retained for audit. The returned binding reflects its stored pointer.
func (e *Engine) RegisterBinding(ctx context.Context, b ir.Binding) (ir.Binding, error) {
	if err := e.validateRecord(b.DocumentID, "binding", b); err != nil {
		return ir.Binding{}, err
	}
	b.OverriddenBy = ""
	if b.ID == "" {
		id, err := ir.BindingID(b)
		if err != nil {
			return ir.Binding{}, wrapError(ErrCodeInvalidInput, b.DocumentID, err, "binding identity")
		}
		b.ID = id
	}

	release := e.locks.lock(b.DocumentID)
	defer release()

	var stored ir.Binding
	err := e.store.InTx(ctx, func(tx *store.Tx) error {
		doc, err := tx.GetDocument(ctx, b.DocumentID)
		if err != nil {
			return err
		}
		f, err := tx.GetFact(ctx, b.FactID)
		if err != nil {
			return err
		}
		if f.DocumentID != b.DocumentID {
			return newError(ErrCodeInvalidInput, b.DocumentID,
				fmt.Sprintf("binding fact %s belongs to document %q", f.ID, f.DocumentID), b.FactID)
		}
		if _, err := tx.InsertBinding(ctx, b, doc.FamilyID); err != nil {
			return err
		}
		if err := e.rebuildOverrides(ctx, tx, doc.FamilyID, []string{ir.NormalizeTerm(b.Term)}); err != nil {
			return err
		}
		stored, err = tx.GetBinding(ctx, b.ID)
		return err
	})
	if err != nil {
		err = mapStoreError(err, b.DocumentID)
		e.reject(err)
		return ir.Binding{}, err
	}
	e.cache.flush()
	e.logger.Info("binding registered",
		"document_id", b.DocumentID,
		"term", b.Term,
		"binding_id", stored.ID,
		"overridden", stored.Overridden())
	return stored, nil
}

// rebuildOverrides recomputes the override pointers of the given terms in
// a family. Each family-scoped binding points at the earliest registered
// binding of the lowest rank strictly above its own; bindings at the top
// rank have no pointer. Document-scoped bindings never carry a pointer.
func (e *Engine) rebuildOverrides(ctx context.Context, tx *store.Tx, familyID string, termKeys []string) error {
	if len(termKeys) == 0 {
		return nil
	}
	docs, err := tx.FamilyDocuments(ctx, familyID)
	if err != nil {
		return err
	}
	order := NewFamilyOrder(familyID, docs)

	for _, key := range termKeys {
		bindings, err := tx.BindingsForTerm(ctx, familyID, key)
		if err != nil {
			return err
		}
		targets := overrideTargets(order, bindings)
		for _, b := range bindings {
			want := targets[b.ID]
			if want == b.OverriddenBy {
				continue
			}
			if err := tx.SetOverriddenBy(ctx, b.ID, want); err != nil {
				return err
			}
		}

		updated, err := tx.BindingsForTerm(ctx, familyID, key)
		if err != nil {
			return err
		}
		index := indexBindings(updated)
		for _, b := range updated {
			if _, err := followOverrides(index, b); err != nil {
				return err
			}
		}
	}
	return nil
}

// overrideTargets computes the desired pointer of every binding of one term.
func overrideTargets(order FamilyOrder, bindings []ir.Binding) map[string]string {
	targets := make(map[string]string, len(bindings))
	for _, b := range bindings {
		if b.Scope != ir.ScopeFamily {
			targets[b.ID] = ""
			continue
		}
		rb, _ := order.Rank(b.DocumentID)
		var best *ir.Binding
		var bestRank Rank
		for i := range bindings {
			c := &bindings[i]
			if c.Scope != ir.ScopeFamily {
				continue
			}
			rc, _ := order.Rank(c.DocumentID)
			if rc.Compare(rb) <= 0 {
				continue
			}
			if best == nil || rc.Compare(bestRank) < 0 {
				best, bestRank = c, rc
			}
		}
		if best != nil {
			targets[b.ID] = best.ID
		} else {
			targets[b.ID] = ""
		}
	}
	return targets
}

func indexBindings(bindings []ir.Binding) map[string]ir.Binding {
	index := make(map[string]ir.Binding, len(bindings))
	for _, b := range bindings {
		index[b.ID] = b
	}
	return index
}

// followOverrides walks a binding's override chain to its head with an
// explicit visited set. A revisited binding is an OVERRIDE_CYCLE.
func followOverrides(index map[string]ir.Binding, b ir.Binding) (ir.Binding, error) {
	visited := map[string]bool{b.ID: true}
	path := []string{b.ID}
	cur := b
	for cur.OverriddenBy != "" {
		next, ok := index[cur.OverriddenBy]
		if !ok {
			// Pointer outside the term set; the chain ends here.
			return cur, nil
		}
		path = append(path, next.ID)
		if visited[next.ID] {
			return ir.Binding{}, newError(ErrCodeOverrideCycle, b.DocumentID,
				fmt.Sprintf("override chain of %q loops", b.Term), path...)
		}
		visited[next.ID] = true
		cur = next
	}
	return cur, nil
}

// Resolve returns the effective binding of term within scope.
//
// Search order, stopping at the first tier with candidates:
//  1. bindings defined in the scope document
//  2. bindings defined in the family's governing document
//  3. bindings defined in the latest amendment, by amendment sequence
//  4. every visible binding of the family
//
// Each candidate is followed along its override chain. One surviving
// binding resolves; several tied bindings give an ambiguous result naming
// all of them. A term with no visible binding is unbound.
func (e *Engine) Resolve(ctx context.Context, term string, scope Scope) (ir.BindingResult, error) {
	defer metrics.ObserveDuration("resolve", time.Now())

	scope, err := e.completeScope(ctx, scope)
	if err != nil {
		return ir.BindingResult{}, err
	}
	key := ir.NormalizeTerm(term)
	cacheKey := e.cache.key(scope, key)
	if r, ok := e.cache.get(cacheKey); ok {
		r.Term = term
		return r, nil
	}

	order, err := e.FamilyOrder(ctx, scope.FamilyID)
	if err != nil {
		return ir.BindingResult{}, err
	}
	all, err := e.store.BindingsForTerm(ctx, scope.FamilyID, key)
	if err != nil {
		return ir.BindingResult{}, err
	}

	result, err := resolveBindings(ctx, order, scope, all)
	if err != nil {
		return ir.BindingResult{}, err
	}
	result.Term = term
	e.cache.set(cacheKey, result)

	metrics.RecordResolution(string(result.Status), result.Tier)
	switch result.Status {
	case ir.BindingAmbiguous:
		e.logger.Warn("ambiguous binding",
			"term", term,
			"family_id", scope.FamilyID,
			"tier", result.Tier,
			"candidates", len(result.Candidates))
	default:
		e.logger.Debug("binding resolved",
			"term", term,
			"family_id", scope.FamilyID,
			"status", result.Status,
			"tier", result.Tier)
	}
	return result, nil
}

// MustResolve is Resolve for callers that need exactly one binding: an
// ambiguous result becomes AMBIGUOUS_BINDING and an unbound term NOT_FOUND.
func (e *Engine) MustResolve(ctx context.Context, term string, scope Scope) (ir.Binding, error) {
	r, err := e.Resolve(ctx, term, scope)
	if err != nil {
		return ir.Binding{}, err
	}
	switch r.Status {
	case ir.BindingResolved:
		return *r.Binding, nil
	case ir.BindingAmbiguous:
		ids := make([]string, len(r.Candidates))
		for i, c := range r.Candidates {
			ids[i] = c.ID
		}
		return ir.Binding{}, newError(ErrCodeAmbiguousBinding, scope.DocumentID,
			fmt.Sprintf("term %q has %d tied bindings", term, len(ids)), ids...)
	default:
		return ir.Binding{}, newError(ErrCodeNotFound, scope.DocumentID, fmt.Sprintf("term %q is not defined", term))
	}
}

func (e *Engine) completeScope(ctx context.Context, scope Scope) (Scope, error) {
	if scope.DocumentID == "" {
		if scope.FamilyID == "" {
			return Scope{}, newError(ErrCodeInvalidInput, "", "scope needs a document or a family")
		}
		return scope, nil
	}
	doc, err := e.store.GetDocument(ctx, scope.DocumentID)
	if err != nil {
		return Scope{}, mapStoreError(err, scope.DocumentID)
	}
	if scope.FamilyID != "" && scope.FamilyID != doc.FamilyID {
		return Scope{}, newError(ErrCodeInvalidInput, scope.DocumentID,
			fmt.Sprintf("document belongs to family %q, not %q", doc.FamilyID, scope.FamilyID))
	}
	scope.FamilyID = doc.FamilyID
	return scope, nil
}

// resolveBindings applies the tiered search to every binding of one term.
func resolveBindings(ctx context.Context, order FamilyOrder, scope Scope, all []ir.Binding) (ir.BindingResult, error) {
	visible := make([]ir.Binding, 0, len(all))
	for _, b := range all {
		if b.Scope == ir.ScopeDocument && b.DocumentID != scope.DocumentID {
			continue
		}
		visible = append(visible, b)
	}
	index := indexBindings(visible)

	inDocs := func(match func(documentID string) bool) []ir.Binding {
		var out []ir.Binding
		for _, b := range visible {
			if match(b.DocumentID) {
				out = append(out, b)
			}
		}
		return out
	}

	latestSeq := -1
	for _, b := range visible {
		if r, ok := order.Rank(b.DocumentID); ok && r.Tier == tierAmendment && r.Seq > latestSeq {
			latestSeq = r.Seq
		}
	}

	tiers := []struct {
		name       string
		candidates []ir.Binding
	}{
		{TierSameDocument, inDocs(func(id string) bool { return scope.DocumentID != "" && id == scope.DocumentID })},
		{TierGoverning, inDocs(func(id string) bool { return order.Governing != "" && id == order.Governing })},
		{TierLatestAmendment, inDocs(func(id string) bool {
			r, ok := order.Rank(id)
			return ok && r.Tier == tierAmendment && r.Seq == latestSeq
		})},
		{TierFamily, visible},
	}

	for _, tier := range tiers {
		if len(tier.candidates) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return ir.BindingResult{}, err
		}
		winners, err := tierWinners(order, index, visible, tier.candidates)
		if err != nil {
			return ir.BindingResult{}, err
		}
		if len(winners) == 1 {
			b := winners[0]
			return ir.BindingResult{Status: ir.BindingResolved, Tier: headTier(order, scope, latestSeq, b), Binding: &b}, nil
		}
		return ir.BindingResult{Status: ir.BindingAmbiguous, Tier: tier.name, Candidates: winners}, nil
	}
	return ir.BindingResult{Status: ir.BindingUnbound}, nil
}

// headTier names the tier of the binding a search returned. It differs
// from the searched tier when a candidate was followed to the binding
// overriding it.
func headTier(order FamilyOrder, scope Scope, latestSeq int, b ir.Binding) string {
	switch {
	case scope.DocumentID != "" && b.DocumentID == scope.DocumentID:
		return TierSameDocument
	case order.Governing != "" && b.DocumentID == order.Governing:
		return TierGoverning
	}
	if r, ok := order.Rank(b.DocumentID); ok && r.Tier == tierAmendment && r.Seq == latestSeq {
		return TierLatestAmendment
	}
	return TierFamily
}

// tierWinners maps tier candidates to the bindings they resolve to. A
// candidate that is not overridden stands for itself. An overridden one
// resolves to its chain head plus every other head of equal rank, since
// the override gives no reason to prefer one of them.
func tierWinners(order FamilyOrder, index map[string]ir.Binding, visible, candidates []ir.Binding) ([]ir.Binding, error) {
	seen := make(map[string]bool)
	var winners []ir.Binding
	add := func(b ir.Binding) {
		if !seen[b.ID] {
			seen[b.ID] = true
			winners = append(winners, b)
		}
	}

	for _, c := range candidates {
		if c.Scope == ir.ScopeDocument || !c.Overridden() {
			add(c)
			continue
		}
		head, err := followOverrides(index, c)
		if err != nil {
			return nil, err
		}
		add(head)
		headRank, _ := order.Rank(head.DocumentID)
		for _, peer := range visible {
			if peer.Scope != ir.ScopeFamily || peer.Overridden() {
				continue
			}
			if r, _ := order.Rank(peer.DocumentID); r.Compare(headRank) == 0 {
				add(peer)
			}
		}
	}
	return winners, nil
}
