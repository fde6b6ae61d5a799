package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/truthgraph/internal/ir"
	"github.com/roach88/truthgraph/internal/testutil"
)

func TestParseDefinition(t *testing.T) {
	tests := map[string]struct {
		entityType string
		text       string
		kind       ir.BindingKind
		term       string
		value      string
		scope      ir.BindingScope
	}{
		"means": {
			entityType: EntityDefinedTerm,
			text:       `"Effective Date" means 1 March 2024.`,
			kind:       ir.BindingDefinition,
			term:       "Effective Date",
			value:      "1 March 2024",
			scope:      ir.ScopeFamily,
		},
		"shall mean": {
			entityType: EntityDefinedTerm,
			text:       `"Services" shall mean the services in Schedule 1;`,
			kind:       ir.BindingDefinition,
			term:       "Services",
			value:      "the services in Schedule 1",
			scope:      ir.ScopeFamily,
		},
		"curly quotes": {
			entityType: EntityDefinedTerm,
			text:       "\u201cTerm\u201d refers to the Initial Term.",
			kind:       ir.BindingDefinition,
			term:       "Term",
			value:      "the Initial Term",
			scope:      ir.ScopeFamily,
		},
		"alias": {
			entityType: EntityAlias,
			text:       `Acme Holdings Limited (the "Supplier")`,
			kind:       ir.BindingAlias,
			term:       "Supplier",
			value:      "Acme Holdings Limited",
			scope:      ir.ScopeFamily,
		},
		"local to schedule": {
			entityType: EntityDefinedTerm,
			text:       `"Fee" means for the purposes of this Schedule the monthly fee.`,
			kind:       ir.BindingDefinition,
			term:       "Fee",
			value:      "for the purposes of this Schedule the monthly fee",
			scope:      ir.ScopeDocument,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f := ir.Fact{EntityType: tc.entityType, SourceText: tc.text}
			kind, term, value, scope, ok := parseDefinition(f)
			require.True(t, ok)
			assert.Equal(t, tc.kind, kind)
			assert.Equal(t, tc.term, term)
			assert.Equal(t, tc.value, value)
			assert.Equal(t, tc.scope, scope)
		})
	}
}

func TestParseDefinition_Unparseable(t *testing.T) {
	_, _, _, _, ok := parseDefinition(ir.Fact{EntityType: EntityDefinedTerm, SourceText: "Definitions are set out below."})
	assert.False(t, ok)

	_, _, _, _, ok = parseDefinition(ir.Fact{EntityType: "party", SourceText: `"X" means Y.`})
	assert.False(t, ok)
}

func TestResolve_AmendmentOverridesBase(t *testing.T) {
	ctx := context.Background()
	e := setupTestEngine(t)
	registerDocs(t, e, testutil.Base("msa", "acme"), testutil.Amendment("amend-1", "acme", 1))

	base := deriveOne(t, e, "msa", "Effective Date", "1 March 2024")
	amend := deriveOne(t, e, "amend-1", "Effective Date", "1 June 2024")

	for _, scope := range []Scope{{FamilyID: "acme"}, {DocumentID: "msa"}, {DocumentID: "amend-1"}} {
		r, err := e.Resolve(ctx, "effective date", scope)
		require.NoError(t, err)
		require.Equal(t, ir.BindingResolved, r.Status, "scope %+v", scope)
		assert.Equal(t, amend.ID, r.Binding.ID)
		assert.Equal(t, "1 June 2024", r.Binding.Value)
		assert.Equal(t, ir.LayerBinding, r.Layer())
	}

	stored, err := e.Store().GetBinding(ctx, base.ID)
	require.NoError(t, err)
	assert.Equal(t, amend.ID, stored.OverriddenBy, "base binding points at the amendment")
	assert.Equal(t, "1 March 2024", stored.Value, "overridden binding is retained")
}

func TestResolve_LaterAmendmentWins(t *testing.T) {
	ctx := context.Background()
	e := setupTestEngine(t)
	registerDocs(t, e,
		testutil.Base("msa", "acme"),
		testutil.Amendment("amend-2", "acme", 2),
		testutil.Amendment("amend-1", "acme", 1),
	)

	base := deriveOne(t, e, "msa", "Fee", "100")
	second := deriveOne(t, e, "amend-2", "Fee", "300")
	first := deriveOne(t, e, "amend-1", "Fee", "200")

	r, err := e.Resolve(ctx, "Fee", Scope{FamilyID: "acme"})
	require.NoError(t, err)
	require.Equal(t, ir.BindingResolved, r.Status)
	assert.Equal(t, second.ID, r.Binding.ID)

	chain := map[string]string{}
	for _, id := range []string{base.ID, first.ID, second.ID} {
		b, err := e.Store().GetBinding(ctx, id)
		require.NoError(t, err)
		chain[id] = b.OverriddenBy
	}
	assert.Equal(t, first.ID, chain[base.ID])
	assert.Equal(t, second.ID, chain[first.ID])
	assert.Empty(t, chain[second.ID])
}

func TestResolve_SameTierIsAmbiguous(t *testing.T) {
	ctx := context.Background()
	e := setupTestEngine(t)
	registerDocs(t, e, testutil.Schedule("sched-1", "acme"), testutil.Schedule("sched-2", "acme"))

	a := deriveOne(t, e, "sched-1", "Service Credit", "5% of fees")
	b := deriveOne(t, e, "sched-2", "Service Credit", "10% of fees")

	r, err := e.Resolve(ctx, "Service Credit", Scope{FamilyID: "acme"})
	require.NoError(t, err)
	assert.Equal(t, ir.BindingAmbiguous, r.Status)
	assert.Nil(t, r.Binding)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids(r.Candidates))

	_, err = e.MustResolve(ctx, "Service Credit", Scope{FamilyID: "acme"})
	require.Error(t, err)
	assert.True(t, IsAmbiguousBinding(err))
}

func TestResolve_SameDocumentTierFirst(t *testing.T) {
	ctx := context.Background()
	e := setupTestEngine(t)
	registerDocs(t, e, testutil.Schedule("sched-1", "acme"), testutil.Schedule("sched-2", "acme"))

	a := deriveOne(t, e, "sched-1", "Service Credit", "5% of fees")
	deriveOne(t, e, "sched-2", "Service Credit", "10% of fees")

	r, err := e.Resolve(ctx, "Service Credit", Scope{DocumentID: "sched-1"})
	require.NoError(t, err)
	require.Equal(t, ir.BindingResolved, r.Status)
	assert.Equal(t, TierSameDocument, r.Tier)
	assert.Equal(t, a.ID, r.Binding.ID)
}

func TestResolve_GoverningDocumentTier(t *testing.T) {
	ctx := context.Background()
	e := setupTestEngine(t)
	gov := testutil.Schedule("sched-1", "acme")
	gov.Governing = true
	registerDocs(t, e, gov, testutil.Schedule("sched-2", "acme"), testutil.Schedule("sched-3", "acme"))

	a := deriveOne(t, e, "sched-1", "Service Credit", "5% of fees")
	deriveOne(t, e, "sched-2", "Service Credit", "10% of fees")

	r, err := e.Resolve(ctx, "service credit", Scope{DocumentID: "sched-3"})
	require.NoError(t, err)
	require.Equal(t, ir.BindingResolved, r.Status)
	assert.Equal(t, TierGoverning, r.Tier)
	assert.Equal(t, a.ID, r.Binding.ID)
}

func TestResolve_GoverningBaseFollowsAmendmentOverride(t *testing.T) {
	ctx := context.Background()
	e := setupTestEngine(t)
	base := testutil.Base("msa", "acme")
	base.Governing = true
	registerDocs(t, e, base, testutil.Amendment("amend-1", "acme", 1), testutil.Schedule("sched-1", "acme"))

	deriveOne(t, e, "msa", "Notice Period", "thirty days")
	amend := deriveOne(t, e, "amend-1", "Notice Period", "sixty days")

	r, err := e.Resolve(ctx, "Notice Period", Scope{DocumentID: "sched-1"})
	require.NoError(t, err)
	require.Equal(t, ir.BindingResolved, r.Status)
	assert.Equal(t, amend.ID, r.Binding.ID)
	assert.Equal(t, TierLatestAmendment, r.Tier)
}

func TestResolve_DocumentScopedBindingStaysLocal(t *testing.T) {
	ctx := context.Background()
	e := setupTestEngine(t)
	registerDocs(t, e, testutil.Base("msa", "acme"), testutil.Schedule("sched-1", "acme"))

	f := testutil.Definition("sched-1", "Fee", "x", 0)
	f.SourceText = `"Fee" means in this Schedule the monthly charge.`
	f.Span.End = len(f.SourceText)
	ingestFacts(t, e, "sched-1", f)
	local, err := e.DeriveBindings(ctx, "sched-1")
	require.NoError(t, err)
	require.Len(t, local, 1)
	assert.Equal(t, ir.ScopeDocument, local[0].Scope)

	r, err := e.Resolve(ctx, "Fee", Scope{DocumentID: "msa"})
	require.NoError(t, err)
	assert.Equal(t, ir.BindingUnbound, r.Status)

	r, err = e.Resolve(ctx, "Fee", Scope{DocumentID: "sched-1"})
	require.NoError(t, err)
	assert.Equal(t, ir.BindingResolved, r.Status)
}

func TestResolve_Unbound(t *testing.T) {
	ctx := context.Background()
	e := setupTestEngine(t)
	registerDocs(t, e, testutil.Base("msa", "acme"))

	r, err := e.Resolve(ctx, "Nothing", Scope{FamilyID: "acme"})
	require.NoError(t, err)
	assert.Equal(t, ir.BindingUnbound, r.Status)

	_, err = e.MustResolve(ctx, "Nothing", Scope{FamilyID: "acme"})
	assert.True(t, IsNotFound(err))
}

func TestResolve_CacheFlushedByNewBinding(t *testing.T) {
	ctx := context.Background()
	e := setupTestEngine(t)
	registerDocs(t, e, testutil.Base("msa", "acme"), testutil.Amendment("amend-1", "acme", 1))

	base := deriveOne(t, e, "msa", "Term", "three years")
	r, err := e.Resolve(ctx, "Term", Scope{FamilyID: "acme"})
	require.NoError(t, err)
	assert.Equal(t, base.ID, r.Binding.ID)
	assert.Equal(t, 1, e.cache.len())

	amend := deriveOne(t, e, "amend-1", "Term", "five years")
	r, err = e.Resolve(ctx, "Term", Scope{FamilyID: "acme"})
	require.NoError(t, err)
	assert.Equal(t, amend.ID, r.Binding.ID)
}

func TestDeleteDocument_RelinksOverrides(t *testing.T) {
	ctx := context.Background()
	e := setupTestEngine(t)
	registerDocs(t, e, testutil.Base("msa", "acme"), testutil.Amendment("amend-1", "acme", 1))

	base := deriveOne(t, e, "msa", "Term", "three years")
	deriveOne(t, e, "amend-1", "Term", "five years")

	require.NoError(t, e.DeleteDocument(ctx, "amend-1"))

	stored, err := e.Store().GetBinding(ctx, base.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.OverriddenBy)

	r, err := e.Resolve(ctx, "Term", Scope{FamilyID: "acme"})
	require.NoError(t, err)
	require.Equal(t, ir.BindingResolved, r.Status)
	assert.Equal(t, base.ID, r.Binding.ID)
}

func TestFollowOverrides_DetectsCycle(t *testing.T) {
	a := ir.Binding{ID: "a", Term: "X", OverriddenBy: "b"}
	b := ir.Binding{ID: "b", Term: "X", OverriddenBy: "a"}
	index := indexBindings([]ir.Binding{a, b})

	_, err := followOverrides(index, a)
	require.Error(t, err)
	assert.True(t, IsOverrideCycle(err))
}

func TestRegisterDocument_SecondGoverningRejected(t *testing.T) {
	e := setupTestEngine(t)
	gov := testutil.Base("msa", "acme")
	gov.Governing = true
	registerDocs(t, e, gov)

	other := testutil.Amendment("amend-1", "acme", 1)
	other.Governing = true
	err := e.RegisterDocument(context.Background(), other)
	require.Error(t, err)
	assert.True(t, IsInvalidInput(err))
}

func TestRegisterDocument_FamilyMoveRejected(t *testing.T) {
	e := setupTestEngine(t)
	registerDocs(t, e, testutil.Base("msa", "acme"))

	err := e.RegisterDocument(context.Background(), testutil.Base("msa", "globex"))
	require.Error(t, err)
	assert.True(t, IsInvalidInput(err))
	var engErr *Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, "msa", engErr.DocumentID)
}
