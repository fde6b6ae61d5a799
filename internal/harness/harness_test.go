package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/truthgraph/internal/engine"
	"github.com/roach88/truthgraph/internal/schema"
)

func loadAcme(t *testing.T) (*engine.Engine, *Bundle) {
	t.Helper()
	s, err := schema.Load("testdata/schemas/contract.yaml")
	require.NoError(t, err)
	e, st, err := NewEngine(t.TempDir(), s)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	b, err := LoadBundle("testdata/bundles/acme.yaml")
	require.NoError(t, err)
	return e, b
}

func TestRunWithGolden_AcmeFamily(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/acme_family.yaml")
	require.NoError(t, err)

	result := RunWithGolden(t, scenario)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 8, result.Applied.Inserted)
	assert.Equal(t, 2, result.Applied.Bindings)
	assert.Equal(t, 4, result.Applied.Clauses)
	assert.Equal(t, []string{"msa", "amend-1"}, result.Applied.Documents)
}

func TestApply_ChainCitesDefiningFact(t *testing.T) {
	ctx := context.Background()
	e, b := loadAcme(t)
	applied := NewApplied()
	require.NoError(t, Apply(ctx, e, b, applied))

	res, ok := applied.Inference("notice-answer")
	require.True(t, ok)
	assert.Equal(t, "inf-0001", res.Inference.ID)
	assert.Equal(t, "reviewer", res.Inference.ConfidenceBasis)
	assert.ElementsMatch(t, []string{"60 days", "Notice Period"}, chainFacts(res.Chain))
}

func TestApply_ReapplyIsNoOp(t *testing.T) {
	ctx := context.Background()
	e, b := loadAcme(t)
	b.Inferences = nil

	first := NewApplied()
	require.NoError(t, Apply(ctx, e, b, first))
	second := NewApplied()
	require.NoError(t, Apply(ctx, e, b, second))

	assert.Equal(t, 8, first.Inserted)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 8, second.Unchanged)
	assert.Equal(t, first.Facts, second.Facts, "content-addressed IDs are stable")
	assert.Equal(t, 0, second.References["acme"].Resolved, "resolved references are not revisited")
	assert.Len(t, second.References["acme"].Unresolved, 1)
}

func TestEvaluateAssertions_ReportsFailures(t *testing.T) {
	ctx := context.Background()
	e, b := loadAcme(t)
	applied := NewApplied()
	require.NoError(t, Apply(ctx, e, b, applied))

	two := 2
	failures := EvaluateAssertions(ctx, e, applied, []Assertion{
		{Type: AssertBinding, Term: "Notice Period", Document: "msa", Value: "thirty days"},
		{Type: AssertGaps, Document: "msa"},
		{Type: AssertReferences, Family: "acme", Unresolved: &two},
		{Type: AssertEffective, Family: "acme", Kind: "entity", Key: "notice_period", Value: "60 days"},
	})
	require.Len(t, failures, 3)
	assert.Contains(t, failures[0], `Expected: value "thirty days"`)
	assert.Contains(t, failures[0], `Actual: value "sixty days"`)
	assert.Contains(t, failures[1], "partial [notice_period]")
	assert.Contains(t, failures[2], "1 unresolved")
}

func TestParseBundle_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "documents: []\n", "bundle is empty"},
		{"unknown field", "documents:\n  - id: a\n    famly: x\n", "field famly not found"},
		{"bad kind", "documents:\n  - id: a\n    facts:\n      - kind: paragraph\n        value: x\n", "document a fact 0"},
		{"duplicate ref", "documents:\n  - id: a\n    facts:\n      - {ref: r, kind: entity, value: x}\n      - {ref: r, kind: entity, value: y}\n", `duplicate ref "r"`},
		{"unknown fact ref", "documents:\n  - id: a\ninferences:\n  - {ref: i, facts: [nope]}\n", `unknown fact ref "nope"`},
		{"revises later", "documents:\n  - id: a\ninferences:\n  - {ref: i, revises: j}\n  - {ref: j}\n", `revises "j"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBundle([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFactEntry_Defaults(t *testing.T) {
	f, err := FactEntry{Kind: "entity", EntityType: "money", Value: "USD 5", Start: 10}.Fact("msa")
	require.NoError(t, err)
	assert.Equal(t, "USD 5", f.SourceText)
	assert.Equal(t, 15, f.Span.End)
	assert.Equal(t, DefaultMethod, f.Method)
	assert.Equal(t, "msa", f.DocumentID)
}

func TestLoadScenario_Validation(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	tests := []struct {
		name string
		body string
		want string
	}{
		{"no name", "description: d\nbundles: [b.yaml]\n", "name is required"},
		{"no bundles", "name: n\ndescription: d\n", "bundles list is required"},
		{"unknown assertion", "name: n\ndescription: d\nbundles: [b.yaml]\nassertions:\n  - type: trace_order\n", `unknown assertion type "trace_order"`},
		{"binding without term", "name: n\ndescription: d\nbundles: [b.yaml]\nassertions:\n  - {type: binding, family: f}\n", "binding requires term"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(write(tt.name+".yaml", tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	s, err := LoadScenario(write("ok.yaml", "name: n\ndescription: d\nschema: s.cue\nbundles: [b.yaml]\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "b.yaml"), s.Bundles[0])
	assert.Equal(t, filepath.Join(dir, "s.cue"), s.Schema)
}
