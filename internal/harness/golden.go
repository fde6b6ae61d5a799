package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/truthgraph/internal/engine"
	"github.com/roach88/truthgraph/internal/ir"
)

// Snapshot renders, for every family the bundles touched, the family gap
// report, the reference resolution counts and the graph export summary,
// followed by the recorded inferences. Content-addressed IDs are left out
// so the text stays stable across identity changes.
func Snapshot(ctx context.Context, e *engine.Engine, applied *Applied) (string, error) {
	var b strings.Builder
	for i, family := range applied.Families() {
		if i > 0 {
			b.WriteString("\n")
		}
		report, err := e.FamilyGapReport(ctx, family)
		if err != nil {
			return "", err
		}
		if err := report.Render(&b); err != nil {
			return "", err
		}

		refs := applied.References[family]
		fmt.Fprintf(&b, "\nReferences: %d examined, %d resolved, %d unresolved\n\n",
			refs.Examined, refs.Resolved, len(refs.Unresolved))

		export, err := e.ExportGraph(ctx, family)
		if err != nil {
			return "", err
		}
		b.WriteString(export.Summary())
	}

	if len(applied.Inferences) > 0 {
		fmt.Fprintf(&b, "\nInferences: %d\n", len(applied.Inferences))
		for _, inf := range applied.Inferences {
			facts, bindings := layerCounts(inf.Result.Chain)
			fmt.Fprintf(&b, "  %s %s confidence=%.2f needs_review=%t facts=%d bindings=%d\n",
				inf.Ref, inf.Result.Inference.Kind, inf.Result.Inference.Confidence,
				inf.Result.Inference.NeedsReview, facts, bindings)
		}
	}
	return b.String(), nil
}

// AssertGolden compares text against testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, text string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(text))
}

// RunWithGolden runs a scenario, fails the test on assertion failures and
// compares its snapshot against the scenario's golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()
	result, err := Run(context.Background(), scenario)
	if err != nil {
		t.Fatalf("run %s: %v", scenario.Name, err)
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	AssertGolden(t, scenario.Name, result.Snapshot)
	return result
}

// chainFacts returns the fact values of a chain, in chain order.
func chainFacts(chain ir.ProvenanceChain) []string {
	facts := chain.Facts()
	out := make([]string, len(facts))
	for i, l := range facts {
		out[i] = l.Value
	}
	return out
}
