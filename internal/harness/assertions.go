package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/truthgraph/internal/engine"
	"github.com/roach88/truthgraph/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Subject  string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s %s\n", e.Type, e.Subject)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages. An empty result means all passed.
func EvaluateAssertions(ctx context.Context, e *engine.Engine, applied *Applied, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(ctx, e, applied, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return failures
}

func evaluate(ctx context.Context, e *engine.Engine, applied *Applied, a Assertion) error {
	switch a.Type {
	case AssertBinding:
		return assertBinding(ctx, e, a)
	case AssertEffective:
		return assertEffective(ctx, e, a)
	case AssertGaps:
		return assertGaps(ctx, e, a)
	case AssertReachable:
		return assertReachable(ctx, e, a)
	case AssertReferences:
		return assertReferences(applied, a)
	case AssertProvenance:
		return assertProvenance(ctx, e, applied, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertBinding(ctx context.Context, e *engine.Engine, a Assertion) error {
	r, err := e.Resolve(ctx, a.Term, engine.Scope{DocumentID: a.Document, FamilyID: a.Family})
	if err != nil {
		return err
	}
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Subject: fmt.Sprintf("%q", a.Term), Expected: expected, Actual: actual}
	}
	if a.Status != "" && string(r.Status) != a.Status {
		return fail("status "+a.Status, "status "+string(r.Status))
	}
	if a.Value == "" && a.From == "" {
		return nil
	}
	if r.Binding == nil {
		return fail(fmt.Sprintf("value %q", a.Value), "no binding")
	}
	if a.Value != "" && r.Binding.Value != a.Value {
		return fail(fmt.Sprintf("value %q", a.Value), fmt.Sprintf("value %q", r.Binding.Value))
	}
	if a.From != "" && r.Binding.DocumentID != a.From {
		return fail("from "+a.From, "from "+r.Binding.DocumentID)
	}
	return nil
}

func assertEffective(ctx context.Context, e *engine.Engine, a Assertion) error {
	kind, err := ir.ParseFactKind(a.Kind)
	if err != nil {
		return err
	}
	d, err := e.EffectiveValue(ctx, kind, a.Key, a.Family)
	if err != nil {
		return err
	}
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Subject: a.Key, Expected: expected, Actual: actual}
	}
	if a.Status != "" && string(d.Status) != a.Status {
		return fail("status "+a.Status, fmt.Sprintf("status %s (%s)", d.Status, d.Reason))
	}
	if a.Value != "" {
		if d.Effective == nil {
			return fail(fmt.Sprintf("value %q", a.Value), "no effective fact")
		}
		if d.Effective.Value != a.Value {
			return fail(fmt.Sprintf("value %q", a.Value), fmt.Sprintf("value %q", d.Effective.Value))
		}
	}
	return nil
}

func assertGaps(ctx context.Context, e *engine.Engine, a Assertion) error {
	var report engine.GapReport
	var err error
	if a.Document != "" {
		report, err = e.GapReport(ctx, a.Document)
	} else {
		report, err = e.FamilyGapReport(ctx, a.Family)
	}
	if err != nil {
		return err
	}
	var missing, partial []string
	for _, g := range report.Gaps {
		missing = append(missing, g.Missing...)
		partial = append(partial, g.Partial...)
	}
	subject := a.Document
	if subject == "" {
		subject = a.Family
	}
	if !sameSet(missing, a.Missing) {
		return &AssertionError{Type: a.Type, Subject: subject,
			Expected: "missing " + formatList(a.Missing), Actual: "missing " + formatList(missing)}
	}
	if !sameSet(partial, a.Partial) {
		return &AssertionError{Type: a.Type, Subject: subject,
			Expected: "partial " + formatList(a.Partial), Actual: "partial " + formatList(partial)}
	}
	return nil
}

func assertReachable(ctx context.Context, e *engine.Engine, a Assertion) error {
	doc, err := e.Document(ctx, a.Document)
	if err != nil {
		return err
	}
	clauses, err := e.Store().FamilyClauses(ctx, doc.FamilyID)
	if err != nil {
		return err
	}
	sections := make(map[string]string, len(clauses))
	start := ""
	for _, c := range clauses {
		sections[c.ID] = c.DocumentID + ":" + c.SectionNumber
		if c.DocumentID == a.Document && c.SectionNumber == a.Section && start == "" {
			start = c.ID
		}
	}
	subject := a.Document + ":" + a.Section
	if start == "" {
		return &AssertionError{Type: a.Type, Subject: subject, Expected: "a clause", Actual: "no clause with that section"}
	}

	reached, err := e.Reachable(ctx, start)
	if err != nil {
		return err
	}
	var got, cycle []string
	for _, r := range reached {
		label := sections[r.ClauseID]
		got = append(got, label)
		if r.InCycle {
			cycle = append(cycle, label)
		}
	}
	if a.Sections != nil && !slices.Equal(got, qualify(a.Document, a.Sections)) {
		return &AssertionError{Type: a.Type, Subject: subject,
			Expected: formatList(qualify(a.Document, a.Sections)), Actual: formatList(got)}
	}
	if a.Cycle != nil && !sameSet(cycle, qualify(a.Document, a.Cycle)) {
		return &AssertionError{Type: a.Type, Subject: subject,
			Expected: "cycle " + formatList(qualify(a.Document, a.Cycle)), Actual: "cycle " + formatList(cycle)}
	}
	return nil
}

// qualify prefixes bare section numbers with the document. Entries that
// already name a document ("amend-1:2") are kept.
func qualify(documentID string, sections []string) []string {
	out := make([]string, len(sections))
	for i, s := range sections {
		if strings.Contains(s, ":") {
			out[i] = s
		} else {
			out[i] = documentID + ":" + s
		}
	}
	return out
}

func assertReferences(applied *Applied, a Assertion) error {
	report, ok := applied.References[a.Family]
	if !ok {
		return &AssertionError{Type: a.Type, Subject: a.Family, Expected: "a reference report", Actual: "family not applied"}
	}
	if a.Resolved != nil && report.Resolved != *a.Resolved {
		return &AssertionError{Type: a.Type, Subject: a.Family,
			Expected: fmt.Sprintf("%d resolved", *a.Resolved), Actual: fmt.Sprintf("%d resolved", report.Resolved)}
	}
	if a.Unresolved != nil && len(report.Unresolved) != *a.Unresolved {
		return &AssertionError{Type: a.Type, Subject: a.Family,
			Expected: fmt.Sprintf("%d unresolved", *a.Unresolved), Actual: fmt.Sprintf("%d unresolved", len(report.Unresolved))}
	}
	return nil
}

func assertProvenance(ctx context.Context, e *engine.Engine, applied *Applied, a Assertion) error {
	res, ok := applied.Inference(a.Inference)
	if !ok {
		return &AssertionError{Type: a.Type, Subject: a.Inference, Expected: "a recorded inference", Actual: "not recorded"}
	}
	if a.NeedsReview != nil && res.Inference.NeedsReview != *a.NeedsReview {
		return &AssertionError{Type: a.Type, Subject: a.Inference,
			Expected: fmt.Sprintf("needs_review %t", *a.NeedsReview), Actual: fmt.Sprintf("needs_review %t", res.Inference.NeedsReview)}
	}

	chain, err := e.ChainFor(ctx, engine.Answer{ID: a.Inference, InferenceIDs: []string{res.Inference.ID}})
	if err != nil {
		return err
	}
	facts, bindings := layerCounts(chain)
	if a.Facts != nil && facts != *a.Facts {
		return &AssertionError{Type: a.Type, Subject: a.Inference,
			Expected: fmt.Sprintf("%d facts", *a.Facts), Actual: fmt.Sprintf("%d facts", facts)}
	}
	if a.Bindings != nil && bindings != *a.Bindings {
		return &AssertionError{Type: a.Type, Subject: a.Inference,
			Expected: fmt.Sprintf("%d bindings", *a.Bindings), Actual: fmt.Sprintf("%d bindings", bindings)}
	}
	return nil
}

func layerCounts(chain ir.ProvenanceChain) (facts, bindings int) {
	for _, l := range chain.Links {
		switch l.Layer {
		case ir.LayerFact:
			facts++
		case ir.LayerBinding:
			bindings++
		}
	}
	return facts, bindings
}

func sameSet(got, want []string) bool {
	a := slices.Clone(got)
	b := slices.Clone(want)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

func formatList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}
