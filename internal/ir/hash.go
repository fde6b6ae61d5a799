package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainFact      = "truthgraph/fact/v1"
	DomainBinding   = "truthgraph/binding/v1"
	DomainClause    = "truthgraph/clause/v1"
	DomainCrossRef  = "truthgraph/xref/v1"
	DomainFactMatch = "truthgraph/fact-content/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// factContent is the identity-bearing content of a fact.
// ExtractedAt is excluded so re-extraction yields the same identity.
func factContent(f Fact) map[string]any {
	obj := map[string]any{
		"document_id": f.DocumentID,
		"kind":        string(f.Kind),
		"entity_type": f.EntityType,
		"value":       f.Value,
		"source_text": f.SourceText,
		"start":       f.Span.Start,
		"end":         f.Span.End,
		"location":    f.Location,
		"path":        f.Path,
		"method":      f.Method,
	}
	if f.Page != nil {
		obj["page"] = *f.Page
	}
	return obj
}

// FactID computes the content-addressed identity of a fact.
// The ID is stable across re-extraction of unchanged source text.
func FactID(f Fact) (string, error) {
	canonical, err := MarshalCanonical(factContent(f))
	if err != nil {
		return "", fmt.Errorf("FactID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFact, canonical), nil
}

// FactContentHash hashes the comparable content of a fact, independent of
// its ID. Two facts with the same ID and different content hashes conflict.
func FactContentHash(f Fact) (string, error) {
	canonical, err := MarshalCanonical(factContent(f))
	if err != nil {
		return "", fmt.Errorf("FactContentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFactMatch, canonical), nil
}

// BindingID computes the content-addressed identity of a binding.
// Term case and spacing do not affect identity.
func BindingID(b Binding) (string, error) {
	obj := map[string]any{
		"document_id": b.DocumentID,
		"kind":        string(b.Kind),
		"term":        NormalizeTerm(b.Term),
		"value":       b.Value,
		"fact_id":     b.FactID,
		"scope":       string(b.Scope),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("BindingID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBinding, canonical), nil
}

// ClauseID computes the identity of a clause from its classification signal.
func ClauseID(documentID string, sig ClauseSignal) (string, error) {
	obj := map[string]any{
		"document_id":    documentID,
		"clause_type":    sig.ClauseType,
		"heading":        sig.Heading,
		"section_number": sig.SectionNumber,
		"start":          sig.Span.Start,
		"end":            sig.Span.End,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ClauseID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainClause, canonical), nil
}

// CrossReferenceID computes the identity of a cross-reference from the
// clause it sits in and the fact carrying its text.
func CrossReferenceID(sourceClauseID, factID string) (string, error) {
	obj := map[string]any{
		"source_clause_id": sourceClauseID,
		"fact_id":          factID,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("CrossReferenceID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCrossRef, canonical), nil
}

// MustFactID is like FactID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFactID(f Fact) string {
	id, err := FactID(f)
	if err != nil {
		panic(err)
	}
	return id
}
