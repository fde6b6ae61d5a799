package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/truthgraph/internal/ir"
)

// DefaultMethod is recorded on facts and signals that name no method.
const DefaultMethod = "bundle"

// Bundle is one ingestion bundle.
type Bundle struct {
	Documents  []DocumentEntry  `yaml:"documents"`
	Inferences []InferenceEntry `yaml:"inferences,omitempty"`
}

// DocumentEntry is a document with its facts and clause signals.
type DocumentEntry struct {
	ID        string            `yaml:"id"`
	Family    string            `yaml:"family"`
	Title     string            `yaml:"title,omitempty"`
	Role      string            `yaml:"role"`
	Seq       int               `yaml:"seq,omitempty"`
	Governing bool              `yaml:"governing,omitempty"`
	Facts     []FactEntry       `yaml:"facts,omitempty"`
	Clauses   []ir.ClauseSignal `yaml:"clauses,omitempty"`
}

// FactEntry is one extracted fact.
type FactEntry struct {
	Ref        string `yaml:"ref,omitempty"`
	Kind       string `yaml:"kind"`
	EntityType string `yaml:"entity_type,omitempty"`
	Value      string `yaml:"value"`
	Text       string `yaml:"text,omitempty"`
	Start      int    `yaml:"start"`
	End        *int   `yaml:"end,omitempty"`
	Location   string `yaml:"location,omitempty"`
	Path       string `yaml:"path,omitempty"`
	Page       *int   `yaml:"page,omitempty"`
	Method     string `yaml:"method,omitempty"`
}

// InferenceEntry is an inference to record after ingestion.
type InferenceEntry struct {
	Ref        string   `yaml:"ref"`
	Document   string   `yaml:"document,omitempty"`
	Family     string   `yaml:"family,omitempty"`
	Kind       string   `yaml:"kind"`
	Claim      string   `yaml:"claim"`
	Facts      []string `yaml:"facts,omitempty"`
	Terms      []string `yaml:"terms,omitempty"`
	External   []string `yaml:"external,omitempty"`
	Reasoning  string   `yaml:"reasoning,omitempty"`
	Confidence float64  `yaml:"confidence"`
	Basis      string   `yaml:"basis,omitempty"`
	Producer   string   `yaml:"producer"`
	Revises    string   `yaml:"revises,omitempty"`
}

// Document converts the entry to a document record.
func (d DocumentEntry) Document() ir.Document {
	title := d.Title
	if title == "" {
		title = d.ID
	}
	return ir.Document{
		ID:           d.ID,
		FamilyID:     d.Family,
		Title:        title,
		Role:         ir.DocumentRole(d.Role),
		AmendmentSeq: d.Seq,
		Governing:    d.Governing,
	}
}

// Fact converts the entry to a fact of the given document.
func (f FactEntry) Fact(documentID string) (ir.Fact, error) {
	kind, err := ir.ParseFactKind(f.Kind)
	if err != nil {
		return ir.Fact{}, err
	}
	text := f.Text
	if text == "" {
		text = f.Value
	}
	end := f.Start + len(text)
	if f.End != nil {
		end = *f.End
	}
	method := f.Method
	if method == "" {
		method = DefaultMethod
	}
	return ir.Fact{
		DocumentID: documentID,
		Kind:       kind,
		EntityType: f.EntityType,
		Value:      f.Value,
		SourceText: text,
		Span:       ir.Span{Start: f.Start, End: end},
		Location:   f.Location,
		Path:       f.Path,
		Page:       f.Page,
		Method:     method,
	}, nil
}

// Signals returns the clause signals with the default method filled in.
func (d DocumentEntry) Signals() []ir.ClauseSignal {
	out := make([]ir.ClauseSignal, len(d.Clauses))
	for i, s := range d.Clauses {
		if s.Method == "" {
			s.Method = DefaultMethod
		}
		out[i] = s
	}
	return out
}

// LoadBundle reads and parses a bundle file.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle file: %w", err)
	}
	b, err := ParseBundle(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// ParseBundle parses bundle YAML. Unknown fields are rejected.
func ParseBundle(data []byte) (*Bundle, error) {
	var b Bundle
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateBundle(&b); err != nil {
		return nil, fmt.Errorf("invalid bundle: %w", err)
	}
	return &b, nil
}

// validateBundle checks the structure the engine does not: local refs must
// be unique and inferences must cite refs that exist.
func validateBundle(b *Bundle) error {
	if len(b.Documents) == 0 && len(b.Inferences) == 0 {
		return fmt.Errorf("bundle is empty")
	}
	docs := make(map[string]bool)
	refs := make(map[string]bool)
	for i, d := range b.Documents {
		if d.ID == "" {
			return fmt.Errorf("document %d: id is required", i)
		}
		if docs[d.ID] {
			return fmt.Errorf("document %s: listed twice", d.ID)
		}
		docs[d.ID] = true
		for j, f := range d.Facts {
			if _, err := ir.ParseFactKind(f.Kind); err != nil {
				return fmt.Errorf("document %s fact %d: %w", d.ID, j, err)
			}
			if f.Ref == "" {
				continue
			}
			if refs[f.Ref] {
				return fmt.Errorf("document %s fact %d: duplicate ref %q", d.ID, j, f.Ref)
			}
			refs[f.Ref] = true
		}
	}

	inferences := make(map[string]bool)
	for i, inf := range b.Inferences {
		if inf.Ref == "" {
			return fmt.Errorf("inference %d: ref is required", i)
		}
		if inferences[inf.Ref] {
			return fmt.Errorf("inference %s: duplicate ref", inf.Ref)
		}
		for _, ref := range inf.Facts {
			if !refs[ref] {
				return fmt.Errorf("inference %s: unknown fact ref %q", inf.Ref, ref)
			}
		}
		if inf.Revises != "" && !inferences[inf.Revises] {
			return fmt.Errorf("inference %s: revises %q, which is not listed before it", inf.Ref, inf.Revises)
		}
		inferences[inf.Ref] = true
	}
	return nil
}
