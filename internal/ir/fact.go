package ir

import "time"

// Span is a half-open character offset range [Start, End) in the source text.
type Span struct {
	Start int `json:"start" validate:"gte=0"`
	End   int `json:"end" validate:"gtefield=Start"`
}

// Contains reports whether other lies entirely inside s.
func (s Span) Contains(other Span) bool {
	return other.Start >= s.Start && other.End <= s.End
}

// Fact is an atomic, immutable unit of extracted evidence.
//
// Facts carry no confidence score. Re-running extraction on unchanged
// source text must produce the same ID and offsets; see FactID.
type Fact struct {
	ID          string    `json:"id"` // Content-addressed when empty at ingestion
	DocumentID  string    `json:"document_id" validate:"required"`
	Kind        FactKind  `json:"kind" validate:"required,oneof=entity text_span table_cell clause_text cross_reference"`
	EntityType  string    `json:"entity_type,omitempty"`
	Value       string    `json:"value"`
	SourceText  string    `json:"source_text" validate:"required"`
	Span        Span      `json:"span"`
	Location    string    `json:"location,omitempty"` // Human-readable hint, e.g. "Section 12.2, para 1"
	Path        string    `json:"path,omitempty"`     // Structural path, e.g. "body/section[12]/p[1]"
	Page        *int      `json:"page,omitempty"`
	Method      string    `json:"method" validate:"required"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// SameContent reports whether two facts describe identical evidence.
// ExtractedAt is excluded: re-extraction of unchanged text is not a change.
func (f Fact) SameContent(other Fact) bool {
	if (f.Page == nil) != (other.Page == nil) {
		return false
	}
	if f.Page != nil && *f.Page != *other.Page {
		return false
	}
	return f.DocumentID == other.DocumentID &&
		f.Kind == other.Kind &&
		f.EntityType == other.EntityType &&
		f.Value == other.Value &&
		f.SourceText == other.SourceText &&
		f.Span == other.Span &&
		f.Location == other.Location &&
		f.Path == other.Path &&
		f.Method == other.Method
}
