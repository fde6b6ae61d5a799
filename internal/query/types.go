package query

import "github.com/roach88/truthgraph/internal/ir"

// Predicate is a single fact filter condition.
//
// This is a sealed interface: only types in this package implement it, so
// the compiler can switch exhaustively.
type Predicate interface {
	predicateNode()
}

// DocumentIs matches facts owned by one document.
type DocumentIs struct {
	DocumentID string
}

func (DocumentIs) predicateNode() {}

// FamilyIs matches facts owned by any document of a family.
type FamilyIs struct {
	FamilyID string
}

func (FamilyIs) predicateNode() {}

// KindIs matches one fact kind.
type KindIs struct {
	Kind ir.FactKind
}

func (KindIs) predicateNode() {}

// EntityTypeIs matches one entity sub-type.
type EntityTypeIs struct {
	EntityType string
}

func (EntityTypeIs) predicateNode() {}

// TextContains matches facts whose value or source text contains Text.
// Matching is an exact substring match.
type TextContains struct {
	Text string
}

func (TextContains) predicateNode() {}

// IDIn matches an explicit set of fact identities.
type IDIn struct {
	IDs []string
}

func (IDIn) predicateNode() {}

// And matches when every child predicate matches. An empty And matches all.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// DefaultPageSize is the number of rows fetched per keyset page.
const DefaultPageSize = 256

// Filter is a conjunctive fact query.
type Filter struct {
	Where    Predicate // nil matches every fact
	PageSize int       // <= 0 means DefaultPageSize
}

// All returns a Filter combining the given predicates with And.
func All(preds ...Predicate) Filter {
	if len(preds) == 1 {
		return Filter{Where: preds[0]}
	}
	return Filter{Where: And{Predicates: preds}}
}

// PageSizeOrDefault returns the effective page size.
func (f Filter) PageSizeOrDefault() int {
	if f.PageSize <= 0 {
		return DefaultPageSize
	}
	return f.PageSize
}

// Cursor is the structural position of the last row of a page.
// The zero Cursor means "start from the beginning".
type Cursor struct {
	DocumentID string
	Start      int
	End        int
	FactID     string
}

// IsZero reports whether c starts from the beginning.
func (c Cursor) IsZero() bool {
	return c == Cursor{}
}

// CursorFor returns the position of f.
func CursorFor(f ir.Fact) Cursor {
	return Cursor{DocumentID: f.DocumentID, Start: f.Span.Start, End: f.Span.End, FactID: f.ID}
}
