package engine

import (
	"cmp"
	"fmt"

	"github.com/roach88/truthgraph/internal/ir"
)

// Rank is a document's precedence inside its family. Higher wins.
// Amendments outrank the base agreement, which outranks schedules;
// amendments rank among themselves by amendment sequence number.
type Rank struct {
	Tier int
	Seq  int
}

const (
	tierSchedule = iota
	tierBase
	tierAmendment
)

// Compare orders ranks: negative when r is lower than other.
func (r Rank) Compare(other Rank) int {
	if c := cmp.Compare(r.Tier, other.Tier); c != 0 {
		return c
	}
	return cmp.Compare(r.Seq, other.Seq)
}

func (r Rank) String() string {
	switch r.Tier {
	case tierAmendment:
		return fmt.Sprintf("amendment#%d", r.Seq)
	case tierBase:
		return "base"
	default:
		return "schedule"
	}
}

func rankOf(doc ir.Document) Rank {
	switch doc.Role {
	case ir.RoleAmendment:
		return Rank{Tier: tierAmendment, Seq: doc.AmendmentSeq}
	case ir.RoleBase:
		return Rank{Tier: tierBase}
	default:
		return Rank{Tier: tierSchedule}
	}
}

// FamilyOrder is the explicit precedence ordering of one document family
// (document -> rank). Resolvers receive it as a value; there is no
// process-wide ranking state.
type FamilyOrder struct {
	FamilyID  string
	Governing string // Designated governing document, "" when none

	docs  []ir.Document
	ranks map[string]Rank
}

// NewFamilyOrder builds the ordering for the given documents of a family.
func NewFamilyOrder(familyID string, docs []ir.Document) FamilyOrder {
	o := FamilyOrder{
		FamilyID: familyID,
		docs:     append([]ir.Document(nil), docs...),
		ranks:    make(map[string]Rank, len(docs)),
	}
	for _, d := range docs {
		o.ranks[d.ID] = rankOf(d)
		if d.Governing && o.Governing == "" {
			o.Governing = d.ID
		}
	}
	return o
}

// Documents returns the family documents in registration order.
func (o FamilyOrder) Documents() []ir.Document {
	return append([]ir.Document(nil), o.docs...)
}

// Document returns a family document by ID.
func (o FamilyOrder) Document(id string) (ir.Document, bool) {
	for _, d := range o.docs {
		if d.ID == id {
			return d, true
		}
	}
	return ir.Document{}, false
}

// Rank returns the rank of a document and whether it belongs to the family.
func (o FamilyOrder) Rank(documentID string) (Rank, bool) {
	r, ok := o.ranks[documentID]
	return r, ok
}

// Compare orders two family documents by rank. Unknown documents rank
// below every known one.
func (o FamilyOrder) Compare(a, b string) int {
	ra, okA := o.ranks[a]
	rb, okB := o.ranks[b]
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}
	return ra.Compare(rb)
}

// IsAmendment reports whether documentID is an amendment of the family.
func (o FamilyOrder) IsAmendment(documentID string) bool {
	r, ok := o.ranks[documentID]
	return ok && r.Tier == tierAmendment
}
