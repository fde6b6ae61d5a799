package query

import (
	"errors"
	"fmt"

	"github.com/roach88/truthgraph/internal/ir"
)

// ErrInvalidFilter is returned (wrapped) for malformed predicates.
var ErrInvalidFilter = errors.New("invalid filter")

// Validate checks that every predicate in the filter is well formed.
// A nil predicate is valid and matches everything.
func Validate(f Filter) error {
	return validatePredicate(f.Where)
}

func validatePredicate(p Predicate) error {
	switch pred := p.(type) {
	case nil:
		return nil
	case DocumentIs:
		if pred.DocumentID == "" {
			return fmt.Errorf("%w: document predicate needs a document id", ErrInvalidFilter)
		}
	case FamilyIs:
		if pred.FamilyID == "" {
			return fmt.Errorf("%w: family predicate needs a family id", ErrInvalidFilter)
		}
	case KindIs:
		if _, err := ir.ParseFactKind(string(pred.Kind)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
	case EntityTypeIs:
		if pred.EntityType == "" {
			return fmt.Errorf("%w: entity type predicate needs a value", ErrInvalidFilter)
		}
	case TextContains:
		if pred.Text == "" {
			return fmt.Errorf("%w: text predicate needs a value", ErrInvalidFilter)
		}
	case IDIn:
		for _, id := range pred.IDs {
			if id == "" {
				return fmt.Errorf("%w: id set contains an empty id", ErrInvalidFilter)
			}
		}
	case And:
		for i, child := range pred.Predicates {
			if child == nil {
				return fmt.Errorf("%w: and[%d] is nil", ErrInvalidFilter, i)
			}
			if err := validatePredicate(child); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unsupported predicate %T", ErrInvalidFilter, p)
	}
	return nil
}
