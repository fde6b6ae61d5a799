package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned (wrapped) when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateFact is returned (wrapped) when a fact identity already
// exists with different content.
var ErrDuplicateFact = errors.New("duplicate fact with different content")

// ErrFamilyChange is returned (wrapped) when a registered document is put
// again under a different family.
var ErrFamilyChange = errors.New("document cannot change family")

// DuplicateFactError carries the conflicting identity.
type DuplicateFactError struct {
	FactID       string
	StoredHash   string
	IncomingHash string
}

func (e *DuplicateFactError) Error() string {
	return fmt.Sprintf("fact %s: stored content %s differs from incoming %s", e.FactID, short(e.StoredHash), short(e.IncomingHash))
}

// Unwrap lets errors.Is match ErrDuplicateFact.
func (e *DuplicateFactError) Unwrap() error {
	return ErrDuplicateFact
}

// notFound converts sql.ErrNoRows into a wrapped ErrNotFound.
func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %q: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("read %s %q: %w", what, id, err)
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
