package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/truthgraph/internal/ir"
)

var testTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// createTestStore creates a new on-disk store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedDocument stores a document of the given role in a family.
func seedDocument(t *testing.T, s *Store, id, family string, role ir.DocumentRole) ir.Document {
	t.Helper()
	doc := ir.Document{ID: id, FamilyID: family, Title: id, Role: role}
	require.NoError(t, s.PutDocument(context.Background(), doc))
	return doc
}

// createTestFact builds a fact with its content-addressed ID assigned.
func createTestFact(documentID string, start, end int, entityType, value string) ir.Fact {
	f := ir.Fact{
		DocumentID:  documentID,
		Kind:        ir.FactEntity,
		EntityType:  entityType,
		Value:       value,
		SourceText:  value,
		Span:        ir.Span{Start: start, End: end},
		Method:      "test",
		ExtractedAt: testTime,
	}
	f.ID = ir.MustFactID(f)
	return f
}

// seedFact inserts a fact and returns it.
func seedFact(t *testing.T, s *Store, f ir.Fact) ir.Fact {
	t.Helper()
	_, err := s.InsertFact(context.Background(), f)
	require.NoError(t, err)
	return f
}

// createTestBinding builds a family-scoped binding for a fact.
func createTestBinding(f ir.Fact, term, value string) ir.Binding {
	b := ir.Binding{
		DocumentID: f.DocumentID,
		Kind:       ir.BindingDefinition,
		Term:       term,
		Value:      value,
		FactID:     f.ID,
		Scope:      ir.ScopeFamily,
	}
	id, err := ir.BindingID(b)
	if err != nil {
		panic(err)
	}
	b.ID = id
	return b
}
