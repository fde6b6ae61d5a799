package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/truthgraph/internal/ir"
	"github.com/roach88/truthgraph/internal/store"
	"github.com/roach88/truthgraph/internal/testutil"
)

// mapSchema is a SlotSchema backed by a map.
type mapSchema map[string][]ir.FactSpec

func (m mapSchema) Specs(clauseType string) []ir.FactSpec { return m[clauseType] }

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func setupTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(testutil.NewDeterministicClock()),
		WithIDGenerator(testutil.NewSequentialIDGenerator("inf")),
	}
	return New(setupTestStore(t), append(base, opts...)...)
}

func registerDocs(t *testing.T, e *Engine, docs ...ir.Document) {
	t.Helper()
	for _, d := range docs {
		require.NoError(t, e.RegisterDocument(context.Background(), d))
	}
}

func ingestFacts(t *testing.T, e *Engine, documentID string, facts ...ir.Fact) IngestResult {
	t.Helper()
	res, err := e.Ingest(context.Background(), documentID, facts)
	require.NoError(t, err)
	return res
}

// deriveOne ingests a single definition and returns the binding derived from it.
func deriveOne(t *testing.T, e *Engine, documentID, term, value string) ir.Binding {
	t.Helper()
	ingestFacts(t, e, documentID, testutil.Definition(documentID, term, value, 0))
	bindings, err := e.DeriveBindings(context.Background(), documentID)
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	return bindings[0]
}

func ids(bindings []ir.Binding) []string {
	out := make([]string, len(bindings))
	for i, b := range bindings {
		out[i] = b.ID
	}
	return out
}
