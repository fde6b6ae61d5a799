package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/truthgraph/internal/engine"
	"github.com/roach88/truthgraph/internal/schema"
	"github.com/roach88/truthgraph/internal/store"
	"github.com/roach88/truthgraph/internal/testutil"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages.
	Errors []string `json:"errors,omitempty"`

	// Applied records what the bundles produced.
	Applied *Applied `json:"applied"`

	// Snapshot is the deterministic text rendering used for golden files.
	Snapshot string `json:"snapshot"`
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// NewEngine opens a store in dir and returns an engine with deterministic
// clock and IDs. The caller closes the store.
func NewEngine(dir string, slots engine.SlotSchema) (*engine.Engine, *store.Store, error) {
	st, err := store.Open(filepath.Join(dir, "harness.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	opts := []engine.Option{
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithIDGenerator(testutil.NewSequentialIDGenerator("inf")),
	}
	if slots != nil {
		opts = append(opts, engine.WithSlotSchema(slots))
	}
	return engine.New(st, opts...), st, nil
}

// Run executes a scenario against a fresh database and returns the result.
//
// Execution flow:
//  1. Create a fresh database in a temporary directory
//  2. Load the slot schema, if any
//  3. Apply every bundle in order
//  4. Evaluate assertions
//  5. Render the snapshot
//
// An error is returned when the scenario cannot be executed at all. Failed
// assertions are reported on the result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "truthgraph-harness-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	var slots engine.SlotSchema
	if scenario.Schema != "" {
		s, err := schema.Load(scenario.Schema)
		if err != nil {
			return nil, err
		}
		slots = s
	}

	eng, st, err := NewEngine(dir, slots)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	applied := NewApplied()
	for _, path := range scenario.Bundles {
		b, err := LoadBundle(path)
		if err != nil {
			return nil, err
		}
		if err := Apply(ctx, eng, b, applied); err != nil {
			return nil, fmt.Errorf("apply %s: %w", filepath.Base(path), err)
		}
	}

	result := &Result{Pass: true, Errors: []string{}, Applied: applied}
	for _, msg := range EvaluateAssertions(ctx, eng, applied, scenario.Assertions) {
		result.AddError(msg)
	}

	snapshot, err := Snapshot(ctx, eng, applied)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	result.Snapshot = snapshot
	return result, nil
}
