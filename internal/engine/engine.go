package engine

import (
	"context"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/truthgraph/internal/ir"
	"github.com/roach88/truthgraph/internal/query"
	"github.com/roach88/truthgraph/internal/store"
)

// DefaultCacheTTL is how long a binding resolution stays cached when no
// binding in the store changes.
const DefaultCacheTTL = 5 * time.Minute

// DefaultGapConcurrency bounds the documents analysed at once by a
// family gap report.
const DefaultGapConcurrency = 4

// SlotSchema supplies the required fact specs for each clause type.
// Unknown clause types have no specs.
type SlotSchema interface {
	Specs(clauseType string) []ir.FactSpec
}

// Engine is the truth graph engine.
//
// Thread-safety model:
//   - Writes to one document are serialized by a per-document lock;
//     writes to different documents run concurrently
//   - Every write runs in a single store transaction, so readers observe
//     either the state before or after it
//   - Reads take no engine lock
type Engine struct {
	store    *store.Store
	logger   *slog.Logger
	clock    Clock
	ids      IDGenerator
	schema   SlotSchema
	validate *validator.Validate
	locks    *documentLocks
	cache    *resolutionCache

	cacheTTL       time.Duration
	gapConcurrency int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the wall clock used for creation timestamps.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the generator for inference and answer identities.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithSlotSchema sets the required fact specs used by slot computation.
func WithSlotSchema(s SlotSchema) Option {
	return func(e *Engine) {
		e.schema = s
	}
}

// WithCacheTTL sets the binding resolution cache TTL. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.cacheTTL = ttl
	}
}

// WithGapConcurrency bounds concurrent per-document work in family gap reports.
func WithGapConcurrency(n int) Option {
	return func(e *Engine) {
		e.gapConcurrency = n
	}
}

// New creates an Engine over an open store.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:          s,
		logger:         slog.Default(),
		clock:          SystemClock{},
		ids:            UUIDv7Generator{},
		schema:         emptySchema{},
		validate:       newValidator(),
		locks:          newDocumentLocks(),
		cacheTTL:       DefaultCacheTTL,
		gapConcurrency: DefaultGapConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.gapConcurrency <= 0 {
		e.gapConcurrency = 1
	}
	e.cache = newResolutionCache(e.cacheTTL)
	return e
}

// Store returns the underlying store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Query returns facts matching a conjunctive filter as a lazy, finite,
// restartable sequence in structural order. Each element is a FactResult.
func (e *Engine) Query(ctx context.Context, f query.Filter) iter.Seq2[ir.FactResult, error] {
	return func(yield func(ir.FactResult, error) bool) {
		for fact, err := range e.store.Facts(ctx, f) {
			if !yield(ir.FactResult{Fact: fact}, err) || err != nil {
				return
			}
		}
	}
}

type emptySchema struct{}

func (emptySchema) Specs(string) []ir.FactSpec { return nil }

// sortedUnique returns a sorted copy of ids without duplicates or empties.
func sortedUnique(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
