package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator generates predictable identifiers: prefix-0001,
// prefix-0002, and so on.
//
// It satisfies engine.IDGenerator and never runs out, so tests that do not
// care how many identities a scenario consumes can use it instead of a
// fixed list.
//
// Thread-safety: Generate is safe for concurrent use.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator. An empty prefix becomes "id".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next identifier.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
