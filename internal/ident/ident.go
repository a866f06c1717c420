// Package ident generates identifiers for actors, ledger rows and snapshots.
package ident

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// UUIDv7 embeds a millisecond timestamp in the high bits, so ids created
// later sort after earlier ones. Snapshot listings rely on this only as a
// tie-break after created_at.
//
// Safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7 string. Panics if the system random
// source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator returns predetermined ids, then falls back to
// "<prefix>-<n>" once the list is exhausted. Tests use it for stable ids.
//
// Safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	ids    []string
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator yielding ids in order.
//
//	gen := NewSequenceGenerator("evt", "a", "b")
//	gen.Generate() // "a"
//	gen.Generate() // "b"
//	gen.Generate() // "evt-0003"
func NewSequenceGenerator(prefix string, ids ...string) *SequenceGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &SequenceGenerator{ids: ids, prefix: prefix}
}

// Generate returns the next id.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.n++
	if g.n <= len(g.ids) {
		return g.ids[g.n-1]
	}
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
