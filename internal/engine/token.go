package engine

import (
	"sync"

	"github.com/google/uuid"
)

// TokenGenerator produces the opaque token stamped on each committed group.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 capture tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, so tokens sort by
// commit time - convenient when scanning history listings.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined tokens for testing, enabling
// deterministic history output and golden-file comparison.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that yields the given tokens in
// order. It panics when exhausted - tests should provide exactly as many
// tokens as they commit groups.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.tokens) {
		panic("engine.FixedGenerator: no more tokens")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
