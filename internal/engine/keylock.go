package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/rewindable/rewind/internal/action"
)

// keyLocks serializes capture sessions per entity key. A session spans
// multiple host statements and outlives any single storage transaction, so
// the log's transactional isolation cannot serialize it - this in-process
// lock does. Undo and redo do not take it; their whole sequence lives
// inside one log transaction.
type keyLocks struct {
	mu   sync.Mutex
	sems map[action.EntityKey]chan struct{}
}

func newKeyLocks() *keyLocks {
	return &keyLocks{sems: make(map[action.EntityKey]chan struct{})}
}

// acquire blocks until the key's lock is free or ctx is done. The returned
// release function must be called exactly once.
func (kl *keyLocks) acquire(ctx context.Context, key action.EntityKey) (func(), error) {
	kl.mu.Lock()
	sem, ok := kl.sems[key]
	if !ok {
		sem = make(chan struct{}, 1)
		kl.sems[key] = sem
	}
	kl.mu.Unlock()

	select {
	case sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-sem }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire capture lock for %s: %w", key, ctx.Err())
	}
}
