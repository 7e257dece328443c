// Package scheduler selects runnable work and discovers new work from the
// archive. Selection is advisory: the executor's claim decides who actually
// runs an instance.
package scheduler

import (
	"context"

	"seqwork/internal/store"
)

// Scheduler surfaces runnable work instances.
type Scheduler struct {
	store *store.Store
}

// New constructs a scheduler over the given store.
func New(st *store.Store) *Scheduler {
	return &Scheduler{store: st}
}

// FindRunnable returns the queued snapshot, oldest first. The result is a
// point-in-time view; instances may be claimed by someone else before the
// caller reaches them.
func (s *Scheduler) FindRunnable(ctx context.Context) ([]*store.Instance, error) {
	return s.store.FindByState(ctx, store.StateQueued)
}
