// Package store persists work instances in SQLite and exposes the
// operations the rest of the system builds on: insert-if-absent under the
// single-active-instance invariant, compare-and-swap state transitions,
// and queries by state and location.
//
// The conditional UPDATE in Transition is the only concurrency primitive
// the system relies on for mutual exclusion per instance; two callers
// racing to claim the same instance cannot both observe a one-row update.
// Instances are never deleted; a dataset's work history stays queryable.
package store
