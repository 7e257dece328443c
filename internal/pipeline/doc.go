// Package pipeline executes claimed work instances through the fixed
// stage/analyse/archive/annotate/unstage sequence and fans batches out over
// a bounded worker pool. State transitions go through the store's
// conditional updates, so any number of runners can share one queue safely.
package pipeline
