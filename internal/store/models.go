package store

import (
	"strings"
	"time"

	"seqwork/internal/worktype"
)

// State represents the lifecycle of a work instance.
type State string

const (
	StateQueued    State = "queued"
	StateStarted   State = "started"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

var allStates = []State{
	StateQueued,
	StateStarted,
	StateCompleted,
	StateCancelled,
	StateFailed,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

// allowedTransitions is the one-directional state machine. Queued to
// Started is the claim edge; Queued to Cancelled is administrative.
var allowedTransitions = map[State]map[State]struct{}{
	StateQueued: {
		StateStarted:   {},
		StateCancelled: {},
	},
	StateStarted: {
		StateCompleted: {},
		StateFailed:    {},
	},
}

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a state admits no further transitions.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateFailed:
		return true
	default:
		return false
	}
}

// IsActive reports whether a state counts against the single-active-instance
// invariant for a work key.
func (s State) IsActive() bool {
	return s == StateQueued || s == StateStarted
}

// CanTransition reports whether the state machine permits moving from one
// state to another.
func CanTransition(from, to State) bool {
	targets, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// Disposition describes the outcome of an insert-if-absent attempt.
type Disposition string

const (
	// DispositionCreated means a new Queued instance was inserted.
	DispositionCreated Disposition = "created"
	// DispositionAlreadyActive means a Queued or Started instance exists for the key.
	DispositionAlreadyActive Disposition = "already-active"
	// DispositionAlreadyCompleted means a Completed instance exists and the
	// work type is not repeatable.
	DispositionAlreadyCompleted Disposition = "already-completed"
)

// Instance is one row of work: a work key plus mutable state and
// timestamps. ID and the key fields are immutable after creation.
type Instance struct {
	ID           int64
	Location     string
	WorkType     worktype.Type
	State        State
	StagingPath  string
	ArchivePath  string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// Key returns the work key for this instance.
func (i *Instance) Key() worktype.Key {
	return worktype.Key{Location: i.Location, Type: i.WorkType}
}
