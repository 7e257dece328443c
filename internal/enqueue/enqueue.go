// Package enqueue turns (location, work type) candidates into queued work
// instances. Each candidate is handled independently so one bad request
// never blocks the rest of a batch.
package enqueue

import (
	"context"
	"log/slog"

	"seqwork/internal/logging"
	"seqwork/internal/store"
	"seqwork/internal/worktype"
)

// Candidate is a raw enqueue request before identity normalization.
type Candidate struct {
	Location string
	WorkType string
}

// Result reports the outcome for one candidate. Err is set for invalid
// identities and store failures; such candidates are never persisted.
type Result struct {
	Candidate   Candidate
	Key         worktype.Key
	Instance    *store.Instance
	Disposition store.Disposition
	Err         error
}

// Service queues work instances.
type Service struct {
	store  *store.Store
	logger *slog.Logger
}

// NewService constructs an enqueue service.
func NewService(st *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{store: st, logger: logger}
}

// Enqueue processes candidates in order and returns one Result per
// candidate. Failures are logged and isolated to their item.
func (s *Service) Enqueue(ctx context.Context, candidates []Candidate) []Result {
	results := make([]Result, 0, len(candidates))
	for _, candidate := range candidates {
		results = append(results, s.enqueueOne(ctx, candidate))
	}
	return results
}

func (s *Service) enqueueOne(ctx context.Context, candidate Candidate) Result {
	result := Result{Candidate: candidate}

	key, err := worktype.Normalize(candidate.Location, candidate.WorkType)
	if err != nil {
		s.logger.Warn("rejected enqueue candidate",
			logging.String(logging.FieldLocation, candidate.Location),
			logging.String(logging.FieldWorkType, candidate.WorkType),
			logging.Error(err))
		result.Err = err
		return result
	}
	result.Key = key

	inst, disposition, err := s.store.InsertIfAbsent(ctx, key, key.Type.Repeatable())
	if err != nil {
		s.logger.Error("enqueue store failure",
			logging.String(logging.FieldLocation, key.Location),
			logging.String(logging.FieldWorkType, string(key.Type)),
			logging.Error(err))
		result.Err = err
		return result
	}

	result.Instance = inst
	result.Disposition = disposition
	s.logger.Info("enqueue candidate handled",
		logging.String(logging.FieldLocation, key.Location),
		logging.String(logging.FieldWorkType, string(key.Type)),
		logging.String("disposition", string(disposition)),
		logging.Int64(logging.FieldInstanceID, inst.ID))
	return result
}

// CreatedCount returns how many results created a new instance.
func CreatedCount(results []Result) int {
	created := 0
	for _, result := range results {
		if result.Err == nil && result.Disposition == store.DispositionCreated {
			created++
		}
	}
	return created
}

// FirstError returns the first store error in results, ignoring identity
// rejections, which are expected in normal operation.
func FirstError(results []Result) error {
	for _, result := range results {
		if result.Err != nil && result.Instance == nil && result.Key != (worktype.Key{}) {
			return result.Err
		}
	}
	return nil
}
