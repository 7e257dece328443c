package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"seqwork/internal/archive"
	"seqwork/internal/enqueue"
	"seqwork/internal/logging"
	"seqwork/internal/worktype"
)

// annotatedAtAttribute is stamped on a dataset collection when the
// instrument pipeline finishes annotating it. Values are RFC 3339 UTC so
// they compare lexically in metadata queries.
const annotatedAtAttribute = "annotated_at"

// Feed produces enqueue candidates from an external source of truth.
type Feed interface {
	Discover(ctx context.Context, since time.Time) ([]enqueue.Candidate, error)
}

// ArchiveFeed discovers work by querying archive metadata for dataset
// collections annotated since a start time, then proposes every requested
// work type for each dataset found.
type ArchiveFeed struct {
	client    archive.Client
	workTypes []worktype.Type
	logger    *slog.Logger
}

// NewArchiveFeed constructs a feed proposing the given work types.
func NewArchiveFeed(client archive.Client, workTypes []worktype.Type, logger *slog.Logger) *ArchiveFeed {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ArchiveFeed{client: client, workTypes: workTypes, logger: logger}
}

// Discover queries the archive and fans each discovered dataset out across
// the feed's work types. Duplicate candidates are harmless downstream, so
// no deduplication happens here.
func (f *ArchiveFeed) Discover(ctx context.Context, since time.Time) ([]enqueue.Candidate, error) {
	cutoff := since.UTC().Format(time.RFC3339)
	locations, err := f.client.QuerySince(ctx, annotatedAtAttribute, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query archive for datasets since %s: %w", cutoff, err)
	}

	f.logger.Info("archive discovery finished",
		logging.String("since", cutoff),
		logging.Int("datasets", len(locations)))

	candidates := make([]enqueue.Candidate, 0, len(locations)*len(f.workTypes))
	for _, location := range locations {
		for _, workType := range f.workTypes {
			candidates = append(candidates, enqueue.Candidate{
				Location: location,
				WorkType: string(workType),
			})
		}
	}
	return candidates, nil
}

var _ Feed = (*ArchiveFeed)(nil)
