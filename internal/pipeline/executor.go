package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"seqwork/internal/analysis"
	"seqwork/internal/archive"
	"seqwork/internal/config"
	"seqwork/internal/logging"
	"seqwork/internal/store"
)

// Executor drives one work instance through the fixed pipeline: stage the
// input, run the analysis, archive the output, annotate it, unstage and
// complete. The claim transition is the only concurrency control; any
// failure after a successful claim is recorded as Failed and never retried
// automatically.
type Executor struct {
	cfg     *config.Config
	store   *store.Store
	archive archive.Client
	runner  analysis.Runner
	logger  *slog.Logger
	version string
}

// NewExecutor constructs an executor. version is recorded in annotation
// metadata for provenance.
func NewExecutor(cfg *config.Config, st *store.Store, client archive.Client, runner analysis.Runner, logger *slog.Logger, version string) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if version == "" {
		version = "dev"
	}
	return &Executor{
		cfg:     cfg,
		store:   st,
		archive: client,
		runner:  runner,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		version: version,
	}
}

// Execute claims and runs a single queued instance. A lost claim or an
// instance already resolved elsewhere returns ErrClaimLost; an instance
// found Started returns ErrAlreadyStarted and is left untouched for
// inspection.
func (e *Executor) Execute(ctx context.Context, id int64) error {
	inst, err := e.store.Get(ctx, id)
	if err != nil {
		return Wrap(ErrStore, "claim", "load instance", "", err)
	}

	switch inst.State {
	case store.StateQueued:
	case store.StateStarted:
		// A previous runner died mid-flight. Leave every column as the
		// crash left it.
		return Wrap(ErrAlreadyStarted, "claim", "",
			fmt.Sprintf("instance %d for %s was started %s and never finished",
				inst.ID, inst.Key(), startedAgo(inst)), nil)
	default:
		// Resolved by someone else since the snapshot.
		e.logger.Debug("skipping inactive instance",
			logging.Int64(logging.FieldInstanceID, inst.ID),
			logging.String("state", string(inst.State)))
		return fmt.Errorf("instance %d is %s: %w", inst.ID, inst.State, ErrClaimLost)
	}

	claimed, err := e.store.Transition(ctx, inst.ID, store.StateQueued, store.StateStarted)
	if err != nil {
		return Wrap(ErrStore, "claim", "transition to started", "", err)
	}
	if !claimed {
		e.logger.Debug("lost claim race",
			logging.Int64(logging.FieldInstanceID, inst.ID))
		return fmt.Errorf("instance %d: %w", inst.ID, ErrClaimLost)
	}

	// Reload to pick up the stamped started_at.
	if inst, err = e.store.Get(ctx, inst.ID); err != nil {
		return Wrap(ErrStore, "claim", "reload claimed instance", "", err)
	}

	ctx = logging.WithInstanceID(ctx, inst.ID)
	ctx = logging.WithWorkType(ctx, string(inst.WorkType))
	ctx = logging.WithCorrelationID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, e.logger)

	logger.Info("instance claimed", logging.String(logging.FieldLocation, inst.Location))
	started := time.Now()

	for _, step := range []struct {
		name string
		run  func(context.Context, *store.Instance) error
	}{
		{"stage", e.stage},
		{"analyse", e.analyse},
		{"archive", e.archiveOutput},
		{"annotate", e.annotate},
	} {
		stepCtx := logging.WithStep(ctx, step.name)
		if err := step.run(stepCtx, inst); err != nil {
			return e.fail(stepCtx, inst, step.name, err)
		}
		logging.WithContext(stepCtx, e.logger).Info("step finished")
	}

	// Unstage is best effort. The results are archived; a leftover staging
	// directory must not fail the instance.
	if err := os.RemoveAll(stagingDir(e.cfg.Paths.StagingRoot, inst.ID)); err != nil {
		logger.Warn("unstage failed", logging.Error(err))
	}

	done, err := e.store.Transition(ctx, inst.ID, store.StateStarted, store.StateCompleted)
	if err != nil {
		return Wrap(ErrStore, "complete", "transition to completed", "", err)
	}
	if !done {
		return Wrap(ErrStore, "complete", "",
			fmt.Sprintf("instance %d left started state unexpectedly", inst.ID), nil)
	}

	logger.Info("instance completed", logging.Duration("elapsed", time.Since(started)))
	return nil
}

// Cancel withdraws a queued instance and removes any staged data.
func (e *Executor) Cancel(ctx context.Context, id int64) (bool, error) {
	inst, err := e.store.Get(ctx, id)
	if err != nil {
		return false, err
	}

	cancelled, err := e.store.Cancel(ctx, id)
	if err != nil || !cancelled {
		return cancelled, err
	}

	if inst.StagingPath != "" {
		if err := os.RemoveAll(inst.StagingPath); err != nil {
			e.logger.Warn("failed to unstage cancelled instance",
				logging.Int64(logging.FieldInstanceID, id), logging.Error(err))
		}
	}
	return true, nil
}

func (e *Executor) fail(ctx context.Context, inst *store.Instance, step string, err error) error {
	wrapped := Wrap(ErrStepFailed, step, "", "", err)
	logging.WithContext(ctx, e.logger).Error("step failed", logging.Error(err))

	// The staging directory is kept for inspection.
	if ok, terr := e.store.TransitionFailed(ctx, inst.ID, wrapped.Error()); terr != nil {
		logging.WithContext(ctx, e.logger).Error("failed to record failure", logging.Error(terr))
	} else if !ok {
		logging.WithContext(ctx, e.logger).Error("instance left started state before failure was recorded")
	}
	return wrapped
}

func (e *Executor) stage(ctx context.Context, inst *store.Instance) error {
	complete, err := e.archive.IsComplete(ctx, inst.Location)
	if err != nil {
		return fmt.Errorf("check input completeness: %w", err)
	}
	if !complete {
		return fmt.Errorf("input data at %s is not complete", inst.Location)
	}

	staging := stagingDir(e.cfg.Paths.StagingRoot, inst.ID)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}

	if err := e.archive.Download(ctx, inst.Location, staging); err != nil {
		return fmt.Errorf("download input: %w", err)
	}

	// The download lands under the dataset's archive name. Move it to the
	// fixed input path the analysis contract expects.
	downloaded := filepath.Join(staging, path.Base(inst.Location))
	input := stagingInputDir(e.cfg.Paths.StagingRoot, inst.ID)
	if err := os.Rename(downloaded, input); err != nil {
		return fmt.Errorf("move staged input into place: %w", err)
	}
	if err := os.MkdirAll(stagingOutputDir(e.cfg.Paths.StagingRoot, inst.ID), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	results := archivePath(e.cfg.Paths.ArchiveRoot, inst.WorkType, inst.ID)
	if err := e.store.UpdatePaths(ctx, inst.ID, staging, results); err != nil {
		return fmt.Errorf("record staging paths: %w", err)
	}
	inst.StagingPath = staging
	inst.ArchivePath = results
	return nil
}

func (e *Executor) analyse(ctx context.Context, inst *store.Instance) error {
	return e.runner.Run(ctx, inst.WorkType,
		stagingInputDir(e.cfg.Paths.StagingRoot, inst.ID),
		stagingOutputDir(e.cfg.Paths.StagingRoot, inst.ID))
}

func (e *Executor) archiveOutput(ctx context.Context, inst *store.Instance) error {
	return e.archive.Upload(ctx,
		stagingOutputDir(e.cfg.Paths.StagingRoot, inst.ID), inst.ArchivePath)
}

func (e *Executor) annotate(ctx context.Context, inst *store.Instance) error {
	attrs := map[string]string{
		"seqwork:work_type":      string(inst.WorkType),
		"seqwork:instance_id":    fmt.Sprintf("%d", inst.ID),
		"seqwork:input_location": inst.Location,
		"seqwork:created_at":     inst.CreatedAt.UTC().Format(time.RFC3339),
		"seqwork:annotated_at":   time.Now().UTC().Format(time.RFC3339),
		"seqwork:runner_version": e.version,
	}
	if runID, ok := logging.CorrelationIDFromContext(ctx); ok {
		attrs["seqwork:run_id"] = runID
	}
	if inst.StartedAt != nil {
		attrs["seqwork:started_at"] = inst.StartedAt.UTC().Format(time.RFC3339)
	}
	return e.archive.Annotate(ctx, inst.ArchivePath, attrs)
}

func startedAgo(inst *store.Instance) string {
	if inst.StartedAt == nil {
		return "at an unknown time"
	}
	return time.Since(*inst.StartedAt).Round(time.Second).String() + " ago"
}
