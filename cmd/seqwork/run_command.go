package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"seqwork/internal/analysis"
	"seqwork/internal/archive"
	"seqwork/internal/pipeline"
	"seqwork/internal/preflight"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var workersFlag int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process queued work until the batch drains",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if workersFlag > 0 {
				cfg.Workflow.MaxWorkers = workersFlag
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			lock := flock.New(filepath.Join(cfg.Paths.LogDir, "seqwork.lock"))
			held, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			if !held {
				return errors.New("another seqwork run is already in progress")
			}
			defer lock.Unlock()

			results := preflight.RunAll(cmd.Context(), cfg)
			if !preflight.AllPassed(results) {
				out := cmd.ErrOrStderr()
				for _, result := range results {
					if !result.Passed {
						fmt.Fprintf(out, "preflight failed: %s: %s\n", result.Name, result.Detail)
					}
				}
				return errors.New("preflight checks failed")
			}

			pool := pipeline.NewPool(cfg,
				archive.NewCLI(cfg.Archive),
				analysis.NewCommandRunner(cfg, logger),
				logger, version)
			summary, err := pool.Drain(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d instance(s): %d completed, %d failed, %d skipped\n",
				summary.Processed, summary.Completed, summary.Failed, summary.Skipped)
			if summary.Failed > 0 {
				return fmt.Errorf("%d instance(s) failed; see `seqwork list` for details", summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&workersFlag, "workers", 0, "Override the configured worker count")
	return cmd
}
