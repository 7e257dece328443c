package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"seqwork/internal/analysis"
	"seqwork/internal/archive"
	"seqwork/internal/pipeline"
	"seqwork/internal/store"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a queued work instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid instance id %q", args[0])
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				executor := pipeline.NewExecutor(cfg, st,
					archive.NewCLI(cfg.Archive),
					analysis.NewCommandRunner(cfg, logger),
					logger, version)
				cancelled, err := executor.Cancel(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !cancelled {
					return fmt.Errorf("instance %d is not queued; only queued work can be cancelled", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancelled instance %d\n", id)
				return nil
			})
		},
	}
}
