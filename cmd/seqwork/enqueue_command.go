package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"seqwork/internal/archive"
	"seqwork/internal/config"
	"seqwork/internal/enqueue"
	"seqwork/internal/scheduler"
	"seqwork/internal/store"
	"seqwork/internal/worktype"
)

const defaultDiscoveryWindow = 24 * time.Hour

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var typeFlags []string
	var sinceFlag string

	cmd := &cobra.Command{
		Use:   "enqueue [location ...]",
		Short: "Queue work for dataset locations",
		Long: "Queue work instances for the given archive locations. With no " +
			"locations, recently annotated datasets are discovered from the " +
			"archive and queued instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			types, err := resolveWorkTypes(typeFlags, cfg)
			if err != nil {
				return err
			}

			var candidates []enqueue.Candidate
			if len(args) > 0 {
				for _, location := range args {
					for _, workType := range types {
						candidates = append(candidates, enqueue.Candidate{
							Location: location,
							WorkType: string(workType),
						})
					}
				}
			} else {
				since, err := parseSince(sinceFlag)
				if err != nil {
					return err
				}
				feed := scheduler.NewArchiveFeed(archive.NewCLI(cfg.Archive), types, logger)
				candidates, err = feed.Discover(cmd.Context(), since)
				if err != nil {
					return err
				}
			}

			if len(candidates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to enqueue")
				return nil
			}

			return ctx.withStore(func(st *store.Store) error {
				results := enqueue.NewService(st, logger).Enqueue(cmd.Context(), candidates)
				printEnqueueResults(cmd.OutOrStdout(), results)
				return enqueue.FirstError(results)
			})
		},
	}

	cmd.Flags().StringSliceVarP(&typeFlags, "type", "t", nil, "Work types to queue (default: all configured)")
	cmd.Flags().StringVar(&sinceFlag, "since", "", "Discovery cutoff as RFC 3339 time or duration before now (default 24h)")
	return cmd
}

// resolveWorkTypes maps --type flags onto the controlled vocabulary. With no
// flags it uses every work type that has an analysis command configured.
func resolveWorkTypes(names []string, cfg *config.Config) ([]worktype.Type, error) {
	if len(names) > 0 {
		types := make([]worktype.Type, 0, len(names))
		for _, name := range names {
			workType, ok := worktype.Parse(name)
			if !ok {
				return nil, fmt.Errorf("unknown work type %q", name)
			}
			types = append(types, workType)
		}
		return types, nil
	}

	configured := make([]string, 0, len(cfg.WorkTypes))
	for name := range cfg.WorkTypes {
		configured = append(configured, name)
	}
	sort.Strings(configured)

	var types []worktype.Type
	for _, name := range configured {
		workType, ok := worktype.Parse(name)
		if !ok {
			return nil, fmt.Errorf("configured work type %q is not in the vocabulary", name)
		}
		types = append(types, workType)
	}
	if len(types) == 0 {
		return nil, errors.New("no work types configured; pass --type or add a [worktypes] section")
	}
	return types, nil
}

func parseSince(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Now().Add(-defaultDiscoveryWindow), nil
	}
	if ts, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return ts, nil
	}
	if dur, err := time.ParseDuration(trimmed); err == nil {
		return time.Now().Add(-dur), nil
	}
	return time.Time{}, fmt.Errorf("invalid --since value %q (want RFC 3339 time or duration)", value)
}

func printEnqueueResults(out io.Writer, results []enqueue.Result) {
	for _, result := range results {
		switch {
		case result.Err != nil:
			fmt.Fprintf(out, "rejected %s [%s]: %v\n",
				result.Candidate.Location, result.Candidate.WorkType, result.Err)
		case result.Disposition == store.DispositionCreated:
			fmt.Fprintf(out, "queued #%d %s\n", result.Instance.ID, result.Key)
		case result.Disposition == store.DispositionAlreadyActive:
			fmt.Fprintf(out, "skipped %s: already active as #%d (%s)\n",
				result.Key, result.Instance.ID, result.Instance.State)
		case result.Disposition == store.DispositionAlreadyCompleted:
			fmt.Fprintf(out, "skipped %s: already completed as #%d\n",
				result.Key, result.Instance.ID)
		}
	}
	fmt.Fprintf(out, "Queued %d of %d candidate(s)\n", enqueue.CreatedCount(results), len(results))
}
