package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"seqwork/internal/preflight"
	"seqwork/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue counts and environment readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			err = ctx.withStore(func(st *store.Store) error {
				stats, err := st.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(stats))
				for _, state := range store.AllStates() {
					if count, ok := stats[state]; ok {
						rows = append(rows, []string{string(state), strconv.Itoa(count)})
					}
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				tableText := renderTable([]string{"State", "Count"}, rows,
					[]columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(out, tableText)
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Preflight:")
			printPreflight(out, preflight.RunAll(cmd.Context(), cfg))
			return nil
		},
	}
}

func printPreflight(out io.Writer, results []preflight.Result) {
	colorize := shouldColorize(out)
	for _, result := range results {
		mark := "PASS"
		if !result.Passed {
			mark = "FAIL"
		}
		if colorize {
			if result.Passed {
				mark = ansiGreen + mark + ansiReset
			} else {
				mark = ansiRed + mark + ansiReset
			}
		}
		line := fmt.Sprintf("  %s  %s", mark, result.Name)
		if result.Detail != "" {
			line += ": " + result.Detail
		}
		fmt.Fprintln(out, line)
	}
}
