package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"seqwork/internal/store"
	"seqwork/internal/worktype"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history <location> <work-type>",
		Short: "Show every instance ever recorded for a work key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := worktype.Normalize(args[0], args[1])
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				instances, err := st.History(cmd.Context(), key)
				if err != nil {
					return err
				}
				if len(instances) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No instances for %s\n", key)
					return nil
				}

				tableText := renderTable(
					[]string{"ID", "Type", "State", "Updated", "Location", "Error"},
					buildInstanceRows(instances),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), tableText)
				return nil
			})
		},
	}
}
