package main

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"seqwork/internal/store"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "list [location]",
		Short: "List work instances, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				var instances []*store.Instance
				var err error
				if len(args) == 1 {
					instances, err = st.ListByLocation(cmd.Context(), path.Clean(strings.TrimSpace(args[0])))
				} else {
					instances, err = st.ListRecent(cmd.Context(), limitFlag)
				}
				if err != nil {
					return err
				}
				if len(instances) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No work instances")
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

	cmd.Flags().IntVar(&limitFlag, "limit", 50, "Maximum number of instances to show")
	return cmd
}

func buildInstanceRows(instances []*store.Instance) [][]string {
	rows := make([][]string, 0, len(instances))
	for _, inst := range instances {
		rows = append(rows, []string{
			strconv.FormatInt(inst.ID, 10),
			inst.WorkType.Display(),
			string(inst.State),
			formatInstant(inst.UpdatedAt),
			inst.Location,
			truncate(inst.ErrorMessage, 60),
		})
	}
	return rows
}

func formatInstant(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
