package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recently dispatched decisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.ensureEngine(cmd.Context())
			if err != nil {
				return err
			}
			store := engine.Audit()
			if store == nil {
				return fmt.Errorf("audit trail is disabled: set auditDSN in the config")
			}
			records, err := store.List(cmd.Context(), limitFlag)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recorded decisions.")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				status := "ok"
				if !rec.Succeeded {
					status = "failed"
				}
				mode := "single"
				if rec.Bulk {
					mode = "bulk"
				}
				rows = append(rows, []string{
					rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					rec.AgentID,
					rec.ActionID,
					string(rec.Verb),
					mode,
					status,
					fmt.Sprintf("%dms", rec.LatencyMs),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"WHEN", "HAND", "ACTION", "VERB", "MODE", "STATUS", "LATENCY"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limitFlag, "limit", 50, "Maximum number of records to show")
	return cmd
}
