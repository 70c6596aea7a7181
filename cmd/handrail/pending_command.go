package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/handrail/handrail/service/dao"
)

func newPendingCommand(ctx *commandContext) *cobra.Command {
	var riskFlag string

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List pending approvals, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.ensureEngine(cmd.Context())
			if err != nil {
				return err
			}
			engine.Pending().Hydrate(cmd.Context())

			var parameters []*dao.Parameter
			if riskFlag != "" {
				parameters = append(parameters, dao.NewParameter("Risk", riskFlag))
			}
			items := engine.Pending().Snapshot(cmd.Context(), parameters...)
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending approvals.")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{
					item.AgentID,
					item.ActionID,
					item.AgentName,
					string(item.Risk),
					item.Description,
					humanAge(item.Timestamp),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"HAND", "ACTION", "NAME", "RISK", "DESCRIPTION", "AGE"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&riskFlag, "risk", "", "Only show approvals at this risk level")
	return cmd
}

func humanAge(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	age := time.Since(ts).Round(time.Second)
	if age < 0 {
		age = 0
	}
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh", int(age.Hours()))
	}
	return fmt.Sprintf("%dd", int(age.Hours()/24))
}
