package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "handrail",
		Short:         "Approval reconciliation engine CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newPendingCommand(ctx))
	rootCmd.AddCommand(newDecisionCommand(ctx, "approve"))
	rootCmd.AddCommand(newDecisionCommand(ctx, "reject"))
	rootCmd.AddCommand(newBulkDecisionCommand(ctx, "approve-all"))
	rootCmd.AddCommand(newBulkDecisionCommand(ctx, "reject-all"))
	rootCmd.AddCommand(newAuditCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))

	return rootCmd
}
