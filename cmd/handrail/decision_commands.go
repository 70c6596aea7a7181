package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/handrail/handrail"
	"github.com/handrail/handrail/model/approval"
)

func decisionVerb(use string) approval.Verb {
	if use == "reject" || use == "reject-all" {
		return approval.VerbReject
	}
	return approval.VerbApprove
}

func newDecisionCommand(ctx *commandContext, use string) *cobra.Command {
	verb := decisionVerb(use)
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <hand-id> <action-id>", use),
		Short: fmt.Sprintf("%s one pending approval", capitalize(use)),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.ensureEngine(cmd.Context())
			if err != nil {
				return err
			}
			engine.Pending().Hydrate(cmd.Context())

			key := approval.NewKey(args[0], args[1])
			item := findItem(cmd.Context(), engine, key)
			if item == nil {
				return fmt.Errorf("no pending approval %s", key)
			}
			if err := engine.Dispatcher().Submit(cmd.Context(), item, verb); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", pastTense(verb), key)
			return nil
		},
	}
}

func newBulkDecisionCommand(ctx *commandContext, use string) *cobra.Command {
	verb := decisionVerb(use)
	return &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("%s every pending approval", capitalize(string(verb))),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.ensureEngine(cmd.Context())
			if err != nil {
				return err
			}
			engine.Pending().Hydrate(cmd.Context())

			result, err := engine.Dispatcher().SubmitAll(cmd.Context(), verb)
			if result != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d of %d pending approvals (%d failed)\n",
					pastTense(verb), result.Succeeded, result.Submitted, result.Failed)
			}
			return err
		},
	}
}

func findItem(ctx context.Context, engine *handrail.Service, key approval.Key) *approval.Item {
	for _, item := range engine.Pending().Snapshot(ctx) {
		if item.Key() == key {
			return item
		}
	}
	return nil
}

func pastTense(verb approval.Verb) string {
	if verb == approval.VerbReject {
		return "rejected"
	}
	return "approved"
}

func capitalize(text string) string {
	if text == "" {
		return text
	}
	return strings.ToUpper(text[:1]) + text[1:]
}
