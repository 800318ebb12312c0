package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"bus_ticketing/internal/models"
)

func newBackfillCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Give stop-less routes an origin/destination ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repaired, err := a.store.BackfillOriginDestination(cmd.Context())
			for _, id := range repaired {
				fmt.Fprintf(cmd.OutOrStdout(), "route %d: origin/destination stops added\n", id)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d routes repaired\n", len(repaired))
			return nil
		},
	}
}

// orphanOperators returns operators with no linked, existing user account.
func orphanOperators(ctx context.Context, a *app) ([]models.Operator, error) {
	var ops []models.Operator
	err := a.store.DB().WithContext(ctx).
		Where("user_id IS NULL OR NOT EXISTS (SELECT 1 FROM users u WHERE u.id = operators.user_id AND u.deleted_at IS NULL)").
		Order("id asc").
		Find(&ops).Error
	return ops, err
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate every stop ledger and operator account link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			issues, err := a.store.CheckLedgers(cmd.Context())
			if err != nil {
				return err
			}
			for _, is := range issues {
				fmt.Fprintf(out, "route %d: %v\n", is.RouteID, is.Err)
			}

			orphans, err := orphanOperators(cmd.Context(), a)
			if err != nil {
				return err
			}
			for _, op := range orphans {
				fmt.Fprintf(out, "operator %d (%s): no user account linked\n", op.ID, op.Name)
			}

			if n := len(issues) + len(orphans); n > 0 {
				return fmt.Errorf("%d problems found", n)
			}
			fmt.Fprintln(out, "all ledgers and operators are consistent")
			return nil
		},
	}
}
