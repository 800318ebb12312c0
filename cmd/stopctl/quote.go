package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bus_ticketing/internal/fares"
)

func newQuoteCmd(a *app) *cobra.Command {
	var routeID uint
	var from, to string

	cmd := &cobra.Command{
		Use:   "quote --route ID --from STOP --to STOP",
		Short: "Print the fare between two stops",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			calc := fares.NewCalculator(a.store, nil)
			fare, err := calc.CalculatePrice(cmd.Context(), routeID, from, to)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: %g km, %d\n", from, to, fare.Distance, fare.Price)
			return nil
		},
	}
	cmd.Flags().UintVar(&routeID, "route", 0, "route id")
	cmd.Flags().StringVar(&from, "from", "", "boarding stop name")
	cmd.Flags().StringVar(&to, "to", "", "alighting stop name")
	for _, f := range []string{"route", "from", "to"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
