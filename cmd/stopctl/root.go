package main

import (
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"bus_ticketing/internal/store"
)

// app carries the lazily opened database between commands.
type app struct {
	open  func() (*gorm.DB, error)
	store *store.Store
}

func (a *app) connect(cmd *cobra.Command, args []string) error {
	if a.store != nil || cmd.Name() == "help" {
		return nil
	}
	db, err := a.open()
	if err != nil {
		return err
	}
	a.store = store.New(db)
	return nil
}

func newRootCmd(open func() (*gorm.DB, error)) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:               "stopctl",
		Short:             "Manage route stop ledgers",
		Long:              `stopctl imports, repairs and checks the stop ledgers that fares are computed from.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.connect,
	}
	root.AddCommand(
		newImportCmd(a),
		newBackfillCmd(a),
		newCheckCmd(a),
		newQuoteCmd(a),
		newAdminCmd(a),
	)
	return root
}
