package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbourn/portal-rpa/internal/services"
)

// NewAllocateCommand creates the allocate command.
func NewAllocateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "allocate <submission-key>",
		Short: "Print the message identifier for a submission key",
		Long: `Allocate (or look up) the message identifier bound to a submission key
using the configured database and counter backend.

Example:
  portal-rpa allocate form-2025-000123`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := rootOpts.Config

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			counter, closeCounter, err := openCounter(ctx, cfg, db)
			if err != nil {
				return err
			}
			defer closeCounter()

			id, isNew, err := services.NewIdentifierAllocator(counter).Allocate(ctx, args[0])
			if err != nil {
				return err
			}
			state := "existing"
			if isNew {
				state = "new"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, state)
			return nil
		},
	}
}
