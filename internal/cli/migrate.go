package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/portal-rpa/internal/repo"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and seed the counter row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.Config
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			n, err := repo.PurgeExpiredResults(cmd.Context(), db, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s); purged %d expired results\n", cfg.DBDriver, n)
			return nil
		},
	}
}
