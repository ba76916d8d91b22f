package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barangay-rbi/registry/internal/shared/database"
)

func newMigrateCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				files, err := database.MigrationFiles()
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintln(cmd.OutOrStdout(), f)
				}
				return nil
			}

			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := database.New(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			return database.Migrate(cmd.Context(), db.Pool, logger)
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print the embedded migrations instead of applying them")
	return cmd
}
