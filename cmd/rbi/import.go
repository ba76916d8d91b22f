package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/barangay-rbi/registry/internal/psgc"
	"github.com/barangay-rbi/registry/internal/psoc"
)

func newImportCmd() *cobra.Command {
	var sheet string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load PSA reference workbooks into the database",
	}
	cmd.PersistentFlags().StringVar(&sheet, "sheet", "", "worksheet name (default: the active sheet)")

	cmd.AddCommand(&cobra.Command{
		Use:   "psgc <file.xlsx>",
		Short: "Import the Philippine Standard Geographic Code publication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := psgc.ReadWorkbook(f, sheet)
			if err != nil {
				return err
			}
			return withDatabase(cmd, func(app *App) error {
				if err := psgc.NewRepository(app.DB.Pool).Upsert(cmd.Context(), result.Places); err != nil {
					return err
				}
				if err := app.searchCache().Invalidate(cmd.Context(), "psgc"); err != nil {
					app.Logger.Warn("failed to invalidate search cache", zap.Error(err))
				}
				app.Logger.Info("psgc import complete",
					zap.Int("places", len(result.Places)),
					zap.Int("skipped", result.Skipped),
				)
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d places (%d rows skipped)\n", len(result.Places), result.Skipped)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "psoc <file.xlsx>",
		Short: "Import the Philippine Standard Occupational Classification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := psoc.ReadWorkbook(f, sheet)
			if err != nil {
				return err
			}
			return withDatabase(cmd, func(app *App) error {
				if err := psoc.NewRepository(app.DB.Pool).Upsert(cmd.Context(), result.Occupations); err != nil {
					return err
				}
				if err := app.searchCache().Invalidate(cmd.Context(), "psoc"); err != nil {
					app.Logger.Warn("failed to invalidate search cache", zap.Error(err))
				}
				app.Logger.Info("psoc import complete",
					zap.Int("occupations", len(result.Occupations)),
					zap.Int("skipped", result.Skipped),
				)
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d occupations (%d rows skipped)\n", len(result.Occupations), result.Skipped)
				return nil
			})
		},
	})

	return cmd
}

// withDatabase runs fn against a migrated database, failing when none is reachable.
func withDatabase(cmd *cobra.Command, fn func(app *App) error) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	app, err := connect(cmd.Context(), cfg, logger, true)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.DB == nil {
		return fmt.Errorf("database %s:%d is not reachable", cfg.Database.Host, cfg.Database.Port)
	}
	return fn(app)
}
