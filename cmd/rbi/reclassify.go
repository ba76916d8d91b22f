package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/barangay-rbi/registry/internal/resident"
)

func newReclassifyCmd() *cobra.Command {
	var barangay string
	cmd := &cobra.Command{
		Use:   "reclassify",
		Short: "Recompute stored sectoral flags, picking up birthdays since the last save",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd, func(app *App) error {
				svc := app.services().resident
				changed, err := svc.Refresh(cmd.Context(), resident.ListFilter{BarangayCode: barangay})
				if err != nil {
					return err
				}
				app.Logger.Info("reclassification complete",
					zap.String("barangay_code", barangay),
					zap.Int("changed", changed),
				)
				fmt.Fprintf(cmd.OutOrStdout(), "%d residents reclassified\n", changed)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&barangay, "barangay", "", "limit to one barangay PSGC code")
	return cmd
}
