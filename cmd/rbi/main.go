// Command rbi runs the barangay inhabitants registry: the HTTP server plus
// maintenance and operator tools.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/barangay-rbi/registry/internal/shared/config"
	"github.com/barangay-rbi/registry/internal/shared/logging"
)

const serviceName = "rbi-registry"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rbi",
		Short:         "Records of Barangay Inhabitants registry",
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newImportCmd(),
		newClassifyCmd(),
		newReclassifyCmd(),
		newPickCmd(),
		newTokenCmd(),
	)
	return root
}

// setup loads configuration and builds the logger shared by every command.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}
