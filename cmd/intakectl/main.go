// Command intakectl is the operator CLI for the prospect intake service.
//
// Usage:
//
//	intakectl due-date [--from 2024-01-01] [--days 5]
//	intakectl rush --created 2024-01-01 --due 2024-01-03
//	intakectl validate payload.json
//	intakectl check-duplicate payload.json
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/liamcoop/prospects/internal/config"
	"github.com/liamcoop/prospects/internal/logger"
)

type rootOptions struct {
	configPath string
}

// load reads the config named by --config and applies its log level.
func (o *rootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return config.Config{}, err
	}
	logger.SetLevel(level)
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "intakectl",
		Short:         "Operator tools for prospect intake",
		Long:          `Computes due dates and rush flags, validates submission payloads offline and checks them for duplicates against the database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML config (defaults to INTAKE_CONFIG)")

	root.AddCommand(
		newDueDateCmd(opts),
		newRushCmd(opts),
		newValidateCmd(opts),
		newCheckDuplicateCmd(opts),
	)

	return root
}

func main() {
	defer logger.Sync()

	if err := newRootCmd().Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
