package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"duemate/internal/db"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|down]",
		Short: "Apply or roll back the embedded database migrations",
		Long: `Apply or roll back the SQL migrations embedded in the binary.

Examples:
  duematectl migrate up
  duematectl migrate down`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err := db.Migrate(cfg.DatabaseURL, args[0]); err != nil {
				return err
			}
			logger.Info("migrations applied", zap.String("direction", args[0]))
			return nil
		},
	}
}
