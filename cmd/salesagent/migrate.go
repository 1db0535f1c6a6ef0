package main

import (
	"github.com/qqmakana/ai-sales-agent/internal/runtime"
	"github.com/spf13/cobra"
)

func migrateCMD(cfgPath *string) *cobra.Command {
	var migDir string
	var direction string
	var steps int

	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			dsn, err := runtime.BuildPostgresDSN(cfg)
			if err != nil {
				return err
			}
			if err := runtime.Migrate(migDir, dsn, direction, steps); err != nil {
				return err
			}
			log.Info().Str("direction", direction).Int("steps", steps).Msg("migrations applied")
			return nil
		},
	}
	migrate.Flags().StringVar(&migDir, "dir", "", "migrations source URL, e.g. file://migrations (default: embedded)")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")

	return migrate
}
