package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/repository"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the relational schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := openDB(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repository.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			log.Info("schema migrated", zap.String("dsnHost", redactDSN(cfg.Database.DSN)))
			return nil
		},
	}
}
