package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/repository"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/service"
)

func seedAdminCmd() *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an administrator account",
		Example: `  orchid-store seed-admin --email admin@orchid.store --password 'change-me-now' --name Admin`,
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

			accounts := service.NewAccountService(
				db,
				repository.NewAccountRepository(db),
				repository.NewOutboxRepository(db),
				log,
			)
			account, err := accounts.Register(cmd.Context(), service.RegisterCommand{
				Email:    email,
				Password: password,
				Name:     name,
				Role:     domain.RoleAdmin,
				Actor:    "seed-admin",
			})
			if err != nil {
				return fmt.Errorf("failed to seed admin: %w", err)
			}

			log.Info("admin account created",
				zap.Int64("accountId", account.ID),
				zap.String("email", account.Email))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "administrator email")
	cmd.Flags().StringVar(&password, "password", "", "administrator password (at least 8 characters)")
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
