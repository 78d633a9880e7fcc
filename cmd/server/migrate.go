package main

import (
	"fmt"

	"lockbox/internal/config"
	"lockbox/internal/database"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if cfg.DB.Driver != "postgres" {
				return fmt.Errorf("migrations only apply to the postgres driver, not %q", cfg.DB.Driver)
			}
			if err := database.Migrate(cfg.DB.Source); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
