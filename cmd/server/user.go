package main

import (
	"context"
	"fmt"

	"lockbox/internal/auth"
	"lockbox/internal/config"
	"lockbox/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(userAddCmd())
	return cmd
}

func userAddCmd() *cobra.Command {
	var (
		password    string
		displayName string
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return fmt.Errorf("--password is required")
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			ctx := context.Background()
			st, err := openStore(ctx, cfg, zap.NewNop())
			if err != nil {
				return err
			}
			defer st.Close()

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			params := store.CreateUserParams{Username: args[0], PasswordHash: hash}
			if displayName != "" {
				params.DisplayName = &displayName
			}
			user, err := st.CreateUser(ctx, params)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&displayName, "display-name", "", "optional display name")
	return cmd
}
