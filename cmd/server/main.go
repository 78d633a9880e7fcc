// @title           Lockbox API
// @version         1.0
// @description     Folders, notes and files with per-node sharing and secret locks.
// @host            localhost:8080
// @schemes         http https
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"fmt"
	"os"

	_ "lockbox/docs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configFile string

func main() {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "lockbox",
		Short: "File and folder vault with sharing and secret locks",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./configs/settings.yml)")

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		userCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
