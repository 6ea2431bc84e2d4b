package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// rootCmd serves the API when no subcommand is given.
var rootCmd = &cobra.Command{
	Use:   "gymadmin",
	Short: "Gym membership administration service",
	Long: `gymadmin manages gym members, their memberships and payments.

Configuration comes from GYM_* environment variables or a .env file.
Without a subcommand the HTTP API is served.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, importCmd, remindCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
