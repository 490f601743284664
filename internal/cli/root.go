// Package cli implements fusionctl, the operator tool for the fusion API.
package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "fusionctl",
	Short:        "Operator tool for the intelligence fusion API",
	Long:         "Hashes passwords for the users file, dry-runs the threat rules and manages the blob archive.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Same .env the server reads; absence is fine.
		_ = godotenv.Load()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
