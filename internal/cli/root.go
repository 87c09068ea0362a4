package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trustgate",
	Short: "Trust checks for AI agent manifests",
	Long:  "Validates agent manifests before deployment: sandboxed reference\nresolution, schema checks, governance policy evaluation, source-tree\nintegrity, and tamper-evident audit chains.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
