// Package cli provides command-line interface implementation for certporter.
package cli

import (
	"github.com/spf13/cobra"

	"certporter/internal/version"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "certporter",
	Short: "Export and import certificates between stores as PKCS#12 containers",
	Long: `certporter migrates X.509 certificates and their private keys between the
user-scoped and machine-scoped certificate stores, using password-protected
PKCS#12 (PFX) containers as the interchange format. Every run writes a CSV
audit log next to the exported or imported files.`,
	Version: version.Version,
	Run: func(cmd *cobra.Command, args []string) {
		// Show help and exit 0 if no subcommand is provided
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
}
