// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "usuarios",
	Short: "usuarios is the user management API",
	Long: `usuarios is the user management API: registration, login with local or
directory accounts, role based access control and password recovery.`,
	Args:          cobra.OnlyValidArgs,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
