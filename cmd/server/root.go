package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the account service CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Account service: registration, login and session tokens",
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())

	return cmd
}
