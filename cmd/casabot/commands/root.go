// Package commands implements the casabot CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "casabot",
		Short: "Casabot - chat-driven home automation assistant",
		Long: `Casabot turns chat messages into answers and home automation actions.
It connects to messaging channels (WhatsApp, Discord), classifies each
message with an LLM, and either replies, runs a chat command, or calls
a home automation webhook.

Examples:
  casabot chat "turn off the office lights"
  casabot serve
  casabot actions
  casabot setup`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newActionsCmd(),
		newAuditCmd(),
		newSetupCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
