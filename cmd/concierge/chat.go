package main

import (
	"github.com/aretw0/concierge/internal/cli"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start a conversation in the terminal",
	Long: `Starts an interactive conversation. Options are picked by number or name; once the
search is done any question is sent to the backend as a follow-up.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")
		domain, _ := cmd.Flags().GetString("domain")
		plain, _ := cmd.Flags().GetBool("plain")

		return cli.RunChat(cli.ChatOptions{
			ConfigPath: configPath,
			Domain:     domain,
			Debug:      debug,
			Plain:      plain,
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("domain", "d", "event", "Conversation to start with: 'vendor' or 'event'")
	chatCmd.Flags().Bool("plain", false, "Disable colors, banner and markdown rendering")

	// Chatting is the default when no subcommand is given.
	rootCmd.RunE = chatCmd.RunE
	rootCmd.Flags().AddFlagSet(chatCmd.Flags())
}
