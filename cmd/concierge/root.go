package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "concierge",
	Short: "Concierge is a guided chat for finding vendors and planning events",
	Long: `Concierge walks a user through a short guided conversation, sends the collected
answers to the marketplace backend and relays the results. It runs in the terminal,
as an HTTP/WebSocket service or as an MCP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := godotenv.Load(envFile); err != nil {
			if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("env-file") {
				return nil
			}
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file loaded before the configuration")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}
