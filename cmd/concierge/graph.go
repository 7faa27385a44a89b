package main

import (
	"github.com/aretw0/concierge/internal/cli"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the question flows as a Mermaid diagram",
	Long: `Renders the configured question sequences as a Mermaid flowchart.
Paste the output into any Mermaid viewer, or pipe it to mmdc.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		domain, _ := cmd.Flags().GetString("domain")

		return cli.RunGraph(cli.GraphOptions{
			ConfigPath: configPath,
			Domain:     domain,
		}, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("domain", "d", "", "Only render this domain: 'vendor' or 'event'")
}
