package main

import (
	"github.com/aretw0/resist/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <scenario.yaml>",
	Short: "Export the scenario world as a diagram",
	Long:  `Builds the starting world of a scenario and outputs a Mermaid diagram (graph TD) of who contains whom.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		return cli.Graph(cmd.Context(), cli.GraphOptions{
			ConfigPath: configPath,
			Scenario:   args[0],
			Out:        cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
