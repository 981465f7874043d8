package main

import (
	"github.com/aretw0/resist/internal/cli"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario.yaml>",
	Short: "Play a scenario on a virtual clock and print its transcript",
	Long: `Plays the steps of a scenario file against a fresh world. Time only moves
through "advance" steps, so a run is instant and deterministic.

The command exits non-zero when an "expect" step does not hold.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		format, _ := cmd.Flags().GetString("format")
		locale, _ := cmd.Flags().GetString("locale")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.Simulate(ctx, cli.SimulateOptions{
			ConfigPath: configPath,
			Scenario:   args[0],
			Format:     format,
			Locale:     locale,
			Out:        cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringP("format", "f", cli.FormatMarkdown, "Output format: markdown, lines or json")
	simulateCmd.Flags().String("locale", "", "Locale of player notifications (overrides the scenario and the config)")
}
