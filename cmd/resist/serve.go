package main

import (
	"github.com/aretw0/resist"
	"github.com/aretw0/resist/internal/cli"
	"github.com/aretw0/resist/internal/presentation/tui"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API on a live world",
	Long: `Starts a real-time world and exposes its entities over HTTP:
signals (move, cancel, drop, damage), state inspection, a Server-Sent Events
stream of notices and attempt events, and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		addr, _ := cmd.Flags().GetString("addr")
		scenario, _ := cmd.Flags().GetString("scenario")

		out := cmd.OutOrStdout()
		tui.PrintBanner(out, termenv.NewOutput(out).Profile, resist.Version)

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.Serve(ctx, cli.ServeOptions{
			ConfigPath: configPath,
			Addr:       addr,
			Scenario:   scenario,
			Out:        out,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Address to listen on (defaults to http.addr from the config)")
	serveCmd.Flags().String("scenario", "", "Scenario whose entities seed the world")
}
