package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/resist/pkg/runner"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "resist",
	Short: "resist simulates contained entities struggling free of their containers",
	Long: `resist drives the escape-attempt protocol: an entity inside a container
(a hand, a stomach, a crate) struggles for a while and, if nothing interrupts it,
ends up outside.

Scenarios can be played on a virtual clock (simulate) or served live over
HTTP (serve) and MCP (mcp).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, runner.ErrExpectationFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file (RESIST_* variables override it)")
}
