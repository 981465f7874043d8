package main

import (
	"fmt"

	"github.com/aretw0/resist"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of resist",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "resist version %s\n", resist.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
