package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/otsync"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of otsync",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "otsync version %s\n", strings.TrimSpace(otsync.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
