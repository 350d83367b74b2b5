package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/intheflow"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of intheflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "intheflow version %s\n", strings.TrimSpace(intheflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
