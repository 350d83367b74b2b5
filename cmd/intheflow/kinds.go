package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/intheflow/internal/presentation/tui"
	"github.com/aretw0/intheflow/pkg/domain"
)

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the tool kinds a canvas node can have",
	RunE: func(cmd *cobra.Command, args []string) error {
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(domain.Registry)
		}

		var sb strings.Builder
		sb.WriteString("| Kind | Name | Output | Inputs | Description |\n|---|---|---|---|---|\n")
		for _, k := range domain.Registry {
			fmt.Fprintf(&sb, "| `%s` | %s | %s | %s | %s |\n", k.Kind, k.Name, k.Output, k.Arity, k.Description)
		}
		out, err := tui.NewRenderer(os.Stdout)(sb.String())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(kindsCmd)
	kindsCmd.Flags().Bool("json", false, "Print the registry as JSON")
}
