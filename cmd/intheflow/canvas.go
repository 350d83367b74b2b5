package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/intheflow/internal/presentation/graph"
	"github.com/aretw0/intheflow/internal/presentation/tui"
)

var canvasCmd = &cobra.Command{
	Use:   "canvas",
	Short: "Manage stored canvases",
	Long:  `List, inspect, and remove canvases checkpointed in the configured store.`,
}

var canvasLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored canvases",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close(cmd.Context())

		ids, err := app.Sessions.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list canvases: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No canvases found.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var canvasInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Show a stored canvas",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close(cmd.Context())

		ws, err := app.Sessions.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load canvas '%s': %w", args[0], err)
		}
		state := ws.State()

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			data, err := json.MarshalIndent(state, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		diagram := graph.GenerateMermaid(state.Nodes, state.Connections, nil)
		out, err := tui.NewRenderer(os.Stdout)(tui.Report(state, nil, diagram))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

var canvasRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more canvases",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close(cmd.Context())

		var errs []error
		for _, id := range args {
			if err := app.Sessions.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("failed to remove '%s': %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed canvas '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(canvasCmd)
	canvasCmd.AddCommand(canvasLsCmd, canvasInspectCmd, canvasRmCmd)
	canvasInspectCmd.Flags().Bool("json", false, "Print the canvas state as JSON")
}
