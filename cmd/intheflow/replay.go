package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/intheflow/internal/cli"
	"github.com/aretw0/intheflow/internal/presentation/graph"
	"github.com/aretw0/intheflow/internal/presentation/tui"
	"github.com/aretw0/intheflow/pkg/interaction"
)

var replayCmd = &cobra.Command{
	Use:   "replay <script.yaml>",
	Short: "Apply a recorded script of canvas operations and print the result",
	Long: `Replays a yaml script of node operations and raw pointer or touch events
against a fresh canvas, then prints the resulting graph. Generate steps call
the configured generator synchronously.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		script, err := cli.LoadScript(args[0])
		if err != nil {
			return err
		}
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		defer app.Close(ctx)

		ws := app.NewReplayWorkspace(script.Session)
		results, replayErr := cli.Replay(ctx, ws, app.Content, script)

		state := ws.State()
		diagram := ""
		if withGraph, _ := cmd.Flags().GetBool("mermaid"); withGraph {
			overlay := graph.NewOverlay(ws.Statuses(), interaction.NodeOf(ws.Editor().Gesture))
			diagram = graph.GenerateMermaid(state.Nodes, state.Connections, overlay)
		}
		doc := tui.Report(state, ws.Statuses(), diagram) + "\n" + cli.FormatSteps(results)
		out, err := tui.NewRenderer(os.Stdout)(doc)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)

		if save, _ := cmd.Flags().GetBool("save"); save && replayErr == nil {
			if err := app.Sessions.Store().Save(ctx, script.Session, ws.Checkpoint()); err != nil {
				return fmt.Errorf("failed to save canvas: %w", err)
			}
			app.Logger.Info("Canvas saved", "session_id", script.Session)
		}
		return replayErr
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().Bool("mermaid", true, "Include a mermaid diagram of the result")
	replayCmd.Flags().Bool("save", false, "Checkpoint the resulting canvas to the configured store")
}
