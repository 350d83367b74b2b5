/*
Package intheflow is the core of a node-based creative canvas: tools such as
image, video, text and voice generators are placed on a pannable canvas, wired
together with connections and run against a content generator.

# Concept

A canvas is a value. The graph (nodes and connections), its undo history and
the gesture in progress live in an interaction.Editor that is never mutated in
place; every operation returns the next Editor. Outer surfaces hold one Editor
per session inside a workspace.Workspace, which serialises access and streams
a domain.CanvasDiff after each change.

History has two write paths. Structural edits and completed drags record a new
snapshot; generation results amend the current one, so the undo stack only
contains user intent:

	e := interaction.NewEditor(geometry.DefaultOffset)
	e, node := e.AddNode(domain.KindImageGenerator, graph.DefaultPlacement, graph.NewID)
	e, _ = e.AmendOutput(node.ID, "data:image/png;base64,...")
	e, _ = e.Undo() // the canvas is empty again

# Packages

  - pkg/graph, pkg/history, pkg/geometry: the immutable graph store, the
    snapshot stack and coordinate helpers.
  - pkg/interaction: the Editor and the pointer and touch gesture controller.
  - pkg/content: turns node parameters and upstream outputs into generator
    requests and writes results back.
  - pkg/workspace, pkg/session: live canvases and their lifecycle, checkpoints
    and locking.
  - pkg/adapters: memory, redis and Gemini implementations of the ports, plus
    HTTP and MCP surfaces.

The intheflow command in cmd/intheflow wires these together.
*/
package intheflow
