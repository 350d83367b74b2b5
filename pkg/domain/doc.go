/*
Package domain contains the core models of the intheflow canvas.

It defines the entities placed on the canvas and the vocabulary shared by every
other package. The package is pure: no I/O, no persistence, no goroutines.

# Key Entities

  - Node: a placed tool instance with a position and an optional output payload.
  - Connection: a directed edge from one node's output to another node's input.
  - Kind: the tool variant of a node, described by the Registry (metadata and input arity).
  - NodeStatus: the transient per-node generation status owned by the content adapter.
  - CanvasDiff: the delta between two canvas snapshots, sent to live clients.
*/
package domain
