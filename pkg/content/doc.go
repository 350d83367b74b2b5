// Package content connects tool nodes to a content generator.
//
// A generation request resolves the node's inputs from the current graph,
// calls the kind-specific generator operation and, on success, writes the
// result into the node with an amend (no new undo step). Failures only touch
// the node's transient status. A node removed while its request is pending
// makes the eventual write a no-op.
package content
