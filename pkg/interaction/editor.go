package interaction

import (
	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/aretw0/intheflow/pkg/geometry"
	"github.com/aretw0/intheflow/pkg/graph"
	"github.com/aretw0/intheflow/pkg/history"
)

// Editor is the complete state of one canvas: the live graph, its history,
// the viewport and the active gesture. It is a value; every method returns a
// new Editor and leaves the receiver untouched.
type Editor struct {
	Graph    graph.Graph
	History  history.History
	Viewport geometry.Viewport
	Gesture  Gesture
	// DragLine is the free end of a connection being drawn, in canvas coordinates.
	DragLine *domain.Point
}

// NewEditor returns an empty canvas with the given external offset.
func NewEditor(offset domain.Point) Editor {
	return Editor{
		Graph:    graph.Empty(),
		History:  history.New(),
		Viewport: geometry.NewViewport(offset),
		Gesture:  Idle{},
	}
}

// Restore returns an editor whose graph and single history step are g.
func Restore(g graph.Graph, offset domain.Point) Editor {
	e := NewEditor(offset)
	e.Graph = g
	e.History = history.NewFrom(g)
	return e
}

func (e Editor) gesture() Gesture {
	if e.Gesture == nil {
		return Idle{}
	}
	return e.Gesture
}

// record makes the live graph a new undo step.
func (e Editor) record() Editor {
	e.History = e.History.Record(e.Graph)
	return e
}

// AddNode appends a node and records the step.
func (e Editor) AddNode(kind domain.Kind, p graph.Placement, newID graph.IDFunc) (Editor, domain.Node) {
	g, node := e.Graph.AddNodeWith(kind, p, newID)
	e.Graph = g
	return e.record(), node
}

// RemoveNode removes a node with its connections and records the step.
// Unknown IDs are a no-op. A gesture bound to the removed node is dropped.
func (e Editor) RemoveNode(id string) (Editor, bool) {
	if _, ok := e.Graph.Node(id); !ok {
		return e, false
	}
	e.Graph = e.Graph.RemoveNode(id)
	if NodeOf(e.gesture()) == id {
		e.Gesture = Idle{}
		e.DragLine = nil
	}
	return e.record(), true
}

// Connect adds an edge and records the step if the graph changed.
func (e Editor) Connect(sourceID, targetID string) (Editor, bool) {
	g, changed := e.Graph.Connect(sourceID, targetID)
	if !changed {
		return e, false
	}
	e.Graph = g
	return e.record(), true
}

// Disconnect removes an edge and records the step if the graph changed.
func (e Editor) Disconnect(connectionID string) (Editor, bool) {
	g, changed := e.Graph.Disconnect(connectionID)
	if !changed {
		return e, false
	}
	e.Graph = g
	return e.record(), true
}

// MoveNode places a node and records the step, as a complete drag would.
func (e Editor) MoveNode(id string, to domain.Point) (Editor, bool) {
	n, ok := e.Graph.Node(id)
	if !ok || n.Position == to {
		return e, false
	}
	e.Graph = e.Graph.MoveNode(id, to.X, to.Y)
	return e.record(), true
}

// Undo replaces the live graph with the previous snapshot. Any active gesture
// is abandoned.
func (e Editor) Undo() (Editor, bool) {
	h, s, ok := e.History.Undo()
	if !ok {
		return e, false
	}
	return e.restore(h, s), true
}

// Redo replaces the live graph with the next snapshot. Any active gesture is
// abandoned.
func (e Editor) Redo() (Editor, bool) {
	h, s, ok := e.History.Redo()
	if !ok {
		return e, false
	}
	return e.restore(h, s), true
}

func (e Editor) restore(h history.History, s history.Snapshot) Editor {
	e.History = h
	e.Graph = s
	e.Gesture = Idle{}
	e.DragLine = nil
	return e
}

// AmendOutput writes a node's output without creating an undo step.
//
// The write is applied to the live graph and, read-modify-write, to the
// snapshot currently under the history cursor, so uncommitted layout changes
// are not folded into history and intervening structural edits are kept.
// A node that no longer exists makes this a no-op.
func (e Editor) AmendOutput(nodeID, payload string) (Editor, bool) {
	if _, ok := e.Graph.Node(nodeID); !ok {
		return e, false
	}
	live, liveChanged := e.Graph.SetOutput(nodeID, payload)
	snap, snapChanged := e.History.Current().SetOutput(nodeID, payload)
	if snapChanged {
		e.History = e.History.Amend(snap)
	}
	e.Graph = live
	return e, liveChanged || snapChanged
}

// State exports a read-only view of the editor.
func (e Editor) State(sessionID string) domain.CanvasState {
	return domain.CanvasState{
		SessionID:   sessionID,
		Nodes:       e.Graph.Nodes,
		Connections: e.Graph.Connections,
		Pan:         e.Viewport.Pan,
		Cursor:      e.History.Cursor(),
		Depth:       e.History.Len(),
		Gesture:     e.gesture().Name(),
		DragLine:    e.DragLine,
	}
}
