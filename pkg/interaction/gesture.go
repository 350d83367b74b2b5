package interaction

import "github.com/aretw0/intheflow/pkg/domain"

// Gesture is the single active interaction on a canvas. It is a closed set of
// variants: Idle, DraggingNode, Panning and ConnectingFrom. Holding exactly one
// value makes overlapping gestures unrepresentable.
type Gesture interface {
	Name() string
	gesture()
}

// Idle is the resting state.
type Idle struct{}

// DraggingNode moves a node while the pointer is held on its header.
type DraggingNode struct {
	NodeID string
	// Grab is the pointer position relative to the node's rendered top-left corner.
	Grab domain.Point
	// From is the node's canvas position when the drag started.
	From domain.Point
}

// PanSource tells which input device owns a pan gesture.
type PanSource string

const (
	PanMouse PanSource = "mouse"
	PanTouch PanSource = "touch"
)

// Panning translates the viewport.
type Panning struct {
	Source PanSource
	// Origin is the pointer (or two-finger centroid) position at gesture start.
	Origin      domain.Point
	PanAtOrigin domain.Point
}

// ConnectingFrom draws a provisional edge out of SourceID.
type ConnectingFrom struct {
	SourceID string
}

func (Idle) Name() string           { return "idle" }
func (DraggingNode) Name() string   { return "dragging_node" }
func (Panning) Name() string        { return "panning" }
func (ConnectingFrom) Name() string { return "connecting" }

func (Idle) gesture()           {}
func (DraggingNode) gesture()   {}
func (Panning) gesture()        {}
func (ConnectingFrom) gesture() {}

// NodeOf returns the node a gesture is bound to, if any.
func NodeOf(g Gesture) string {
	switch g := g.(type) {
	case DraggingNode:
		return g.NodeID
	case ConnectingFrom:
		return g.SourceID
	}
	return ""
}
