// Package interaction turns pointer and touch gestures into canvas mutations.
//
// The Controller is a state machine over a single Gesture value:
//
//	Idle --down on node header--> DraggingNode --move--> DraggingNode --up--> Idle (record)
//	Idle --down on canvas / two touches--> Panning --move--> Panning --release--> Idle
//	Idle --down on output handle--> ConnectingFrom --up on input handle--> Idle (connect, record)
//
// Intermediate drag frames only move the node; the history step is recorded
// once, when the pointer is released. Panning never touches history.
package interaction

import (
	"log/slog"

	"github.com/aretw0/intheflow/internal/logging"
	"github.com/aretw0/intheflow/pkg/geometry"
)

// Controller applies input events to an Editor.
// It holds no canvas state and is safe to share between canvases.
type Controller struct {
	logger *slog.Logger
}

// Option configures the Controller.
type Option func(*Controller)

// WithLogger configures a logger for gesture transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a Controller.
func NewController(opts ...Option) *Controller {
	c := &Controller{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle applies one event and returns the resulting editor.
// Events that do not fit the current gesture are ignored.
func (c *Controller) Handle(e Editor, ev Event) Editor {
	before := e.gesture()
	next := c.handle(e, ev)
	if after := next.gesture(); after.Name() != before.Name() {
		c.logger.Debug("Gesture transition",
			"from", before.Name(),
			"to", after.Name(),
			"event", ev.Type,
			"node_id", NodeOf(after),
		)
	}
	return next
}

func (c *Controller) handle(e Editor, ev Event) Editor {
	switch g := e.gesture().(type) {
	case Idle:
		return c.fromIdle(e, ev)
	case DraggingNode:
		return c.whileDragging(e, g, ev)
	case Panning:
		return c.whilePanning(e, g, ev)
	case ConnectingFrom:
		return c.whileConnecting(e, g, ev)
	}
	return e
}

func (c *Controller) fromIdle(e Editor, ev Event) Editor {
	switch ev.Type {
	case TouchStart:
		if len(ev.Touches) == 2 {
			e.Gesture = Panning{
				Source:      PanTouch,
				Origin:      geometry.Centroid(ev.Touches...),
				PanAtOrigin: e.Viewport.Pan,
			}
			return e
		}
		if len(ev.Touches) != 1 || ev.Target.Kind == TargetCanvas {
			return e
		}
	case PointerDown:
		if ev.Target.Kind == TargetCanvas {
			if ev.Button != PrimaryButton {
				return e
			}
			e.Gesture = Panning{Source: PanMouse, Origin: ev.Pos, PanAtOrigin: e.Viewport.Pan}
			return e
		}
	default:
		return e
	}

	pos, ok := ev.pointer()
	if !ok {
		return e
	}
	node, ok := e.Graph.Node(ev.Target.NodeID)
	if !ok {
		return e
	}

	switch ev.Target.Kind {
	case TargetNodeHeader:
		topLeft := e.Viewport.ToScreen(node.Position)
		e.Gesture = DraggingNode{NodeID: node.ID, Grab: pos.Sub(topLeft), From: node.Position}
	case TargetOutputHandle:
		e.Gesture = ConnectingFrom{SourceID: node.ID}
		e.DragLine = nil
	}
	// Node controls and bodies never start a gesture.
	return e
}

func (c *Controller) whileDragging(e Editor, g DraggingNode, ev Event) Editor {
	switch ev.Type {
	case PointerMove, TouchMove:
		pos, ok := ev.pointer()
		if !ok {
			return e
		}
		if _, exists := e.Graph.Node(g.NodeID); !exists {
			e.Gesture = Idle{}
			return e
		}
		to := e.Viewport.ToCanvas(pos.Sub(g.Grab))
		e.Graph = e.Graph.MoveNode(g.NodeID, to.X, to.Y)
		return e
	case PointerUp:
		return c.endDrag(e, g)
	case TouchEnd:
		if len(ev.Touches) == 0 {
			return c.endDrag(e, g)
		}
	}
	return e
}

func (c *Controller) endDrag(e Editor, g DraggingNode) Editor {
	e.Gesture = Idle{}
	node, ok := e.Graph.Node(g.NodeID)
	if !ok || node.Position == g.From {
		return e
	}
	return e.record()
}

func (c *Controller) whilePanning(e Editor, g Panning, ev Event) Editor {
	switch g.Source {
	case PanMouse:
		switch ev.Type {
		case PointerMove:
			e.Viewport = e.Viewport.WithPan(geometry.PanFrom(g.PanAtOrigin, g.Origin, ev.Pos))
		case PointerUp, PointerLeave:
			e.Gesture = Idle{}
		}
	case PanTouch:
		switch ev.Type {
		case TouchMove:
			if len(ev.Touches) == 2 {
				centroid := geometry.Centroid(ev.Touches...)
				e.Viewport = e.Viewport.WithPan(geometry.PanFrom(g.PanAtOrigin, g.Origin, centroid))
			}
		case TouchEnd:
			if len(ev.Touches) < 2 {
				e.Gesture = Idle{}
			}
		}
	}
	return e
}

func (c *Controller) whileConnecting(e Editor, g ConnectingFrom, ev Event) Editor {
	switch ev.Type {
	case PointerMove, TouchMove:
		pos, ok := ev.pointer()
		if !ok {
			return e
		}
		end := e.Viewport.ToCanvas(pos)
		e.DragLine = &end
		return e
	case PointerUp, TouchEnd:
		e.Gesture = Idle{}
		e.DragLine = nil
		if ev.Target.Kind != TargetInputHandle || ev.Target.NodeID == g.SourceID {
			return e
		}
		next, _ := e.Connect(g.SourceID, ev.Target.NodeID)
		return next
	case PointerLeave:
		e.Gesture = Idle{}
		e.DragLine = nil
	}
	return e
}

// DragLinePath returns the SVG path of the connection being drawn, or "" when
// no connection gesture with a known endpoint is active.
func DragLinePath(e Editor) string {
	g, ok := e.gesture().(ConnectingFrom)
	if !ok || e.DragLine == nil {
		return ""
	}
	src, ok := e.Graph.Node(g.SourceID)
	if !ok {
		return ""
	}
	return geometry.ConnectionPath(src.OutputHandle(), *e.DragLine)
}

// ConnectionPaths returns the SVG path of every connection, keyed by connection ID.
func ConnectionPaths(e Editor) map[string]string {
	paths := make(map[string]string, len(e.Graph.Connections))
	for _, conn := range e.Graph.Connections {
		src, okS := e.Graph.Node(conn.SourceID)
		dst, okT := e.Graph.Node(conn.TargetID)
		if !okS || !okT {
			continue
		}
		paths[conn.ID] = geometry.ConnectionPath(src.OutputHandle(), dst.InputHandle())
	}
	return paths
}
