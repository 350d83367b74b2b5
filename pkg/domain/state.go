package domain

// CanvasState is a read-only view of a live canvas: the current graph, the
// viewport pan and the position of the history cursor.
type CanvasState struct {
	SessionID   string       `json:"session_id"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
	Pan         Point        `json:"pan"`
	Cursor      int          `json:"cursor"`
	Depth       int          `json:"depth"`
	Gesture     string       `json:"gesture"`
	DragLine    *Point       `json:"drag_line,omitempty"`
}

// CanUndo reports whether an undo would move the cursor.
func (s *CanvasState) CanUndo() bool { return s.Cursor > 0 }

// CanRedo reports whether a redo would move the cursor.
func (s *CanvasState) CanRedo() bool { return s.Cursor < s.Depth-1 }
