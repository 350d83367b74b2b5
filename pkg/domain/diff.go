package domain

// CanvasDiff represents the changes between two canvas states.
// It is designed to be serialized to JSON for partial updates on the client.
type CanvasDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	// AddedNodes and ChangedNodes carry full node values; clients replace by ID.
	AddedNodes   []Node   `json:"added_nodes,omitempty"`
	ChangedNodes []Node   `json:"changed_nodes,omitempty"`
	RemovedNodes []string `json:"removed_nodes,omitempty"`

	AddedConnections   []Connection `json:"added_connections,omitempty"`
	RemovedConnections []string     `json:"removed_connections,omitempty"`

	Pan     *Point  `json:"pan,omitempty"`
	History *Cursor `json:"history,omitempty"`
	Gesture *string `json:"gesture,omitempty"`
	// DragLine is set while a connection is being drawn and its end moved.
	// A gesture change to idle clears it on the client.
	DragLine *Point `json:"drag_line,omitempty"`

	// Statuses carries per-node generation status updates. It is filled by the
	// workspace, not by Diff.
	Statuses []NodeStatus `json:"statuses,omitempty"`
}

// Cursor is the history position sent when it moves.
type Cursor struct {
	Cursor int `json:"cursor"`
	Depth  int `json:"depth"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
// It returns nil when nothing changed.
func Diff(oldState, newState *CanvasState) *CanvasDiff {
	if newState == nil {
		return nil
	}

	diff := &CanvasDiff{SessionID: newState.SessionID}

	var oldNodes []Node
	var oldConns []Connection
	if oldState != nil {
		oldNodes = oldState.Nodes
		oldConns = oldState.Connections
	}

	diff.AddedNodes, diff.ChangedNodes, diff.RemovedNodes = diffNodes(oldNodes, newState.Nodes)
	diff.AddedConnections, diff.RemovedConnections = diffConnections(oldConns, newState.Connections)

	if oldState == nil || oldState.Pan != newState.Pan {
		pan := newState.Pan
		diff.Pan = &pan
	}
	if oldState == nil || oldState.Cursor != newState.Cursor || oldState.Depth != newState.Depth {
		diff.History = &Cursor{Cursor: newState.Cursor, Depth: newState.Depth}
	}
	if oldState == nil || oldState.Gesture != newState.Gesture {
		g := newState.Gesture
		diff.Gesture = &g
	}

	if newState.DragLine != nil && (oldState == nil || oldState.DragLine == nil || *oldState.DragLine != *newState.DragLine) {
		dl := *newState.DragLine
		diff.DragLine = &dl
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffNodes(old, new []Node) (added, changed []Node, removed []string) {
	byID := make(map[string]Node, len(old))
	for _, n := range old {
		byID[n.ID] = n
	}

	seen := make(map[string]bool, len(new))
	for _, n := range new {
		seen[n.ID] = true
		prev, ok := byID[n.ID]
		switch {
		case !ok:
			added = append(added, n)
		case prev != n:
			changed = append(changed, n)
		}
	}

	for _, n := range old {
		if !seen[n.ID] {
			removed = append(removed, n.ID)
		}
	}
	return added, changed, removed
}

// diffConnections relies on connection IDs being derived from their endpoints,
// so an ID present in both states denotes the same edge.
func diffConnections(old, new []Connection) (added []Connection, removed []string) {
	before := make(map[string]bool, len(old))
	for _, c := range old {
		before[c.ID] = true
	}
	after := make(map[string]bool, len(new))
	for _, c := range new {
		after[c.ID] = true
		if !before[c.ID] {
			added = append(added, c)
		}
	}
	for _, c := range old {
		if !after[c.ID] {
			removed = append(removed, c.ID)
		}
	}
	return added, removed
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *CanvasDiff) IsEmpty() bool {
	return len(d.AddedNodes) == 0 &&
		len(d.ChangedNodes) == 0 &&
		len(d.RemovedNodes) == 0 &&
		len(d.AddedConnections) == 0 &&
		len(d.RemovedConnections) == 0 &&
		d.Pan == nil &&
		d.History == nil &&
		d.Gesture == nil &&
		d.DragLine == nil &&
		len(d.Statuses) == 0
}
