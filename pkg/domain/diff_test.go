package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	a := Node{ID: "a", Kind: KindImageSource, Position: Point{X: 100, Y: 100}, Width: DefaultNodeWidth}
	b := Node{ID: "b", Kind: KindVideoGenerator, Position: Point{X: 130, Y: 130}, Width: DefaultNodeWidth}
	ab := NewConnection("a", "b")

	movedA := a
	movedA.Position = Point{X: 250, Y: 180}

	withOutput := a
	withOutput.Output = "data:image/png;base64,AAA"

	tests := []struct {
		name     string
		old      *CanvasState
		new      *CanvasState
		wantDiff *CanvasDiff // nil means we expect no diff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new: &CanvasState{
				SessionID:   "sess-1",
				Nodes:       []Node{a},
				Gesture:     "idle",
				Depth:       1,
				Connections: nil,
			},
			wantDiff: &CanvasDiff{
				SessionID:  "sess-1",
				AddedNodes: []Node{a},
				Pan:        &Point{},
				History:    &Cursor{Cursor: 0, Depth: 1},
				Gesture:    &[]string{"idle"}[0],
			},
		},
		{
			name:     "No Changes",
			old:      &CanvasState{SessionID: "sess-1", Nodes: []Node{a, b}, Connections: []Connection{ab}, Depth: 2, Cursor: 1},
			new:      &CanvasState{SessionID: "sess-1", Nodes: []Node{a, b}, Connections: []Connection{ab}, Depth: 2, Cursor: 1},
			wantDiff: nil,
		},
		{
			name: "Node Moved",
			old:  &CanvasState{SessionID: "sess-1", Nodes: []Node{a, b}, Depth: 2, Cursor: 1},
			new:  &CanvasState{SessionID: "sess-1", Nodes: []Node{movedA, b}, Depth: 3, Cursor: 2},
			wantDiff: &CanvasDiff{
				SessionID:    "sess-1",
				ChangedNodes: []Node{movedA},
				History:      &Cursor{Cursor: 2, Depth: 3},
			},
		},
		{
			name: "Output Amended",
			old:  &CanvasState{SessionID: "sess-1", Nodes: []Node{a}, Depth: 2, Cursor: 1},
			new:  &CanvasState{SessionID: "sess-1", Nodes: []Node{withOutput}, Depth: 2, Cursor: 1},
			wantDiff: &CanvasDiff{
				SessionID:    "sess-1",
				ChangedNodes: []Node{withOutput},
			},
		},
		{
			name: "Node Removed With Connections",
			old:  &CanvasState{SessionID: "sess-1", Nodes: []Node{a, b}, Connections: []Connection{ab}},
			new:  &CanvasState{SessionID: "sess-1", Nodes: []Node{b}},
			wantDiff: &CanvasDiff{
				SessionID:          "sess-1",
				RemovedNodes:       []string{"a"},
				RemovedConnections: []string{ab.ID},
			},
		},
		{
			name: "Drag Line Moved",
			old:  &CanvasState{SessionID: "sess-1", Gesture: "connecting", DragLine: &Point{X: 1, Y: 1}},
			new:  &CanvasState{SessionID: "sess-1", Gesture: "connecting", DragLine: &Point{X: 5, Y: 9}},
			wantDiff: &CanvasDiff{
				SessionID: "sess-1",
				DragLine:  &Point{X: 5, Y: 9},
			},
		},
		{
			name: "Connection Added",
			old:  &CanvasState{SessionID: "sess-1", Nodes: []Node{a, b}},
			new:  &CanvasState{SessionID: "sess-1", Nodes: []Node{a, b}, Connections: []Connection{ab}},
			wantDiff: &CanvasDiff{
				SessionID:        "sess-1",
				AddedConnections: []Connection{ab},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if tt.wantDiff == nil {
				if got != nil {
					t.Errorf("Diff() = %+v, want nil", got)
				}
				return
			}

			if got == nil {
				t.Fatalf("Diff() = nil, want %+v", tt.wantDiff)
			}

			if !reflect.DeepEqual(got, tt.wantDiff) {
				t.Errorf("Diff() = %+v, want %+v", got, tt.wantDiff)
			}
		})
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Empty Fields Omitted", func(t *testing.T) {
		s1 := &CanvasState{SessionID: "s", Nodes: []Node{{ID: "a"}}}
		s2 := &CanvasState{SessionID: "s", Nodes: []Node{{ID: "a"}, {ID: "b"}}}
		diff := Diff(s1, s2)
		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}

		bytes, _ := json.Marshal(diff)
		for _, key := range []string{`"removed_nodes"`, `"added_connections"`, `"history"`, `"pan"`} {
			if strings.Contains(string(bytes), key) {
				t.Errorf("JSON should not contain %s when empty, got: %s", key, string(bytes))
			}
		}
		if !strings.Contains(string(bytes), `"added_nodes"`) {
			t.Errorf("JSON should contain added_nodes, got: %s", string(bytes))
		}
	})
}
