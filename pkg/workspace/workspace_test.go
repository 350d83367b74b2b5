package workspace_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/intheflow/pkg/content"
	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/aretw0/intheflow/pkg/graph"
	"github.com/aretw0/intheflow/pkg/interaction"
	"github.com/aretw0/intheflow/pkg/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ content.Canvas = (*workspace.Workspace)(nil)

func sequentialIDs() graph.IDFunc {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("n%d", n)
	}
}

type recorder struct {
	mu       sync.Mutex
	history  []domain.EventType
	gestures []string
}

func (r *recorder) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnHistory: func(_ context.Context, e *domain.HistoryEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.history = append(r.history, e.Type)
		},
		OnGesture: func(_ context.Context, e *domain.GestureEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.gestures = append(r.gestures, string(e.Type)+":"+e.Gesture)
		},
	}
}

func TestWorkspace_OperationsEmitHistoryEvents(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	w := workspace.New("s1", workspace.WithIDFunc(sequentialIDs()), workspace.WithHooks(rec.hooks()))

	a, err := w.AddNode(ctx, domain.KindImageSource)
	require.NoError(t, err)
	b, err := w.AddNode(ctx, domain.KindVideoGenerator)
	require.NoError(t, err)
	assert.Equal(t, domain.Point{X: 130, Y: 130}, b.Position)

	assert.True(t, w.Connect(ctx, a.ID, b.ID))
	assert.False(t, w.Connect(ctx, a.ID, b.ID), "duplicate")
	assert.True(t, w.AmendOutput(ctx, a.ID, "data:image/png;base64,AAA"))
	assert.True(t, w.Undo(ctx))
	assert.True(t, w.Redo(ctx))
	assert.False(t, w.Redo(ctx))

	assert.Equal(t, []domain.EventType{
		domain.EventRecord, domain.EventRecord, domain.EventRecord,
		domain.EventAmend, domain.EventUndo, domain.EventRedo,
	}, rec.history)
	assert.Equal(t, []string{"data:image/png;base64,AAA"}, w.ResolveInputs(b.ID))

	_, err = w.AddNode(ctx, domain.Kind("NOPE"))
	assert.ErrorIs(t, err, domain.ErrUnknownKind)
}

func TestWorkspace_DispatchDrag(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	w := workspace.New("s1", workspace.WithIDFunc(sequentialIDs()), workspace.WithHooks(rec.hooks()))
	n, _ := w.AddNode(ctx, domain.KindImageGenerator)
	rec.history = nil

	head := interaction.Target{Kind: interaction.TargetNodeHeader, NodeID: n.ID}
	w.Dispatch(ctx, interaction.Event{Type: interaction.PointerDown, Pos: domain.Point{X: 376, Y: 110}, Target: head})
	for x := 400.0; x < 520; x += 30 {
		w.Dispatch(ctx, interaction.Event{Type: interaction.PointerMove, Pos: domain.Point{X: x, Y: 150}})
	}
	assert.Empty(t, rec.history, "moves never record")

	st := w.Dispatch(ctx, interaction.Event{Type: interaction.PointerUp, Pos: domain.Point{X: 526, Y: 190}})
	assert.Equal(t, "idle", st.Gesture)
	assert.Equal(t, []domain.EventType{domain.EventRecord}, rec.history)
	assert.Equal(t, []string{"gesture_start:dragging_node", "gesture_end:dragging_node"}, rec.gestures)
}

func TestWorkspace_Subscribe(t *testing.T) {
	ctx := context.Background()
	w := workspace.New("s1", workspace.WithIDFunc(sequentialIDs()))
	diffs, stop := w.Subscribe()
	defer stop()

	n, _ := w.AddNode(ctx, domain.KindScriptWriter)
	d := <-diffs
	require.Len(t, d.AddedNodes, 1)
	assert.Equal(t, n.ID, d.AddedNodes[0].ID)
	assert.Equal(t, &domain.Cursor{Cursor: 1, Depth: 2}, d.History)

	w.SetStatus(ctx, domain.NodeStatus{NodeID: n.ID, Status: domain.StatusLoading})
	d = <-diffs
	require.Len(t, d.Statuses, 1)
	assert.Equal(t, domain.StatusLoading, d.Statuses[0].Status)

	// A no-op produces no diff.
	w.Undo(ctx)
	<-diffs
	w.Undo(ctx)
	select {
	case d := <-diffs:
		t.Fatalf("unexpected diff %+v", d)
	case <-time.After(20 * time.Millisecond):
	}

	stop()
	stop()
	_, open := <-diffs
	assert.False(t, open)
}

func TestWorkspace_StatusLifecycle(t *testing.T) {
	ctx := context.Background()
	w := workspace.New("s1", workspace.WithIDFunc(sequentialIDs()))
	n, _ := w.AddNode(ctx, domain.KindImageGenerator)

	assert.Equal(t, domain.StatusIdle, w.Status(n.ID).Status)
	w.SetStatus(ctx, domain.NodeStatus{NodeID: n.ID, Status: domain.StatusError, Error: "boom"})
	assert.Equal(t, "boom", w.Status(n.ID).Error)

	w.RemoveNode(ctx, n.ID)
	assert.Empty(t, w.Statuses())
	w.SetStatus(ctx, domain.NodeStatus{NodeID: n.ID, Status: domain.StatusSuccess})
	assert.Empty(t, w.Statuses(), "status for a removed node is discarded")

	require.True(t, w.Undo(ctx))
	assert.Equal(t, "boom", w.Status(n.ID).Error, "undo restores the status recorded before removal")
}

func TestWorkspace_StatusSurvivesUndo(t *testing.T) {
	ctx := context.Background()
	w := workspace.New("s1", workspace.WithIDFunc(sequentialIDs()))
	n, _ := w.AddNode(ctx, domain.KindImageGenerator)
	sources := []domain.Source{{URL: "https://example.com/fox", Title: "Fox"}}
	w.SetStatus(ctx, domain.NodeStatus{NodeID: n.ID, Status: domain.StatusSuccess, Sources: sources})

	require.True(t, w.RemoveNode(ctx, n.ID))
	assert.Equal(t, domain.StatusIdle, w.Status(n.ID).Status)

	diffs, stop := w.Subscribe()
	defer stop()
	require.True(t, w.Undo(ctx))
	assert.Equal(t, sources, w.Status(n.ID).Sources)
	assert.Contains(t, w.Statuses(), n.ID)

	d := <-diffs
	require.Len(t, d.Statuses, 1)
	assert.Equal(t, n.ID, d.Statuses[0].NodeID)
	assert.Equal(t, sources, d.Statuses[0].Sources)
}

func TestWorkspace_CheckpointRestore(t *testing.T) {
	ctx := context.Background()
	w := workspace.New("s1", workspace.WithIDFunc(sequentialIDs()))
	a, _ := w.AddNode(ctx, domain.KindVideoSource)
	b, _ := w.AddNode(ctx, domain.KindSequencer)
	w.Connect(ctx, a.ID, b.ID)
	w.AmendOutput(ctx, a.ID, "https://example.com/a.mp4")

	cp := w.Checkpoint()
	assert.Equal(t, "s1", cp.SessionID)
	assert.Len(t, cp.Nodes, 2)

	restored := workspace.New("s1",
		workspace.WithPan(domain.Point{X: 3, Y: 4}),
		workspace.WithGraph(graph.Graph{Nodes: cp.Nodes, Connections: cp.Connections}),
	)
	st := restored.State()
	assert.Equal(t, domain.Point{X: 3, Y: 4}, st.Pan)
	assert.Equal(t, 1, st.Depth, "history is not restored")
	assert.Equal(t, []string{"https://example.com/a.mp4"}, restored.ResolveInputs(b.ID))
}

func TestWorkspace_ConcurrentDispatch(t *testing.T) {
	ctx := context.Background()
	w := workspace.New("s1", workspace.WithIDFunc(sequentialIDs()))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = w.AddNode(ctx, domain.KindImageSource)
		}()
	}
	wg.Wait()

	st := w.State()
	assert.Len(t, st.Nodes, 20)
	assert.Equal(t, 21, st.Depth)
}
