package workspace

import (
	"context"
	"slices"
	"strings"

	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/aretw0/intheflow/pkg/interaction"
)

// step is one editor transition. ok reports whether it changed anything.
type step func(e interaction.Editor) (next interaction.Editor, ok bool)

// apply runs s under the lock, then reports lifecycle events for what changed.
// historyEvent names the history movement s performs when it reports ok.
func (w *Workspace) apply(ctx context.Context, historyEvent domain.EventType, s step) (interaction.Editor, bool) {
	w.mu.Lock()
	before := w.editor
	after, ok := s(before)
	w.editor = after

	var restored []domain.NodeStatus
	if ok {
		restored = w.retainStatusesLocked(before, after)
	}

	oldState, newState := before.State(w.id), after.State(w.id)
	d := domain.Diff(&oldState, &newState)
	if len(restored) > 0 {
		if d == nil {
			d = &domain.CanvasDiff{SessionID: w.id}
		}
		d.Statuses = restored
	}
	w.broadcastLocked(d)
	w.mu.Unlock()

	if ok && historyEvent != "" && w.hooks.OnHistory != nil {
		w.hooks.OnHistory(ctx, &domain.HistoryEvent{
			EventBase: w.base(historyEvent),
			Cursor:    after.History.Cursor(),
			Depth:     after.History.Len(),
		})
	}
	w.reportGesture(ctx, before, after)
	return after, ok
}

// retainStatusesLocked drops statuses of nodes that no step of the history
// can bring back and returns the statuses of nodes that reappeared.
func (w *Workspace) retainStatusesLocked(before, after interaction.Editor) []domain.NodeStatus {
	var restored []domain.NodeStatus
	for id, st := range w.statuses {
		if _, live := after.Graph.Node(id); live {
			if _, was := before.Graph.Node(id); !was {
				restored = append(restored, st)
			}
			continue
		}
		if !inHistory(after, id) {
			delete(w.statuses, id)
		}
	}
	slices.SortFunc(restored, func(a, b domain.NodeStatus) int { return strings.Compare(a.NodeID, b.NodeID) })
	return restored
}

func inHistory(e interaction.Editor, id string) bool {
	for i := range e.History.Len() {
		if snap, ok := e.History.At(i); ok {
			if _, exists := snap.Node(id); exists {
				return true
			}
		}
	}
	return false
}

func (w *Workspace) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: w.now(), Type: t, SessionID: w.id}
}

func (w *Workspace) reportGesture(ctx context.Context, before, after interaction.Editor) {
	if w.hooks.OnGesture == nil {
		return
	}
	was, is := gestureOf(before), gestureOf(after)
	if was.Name() == is.Name() {
		return
	}
	if _, idle := was.(interaction.Idle); !idle {
		w.hooks.OnGesture(ctx, &domain.GestureEvent{
			EventBase: w.base(domain.EventGestureEnd),
			Gesture:   was.Name(),
			NodeID:    interaction.NodeOf(was),
		})
	}
	if _, idle := is.(interaction.Idle); !idle {
		w.hooks.OnGesture(ctx, &domain.GestureEvent{
			EventBase: w.base(domain.EventGestureStart),
			Gesture:   is.Name(),
			NodeID:    interaction.NodeOf(is),
		})
	}
}

func gestureOf(e interaction.Editor) interaction.Gesture {
	if e.Gesture == nil {
		return interaction.Idle{}
	}
	return e.Gesture
}

// Dispatch feeds one pointer or touch event to the gesture controller and
// returns the resulting canvas state.
func (w *Workspace) Dispatch(ctx context.Context, ev interaction.Event) domain.CanvasState {
	after, _ := w.apply(ctx, domain.EventRecord, func(e interaction.Editor) (interaction.Editor, bool) {
		next := w.controller.Handle(e, ev)
		recorded := next.History.Len() != e.History.Len() || next.History.Cursor() != e.History.Cursor()
		return next, recorded
	})
	return after.State(w.id)
}

// AddNode places a new node of kind and records the step.
func (w *Workspace) AddNode(ctx context.Context, kind domain.Kind) (domain.Node, error) {
	if _, ok := domain.LookupKind(kind); !ok {
		return domain.Node{}, domain.ErrUnknownKind
	}
	var node domain.Node
	w.apply(ctx, domain.EventRecord, func(e interaction.Editor) (interaction.Editor, bool) {
		e, node = e.AddNode(kind, w.placement, w.newID)
		return e, true
	})
	return node, nil
}

// RemoveNode deletes a node with its connections. It reports false for unknown IDs.
func (w *Workspace) RemoveNode(ctx context.Context, id string) bool {
	_, ok := w.apply(ctx, domain.EventRecord, func(e interaction.Editor) (interaction.Editor, bool) {
		return e.RemoveNode(id)
	})
	return ok
}

// MoveNode places a node at a canvas position and records the step.
func (w *Workspace) MoveNode(ctx context.Context, id string, to domain.Point) bool {
	_, ok := w.apply(ctx, domain.EventRecord, func(e interaction.Editor) (interaction.Editor, bool) {
		return e.MoveNode(id, to)
	})
	return ok
}

// Connect adds an edge. It reports false for duplicates, self-loops and unknown endpoints.
func (w *Workspace) Connect(ctx context.Context, sourceID, targetID string) bool {
	_, ok := w.apply(ctx, domain.EventRecord, func(e interaction.Editor) (interaction.Editor, bool) {
		return e.Connect(sourceID, targetID)
	})
	return ok
}

// Disconnect removes an edge by ID.
func (w *Workspace) Disconnect(ctx context.Context, connectionID string) bool {
	_, ok := w.apply(ctx, domain.EventRecord, func(e interaction.Editor) (interaction.Editor, bool) {
		return e.Disconnect(connectionID)
	})
	return ok
}

// Undo steps back in history.
func (w *Workspace) Undo(ctx context.Context) bool {
	_, ok := w.apply(ctx, domain.EventUndo, func(e interaction.Editor) (interaction.Editor, bool) {
		return e.Undo()
	})
	return ok
}

// Redo steps forward in history.
func (w *Workspace) Redo(ctx context.Context) bool {
	_, ok := w.apply(ctx, domain.EventRedo, func(e interaction.Editor) (interaction.Editor, bool) {
		return e.Redo()
	})
	return ok
}

// AmendOutput writes a node output without an undo step.
// It reports false when the node no longer exists.
func (w *Workspace) AmendOutput(ctx context.Context, id, payload string) bool {
	exists := false
	w.apply(ctx, domain.EventAmend, func(e interaction.Editor) (interaction.Editor, bool) {
		_, exists = e.Graph.Node(id)
		return e.AmendOutput(id, payload)
	})
	return exists
}
