// Package workspace hosts one live canvas.
//
// A Workspace owns an interaction.Editor value and serialises every operation
// on it behind a mutex, which plays the role of a UI event queue. After each
// operation it reports history and gesture lifecycle events and broadcasts
// the resulting CanvasDiff to subscribers.
package workspace

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/intheflow/internal/logging"
	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/aretw0/intheflow/pkg/geometry"
	"github.com/aretw0/intheflow/pkg/graph"
	"github.com/aretw0/intheflow/pkg/interaction"
)

// subscriberBuffer is the number of diffs a slow subscriber may lag behind
// before updates to it are dropped.
const subscriberBuffer = 64

// Workspace is a live canvas. Safe for concurrent use.
type Workspace struct {
	id         string
	controller *interaction.Controller
	placement  graph.Placement
	newID      graph.IDFunc
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	editor   interaction.Editor
	statuses map[string]domain.NodeStatus
	subs     map[chan *domain.CanvasDiff]struct{}
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the workspace logger. It is also handed to the gesture controller.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) {
		w.logger = logger
	}
}

// WithHooks registers lifecycle hooks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(w *Workspace) {
		w.hooks = w.hooks.Merge(h)
	}
}

// WithPlacement overrides where new nodes are placed.
func WithPlacement(p graph.Placement) Option {
	return func(w *Workspace) {
		w.placement = p
	}
}

// WithIDFunc overrides node ID generation.
func WithIDFunc(f graph.IDFunc) Option {
	return func(w *Workspace) {
		w.newID = f
	}
}

// WithOffset sets the external offset of the canvas (e.g. sidebar width).
func WithOffset(offset domain.Point) Option {
	return func(w *Workspace) {
		w.editor.Viewport = geometry.NewViewport(offset)
	}
}

// WithGraph seeds the canvas, e.g. from a checkpoint. History starts with a
// single step holding g.
func WithGraph(g graph.Graph) Option {
	return func(w *Workspace) {
		v := w.editor.Viewport
		w.editor = interaction.Restore(g, v.Offset)
		w.editor.Viewport = v
	}
}

// WithPan sets the initial viewport pan.
func WithPan(pan domain.Point) Option {
	return func(w *Workspace) {
		w.editor.Viewport = w.editor.Viewport.WithPan(pan)
	}
}

// New creates an empty workspace.
func New(id string, opts ...Option) *Workspace {
	w := &Workspace{
		id:        id,
		placement: graph.DefaultPlacement,
		newID:     graph.NewID,
		logger:    logging.NewNop(),
		now:       time.Now,
		editor:    interaction.NewEditor(geometry.DefaultOffset),
		statuses:  make(map[string]domain.NodeStatus),
		subs:      make(map[chan *domain.CanvasDiff]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.controller = interaction.NewController(interaction.WithLogger(w.logger))
	return w
}

// SessionID returns the workspace identifier.
func (w *Workspace) SessionID() string { return w.id }

// Editor returns the current editor value.
func (w *Workspace) Editor() interaction.Editor {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.editor
}

// State returns a read-only view of the canvas.
func (w *Workspace) State() domain.CanvasState {
	return w.Editor().State(w.id)
}

// Graph returns the live graph.
func (w *Workspace) Graph() graph.Graph {
	return w.Editor().Graph
}

// Checkpoint captures the current graph and pan for persistence.
func (w *Workspace) Checkpoint() *domain.Checkpoint {
	e := w.Editor()
	return &domain.Checkpoint{
		SessionID:   w.id,
		Nodes:       slices.Clone(e.Graph.Nodes),
		Connections: slices.Clone(e.Graph.Connections),
		Pan:         e.Viewport.Pan,
		SavedAt:     w.now().UTC(),
	}
}

// Node looks up a node in the live graph.
func (w *Workspace) Node(id string) (domain.Node, bool) {
	return w.Graph().Node(id)
}

// ResolveInputs returns the outputs feeding a node in connection order.
func (w *Workspace) ResolveInputs(id string) []string {
	return w.Graph().ResolveInputs(id)
}

// Status returns the generation status of a node. Nodes that never ran, or
// are not on the canvas right now, are idle.
func (w *Workspace) Status(id string) domain.NodeStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.statuses[id]; ok {
		if _, live := w.editor.Graph.Node(id); live {
			return s
		}
	}
	return domain.NodeStatus{NodeID: id, Status: domain.StatusIdle}
}

// Statuses returns the status of every node on the canvas that has one.
// Statuses of removed nodes are kept while undo or redo can restore them.
func (w *Workspace) Statuses() map[string]domain.NodeStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]domain.NodeStatus, len(w.statuses))
	for id, s := range w.statuses {
		if _, live := w.editor.Graph.Node(id); live {
			out[id] = s
		}
	}
	return out
}

// SetStatus records a node status and broadcasts it. Statuses of nodes that
// no longer exist are discarded.
func (w *Workspace) SetStatus(ctx context.Context, s domain.NodeStatus) {
	w.mu.Lock()
	if _, ok := w.editor.Graph.Node(s.NodeID); !ok {
		w.mu.Unlock()
		return
	}
	w.statuses[s.NodeID] = s
	w.broadcastLocked(&domain.CanvasDiff{SessionID: w.id, Statuses: []domain.NodeStatus{s}})
	w.mu.Unlock()
}

// Subscribe returns a channel of diffs and a function to stop receiving them.
// Diffs are dropped for subscribers that fall too far behind.
func (w *Workspace) Subscribe() (<-chan *domain.CanvasDiff, func()) {
	ch := make(chan *domain.CanvasDiff, subscriberBuffer)
	w.mu.Lock()
	w.subs[ch] = struct{}{}
	w.mu.Unlock()

	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if _, ok := w.subs[ch]; ok {
			delete(w.subs, ch)
			close(ch)
		}
	}
}

// Close ends every subscription.
func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for ch := range w.subs {
		delete(w.subs, ch)
		close(ch)
	}
}

func (w *Workspace) broadcastLocked(d *domain.CanvasDiff) {
	if d == nil {
		return
	}
	for ch := range w.subs {
		select {
		case ch <- d:
		default:
			w.logger.Debug("Dropping diff for slow subscriber", "session_id", w.id)
		}
	}
}
