package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/intheflow/internal/logging"
	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/aretw0/intheflow/pkg/graph"
	"github.com/aretw0/intheflow/pkg/ports"
	"github.com/aretw0/intheflow/pkg/workspace"
)

// ErrNoStore is returned by Checkpoint when the manager has no store.
var ErrNoStore = errors.New("no checkpoint store configured")

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates the live workspaces and their checkpoints.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.CanvasStore // Optional

	mu    sync.Mutex
	locks map[string]*lockEntry
	live  map[string]*workspace.Workspace

	locker   ports.DistributedLocker
	lockTTL  time.Duration
	logger   *slog.Logger
	wsOpts   []workspace.Option
	autosave bool
	newID    func() string
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking around checkpoint access.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithWorkspaceOptions are applied to every workspace the manager creates.
func WithWorkspaceOptions(opts ...workspace.Option) Option {
	return func(m *Manager) {
		m.wsOpts = append(m.wsOpts, opts...)
	}
}

// WithAutosave checkpoints a canvas after every history movement.
// It has no effect without a store.
func WithAutosave(enabled bool) Option {
	return func(m *Manager) {
		m.autosave = enabled
	}
}

// WithIDFunc overrides session ID generation.
func WithIDFunc(f func() string) Option {
	return func(m *Manager) {
		m.newID = f
	}
}

// NewManager creates a Manager. store may be nil, in which case canvases
// live only in memory.
func NewManager(store ports.CanvasStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		live:    make(map[string]*workspace.Workspace),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
		newID:   graph.NewID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

func (m *Manager) lookup(sessionID string) (*workspace.Workspace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.live[sessionID]
	return ws, ok
}

func (m *Manager) newWorkspace(sessionID string, extra ...workspace.Option) *workspace.Workspace {
	opts := append(slices.Clone(m.wsOpts), workspace.WithLogger(logging.ForSession(m.logger, sessionID)))
	opts = append(opts, extra...)
	if m.autosave && m.store != nil {
		opts = append(opts, workspace.WithHooks(domain.LifecycleHooks{
			OnHistory: func(ctx context.Context, _ *domain.HistoryEvent) {
				if err := m.Checkpoint(ctx, sessionID); err != nil {
					m.logger.Warn("Autosave failed", "session_id", sessionID, "err", err)
				}
			},
		}))
	}
	return workspace.New(sessionID, opts...)
}

// adopt registers ws unless another workspace won the race for the same ID.
func (m *Manager) adopt(ws *workspace.Workspace) *workspace.Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.live[ws.SessionID()]; ok {
		return existing
	}
	m.live[ws.SessionID()] = ws
	return ws
}

// Create returns the live workspace for sessionID, restoring it from the store
// or starting an empty canvas when there is nothing to restore. An empty
// sessionID gets a fresh random ID.
func (m *Manager) Create(ctx context.Context, sessionID string) (*workspace.Workspace, error) {
	if sessionID == "" {
		sessionID = m.newID()
	}
	ws, err := m.Get(ctx, sessionID)
	if err == nil {
		return ws, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, err
	}

	ws = m.adopt(m.newWorkspace(sessionID))
	m.logger.Info("Canvas created", "session_id", sessionID)
	return ws, nil
}

// Get returns the live workspace for sessionID, restoring it from the store if
// needed. It returns domain.ErrSessionNotFound when neither has it.
func (m *Manager) Get(ctx context.Context, sessionID string) (*workspace.Workspace, error) {
	if ws, ok := m.lookup(sessionID); ok {
		return ws, nil
	}
	if m.store == nil {
		return nil, domain.ErrSessionNotFound
	}

	var cp *domain.Checkpoint
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		cp, err = m.store.Load(ctx, sessionID)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to restore canvas: %w", err)
	}

	ws := m.adopt(m.newWorkspace(sessionID,
		workspace.WithGraph(graph.Graph{Nodes: cp.Nodes, Connections: cp.Connections}),
		workspace.WithPan(cp.Pan),
	))
	m.logger.Info("Canvas restored", "session_id", sessionID, "nodes", len(cp.Nodes))
	return ws, nil
}

// Checkpoint saves the current graph of a live canvas.
func (m *Manager) Checkpoint(ctx context.Context, sessionID string) error {
	if m.store == nil {
		return ErrNoStore
	}
	ws, ok := m.lookup(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, ws.Checkpoint())
	})
}

// Delete closes a live canvas and removes its checkpoint.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	ws, ok := m.live[sessionID]
	delete(m.live, sessionID)
	m.mu.Unlock()
	if ok {
		ws.Close()
	}

	if m.store == nil {
		if !ok {
			return domain.ErrSessionNotFound
		}
		return nil
	}
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List returns the IDs of live and stored canvases, sorted.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.live))
	for id := range m.live {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	if m.store != nil {
		stored, err := m.store.List(ctx)
		if err != nil {
			return nil, err
		}
		ids = append(ids, stored...)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// Store returns the underlying checkpoint store, which may be nil.
func (m *Manager) Store() ports.CanvasStore {
	return m.store
}

func (m *Manager) snapshot() []*workspace.Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*workspace.Workspace, 0, len(m.live))
	for _, ws := range m.live {
		all = append(all, ws)
	}
	return all
}

// CheckpointAll saves every live canvas. It keeps going past failures and
// returns them joined.
func (m *Manager) CheckpointAll(ctx context.Context) error {
	if m.store == nil {
		return ErrNoStore
	}
	var errs []error
	for _, ws := range m.snapshot() {
		if err := m.Checkpoint(ctx, ws.SessionID()); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			errs = append(errs, fmt.Errorf("%s: %w", ws.SessionID(), err))
		}
	}
	return errors.Join(errs...)
}

// Close checkpoints every live canvas (when a store is configured) and ends
// their subscriptions.
func (m *Manager) Close(ctx context.Context) error {
	var err error
	if m.store != nil {
		err = m.CheckpointAll(ctx)
	}
	for _, ws := range m.snapshot() {
		ws.Close()
	}
	return err
}
