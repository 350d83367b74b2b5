package http

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/aretw0/intheflow/pkg/workspace"
)

// streamBuffer is the per-client queue length before diffs are dropped.
const streamBuffer = 16

// message is one diff ready to be written to SSE clients.
type message struct {
	diff *domain.CanvasDiff
	data string
}

// StreamManager fans workspace diffs out to SSE connections. Each session with
// at least one client has a single workspace subscription; the JSON encoding
// is shared by all of its clients.
type StreamManager struct {
	mu      sync.Mutex
	streams map[string]*stream
	logger  *slog.Logger
}

type stream struct {
	subscribers map[chan message]struct{}
	stop        func()
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		streams: make(map[string]*stream),
		logger:  logger,
	}
}

// Subscribe registers a client for the diffs of ws. The channel is closed when
// the returned cancel func runs or the workspace is closed.
func (sm *StreamManager) Subscribe(ws *workspace.Workspace) (<-chan message, func()) {
	sessionID := ws.SessionID()

	sm.mu.Lock()
	defer sm.mu.Unlock()

	st, ok := sm.streams[sessionID]
	if !ok {
		diffs, stop := ws.Subscribe()
		st = &stream{subscribers: make(map[chan message]struct{}), stop: stop}
		sm.streams[sessionID] = st
		go sm.pump(sessionID, st, diffs)
	}

	ch := make(chan message, streamBuffer)
	st.subscribers[ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := st.subscribers[ch]; !ok {
			return
		}
		delete(st.subscribers, ch)
		close(ch)
		if len(st.subscribers) == 0 && sm.streams[sessionID] == st {
			delete(sm.streams, sessionID)
			st.stop()
		}
	}
}

func (sm *StreamManager) pump(sessionID string, st *stream, diffs <-chan *domain.CanvasDiff) {
	for d := range diffs {
		bytes, err := json.Marshal(d)
		if err != nil {
			sm.logger.Error("StreamManager: diff encode failed", "session_id", sessionID, "error", err)
			continue
		}
		sm.broadcast(sessionID, st, message{diff: d, data: string(bytes)})
	}

	// Workspace closed or last client left: release whoever is still attached.
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for ch := range st.subscribers {
		delete(st.subscribers, ch)
		close(ch)
	}
	if sm.streams[sessionID] == st {
		delete(sm.streams, sessionID)
	}
}

func (sm *StreamManager) broadcast(sessionID string, st *stream, msg message) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for ch := range st.subscribers {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// Clients returns the number of SSE clients attached to a session.
func (sm *StreamManager) Clients(sessionID string) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if st, ok := sm.streams[sessionID]; ok {
		return len(st.subscribers)
	}
	return 0
}

// watchFilter reports whether a diff touches any of the watched sections.
// An empty watch list accepts everything.
type watchFilter []string

func parseWatch(raw string) watchFilter {
	if raw == "" {
		return nil
	}
	var w watchFilter
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			w = append(w, f)
		}
	}
	return w
}

func (w watchFilter) accepts(d *domain.CanvasDiff) bool {
	if len(w) == 0 {
		return true
	}
	for _, field := range w {
		switch field {
		case "nodes":
			if len(d.AddedNodes)+len(d.ChangedNodes)+len(d.RemovedNodes) > 0 {
				return true
			}
		case "connections":
			if len(d.AddedConnections)+len(d.RemovedConnections) > 0 {
				return true
			}
		case "history":
			if d.History != nil {
				return true
			}
		case "gesture":
			if d.Gesture != nil || d.DragLine != nil {
				return true
			}
		case "pan":
			if d.Pan != nil {
				return true
			}
		case "status":
			if len(d.Statuses) > 0 {
				return true
			}
		}
	}
	return false
}
