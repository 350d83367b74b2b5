// Package http exposes live canvases over a JSON REST API with server-sent
// diff streams. The routes are described by the embedded openapi.yaml.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/aretw0/intheflow"
	mermaid "github.com/aretw0/intheflow/internal/presentation/graph"
	"github.com/aretw0/intheflow/pkg/content"
	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/aretw0/intheflow/pkg/interaction"
	"github.com/aretw0/intheflow/pkg/session"
	"github.com/aretw0/intheflow/pkg/workspace"
)

// maxBodyBytes bounds request bodies; source uploads arrive as data URIs.
const maxBodyBytes = 32 << 20

// Server routes HTTP requests to the session manager and the content adapter.
type Server struct {
	Sessions *session.Manager
	// Content may be nil, in which case generation answers 501.
	Content *content.Adapter
	Streams *StreamManager

	logger      *slog.Logger
	corsOrigins []string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCORSOrigins restricts the allowed origins. The default allows any.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// NewServer creates the server without routing.
func NewServer(sessions *session.Manager, gen *content.Adapter, opts ...Option) *Server {
	s := &Server{
		Sessions: sessions,
		Content:  gen,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	return s
}

// NewHandler creates the HTTP handler for a session manager.
func NewHandler(sessions *session.Manager, gen *content.Adapter, opts ...Option) http.Handler {
	return NewServer(sessions, gen, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
		MaxAge:         300,
	}))

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		spec, err := rawSpec()
		if err != nil {
			http.Error(w, "Failed to load spec", http.StatusInternalServerError)
			s.logger.Error("Failed to load OpenAPI spec", "error", err)
			return
		}
		_, _ = w.Write(spec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/kinds", s.ListKinds)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.CreateSession)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/nodes", s.AddNode)
			r.Delete("/nodes/{nodeID}", s.RemoveNode)
			r.Post("/nodes/{nodeID}/generate", s.Generate)
			r.Put("/nodes/{nodeID}/source", s.SetSource)
			r.Get("/nodes/{nodeID}/status", s.GetStatus)
			r.Get("/nodes/{nodeID}/playlist", s.GetPlaylist)
			r.Post("/connections", s.Connect)
			r.Delete("/connections/{connID}", s.Disconnect)
			r.Post("/events", s.DispatchEvent)
			r.Get("/events/stream", s.StreamEvents)
			r.Post("/undo", s.Undo)
			r.Post("/redo", s.Redo)
			r.Post("/checkpoint", s.Checkpoint)
			r.Get("/graph.mmd", s.GetMermaid)
		})
	})
	return r
}

func (s *Server) allowedOrigins() []string {
	if len(s.corsOrigins) == 0 {
		return []string{"*"}
	}
	return s.corsOrigins
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>intheflow API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "intheflow-http",
		"version":     strings.TrimSpace(intheflow.Version),
		"api_version": apiVersion,
	})
}

// ListKinds handles the GET /kinds request.
func (s *Server) ListKinds(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, domain.Registry)
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// CreateSession handles the POST /sessions request. The body is optional.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"session_id"`
	}
	if !s.decodeOptional(w, r, &body) {
		return
	}
	ws, err := s.Sessions.Create(r.Context(), body.SessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ws.State())
}

// GetSession handles the GET /sessions/{id} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, ws.State())
}

// DeleteSession handles the DELETE /sessions/{id} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddNode handles the POST /sessions/{id}/nodes request.
func (s *Server) AddNode(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	var body struct {
		Kind string `json:"kind"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	kind, err := domain.ParseKind(body.Kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	node, err := ws.AddNode(r.Context(), kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, node)
}

// RemoveNode handles the DELETE /sessions/{id}/nodes/{nodeID} request.
func (s *Server) RemoveNode(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	nodeID := chi.URLParam(r, "nodeID")
	if !ws.RemoveNode(r.Context(), nodeID) {
		s.writeError(w, r, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Generate handles the POST /sessions/{id}/nodes/{nodeID}/generate request.
// The body carries the kind specific parameters (prompt, aspectRatio, voice...).
func (s *Server) Generate(w http.ResponseWriter, r *http.Request) {
	if s.Content == nil {
		s.writeJSON(w, http.StatusNotImplemented, errorBody{Error: "no content generator configured"})
		return
	}
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	params := map[string]any{}
	if !s.decodeOptional(w, r, &params) {
		return
	}
	nodeID := chi.URLParam(r, "nodeID")
	loading, err := s.Content.Generate(r.Context(), ws, nodeID, params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, loading)
}

// SetSource handles the PUT /sessions/{id}/nodes/{nodeID}/source request.
func (s *Server) SetSource(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	var body struct {
		Payload string `json:"payload"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if err := content.SetSource(r.Context(), ws, chi.URLParam(r, "nodeID"), body.Payload); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStatus handles the GET /sessions/{id}/nodes/{nodeID}/status request.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	nodeID := chi.URLParam(r, "nodeID")
	if _, ok := ws.Node(nodeID); !ok {
		s.writeError(w, r, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID))
		return
	}
	s.writeJSON(w, http.StatusOK, ws.Status(nodeID))
}

// GetPlaylist handles the GET /sessions/{id}/nodes/{nodeID}/playlist request.
func (s *Server) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	clips, err := content.Playlist(ws, chi.URLParam(r, "nodeID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if clips == nil {
		clips = []string{}
	}
	s.writeJSON(w, http.StatusOK, clips)
}

// Connect handles the POST /sessions/{id}/connections request. A duplicate or
// self connection is not an error: it answers 200 with the unchanged state.
func (s *Server) Connect(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	var body struct {
		SourceID string `json:"source_id"`
		TargetID string `json:"target_id"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	for _, id := range []string{body.SourceID, body.TargetID} {
		if _, ok := ws.Node(id); !ok {
			s.writeError(w, r, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id))
			return
		}
	}
	status := http.StatusOK
	if ws.Connect(r.Context(), body.SourceID, body.TargetID) {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, ws.State())
}

// Disconnect handles the DELETE /sessions/{id}/connections/{connID} request.
func (s *Server) Disconnect(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	connID := chi.URLParam(r, "connID")
	if !ws.Disconnect(r.Context(), connID) {
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "connection not found: " + connID})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DispatchEvent handles the POST /sessions/{id}/events request.
func (s *Server) DispatchEvent(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	var ev interaction.Event
	if !s.decode(w, r, &ev) {
		return
	}
	s.writeJSON(w, http.StatusOK, ws.Dispatch(r.Context(), ev))
}

// Undo handles the POST /sessions/{id}/undo request.
func (s *Server) Undo(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	ws.Undo(r.Context())
	s.writeJSON(w, http.StatusOK, ws.State())
}

// Redo handles the POST /sessions/{id}/redo request.
func (s *Server) Redo(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	ws.Redo(r.Context())
	s.writeJSON(w, http.StatusOK, ws.State())
}

// Checkpoint handles the POST /sessions/{id}/checkpoint request.
func (s *Server) Checkpoint(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Checkpoint(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMermaid handles the GET /sessions/{id}/graph.mmd request.
func (s *Server) GetMermaid(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	state := ws.State()
	overlay := mermaid.NewOverlay(ws.Statuses(), interaction.NodeOf(ws.Editor().Gesture))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, mermaid.GenerateMermaid(state.Nodes, state.Connections, overlay))
}

// StreamEvents handles the GET /sessions/{id}/events/stream request (SSE).
func (s *Server) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("StreamEvents: Streaming not supported")
		return
	}
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sessionID := ws.SessionID()
	s.logger.Info("SSE: Subscribing to Session Updates", "session_id", sessionID)
	ch, cancel := s.Streams.Subscribe(ws)
	defer cancel()

	// The first message carries the full state so clients can render at once.
	initial, _ := json.Marshal(domain.Diff(nil, ptr(ws.State())))
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	fmt.Fprintf(w, "event: state\ndata: %s\n\n", initial)
	flusher.Flush()

	watch := parseWatch(r.URL.Query().Get("watch"))
	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				fmt.Fprintf(w, "event: closed\ndata: %s\n\n", sessionID)
				flusher.Flush()
				return
			}
			if !watch.accepts(msg.diff) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg.data)
			flusher.Flush()
		}
	}
}

// -- Helpers --

type errorBody struct {
	Error string `json:"error"`
}

func ptr[T any](v T) *T {
	return &v
}

func (s *Server) workspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return ws, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "error", err)
		return false
	}
	return true
}

// decodeOptional is decode for endpoints where an empty body is valid.
func (s *Server) decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
	s.logger.Warn("Invalid request body", "path", r.URL.Path, "error", err)
	return false
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownKind),
		errors.Is(err, domain.ErrInvalidParams),
		errors.Is(err, domain.ErrNotGenerative),
		errors.Is(err, domain.ErrNoOutput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrGenerationInFlight):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoStore):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, code, errorBody{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "error", err)
	}
}
