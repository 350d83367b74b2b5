// Package mcp exposes live canvases as Model Context Protocol tools, so an
// agent can lay out and run a canvas the same way a user does.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/intheflow"
	"github.com/aretw0/intheflow/pkg/content"
	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/aretw0/intheflow/pkg/session"
	"github.com/aretw0/intheflow/pkg/workspace"
)

const kindsURI = "intheflow://kinds"

// CanvasResponse is the result of every canvas tool.
type CanvasResponse struct {
	State   domain.CanvasState `json:"state" jsonschema_description:"The canvas after the operation"`
	Node    *domain.Node       `json:"node,omitempty" jsonschema_description:"The node the operation created or touched"`
	Changed bool               `json:"changed" jsonschema_description:"Whether the operation changed the canvas"`
}

// SessionArgs identifies a canvas.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// AddNodeArgs are the arguments of add_node.
type AddNodeArgs struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
}

// NodeArgs are the arguments of remove_node.
type NodeArgs struct {
	SessionID string `json:"session_id"`
	NodeID    string `json:"node_id"`
}

// MoveNodeArgs are the arguments of move_node.
type MoveNodeArgs struct {
	SessionID string  `json:"session_id"`
	NodeID    string  `json:"node_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// ConnectArgs are the arguments of connect.
type ConnectArgs struct {
	SessionID string `json:"session_id"`
	SourceID  string `json:"source_id"`
	TargetID  string `json:"target_id"`
}

// SetSourceArgs are the arguments of set_source.
type SetSourceArgs struct {
	SessionID string `json:"session_id"`
	NodeID    string `json:"node_id"`
	Payload   string `json:"payload"`
}

// GenerateArgs are the arguments of generate.
type GenerateArgs struct {
	SessionID string         `json:"session_id"`
	NodeID    string         `json:"node_id"`
	Params    map[string]any `json:"params"`
}

// Server exposes a session manager as an MCP server.
type Server struct {
	sessions  *session.Manager
	content   *content.Adapter
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance. gen may be nil, in which case
// the generate tool is not offered.
func NewServer(sessions *session.Manager, gen *content.Adapter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		sessions:  sessions,
		content:   gen,
		logger:    logger,
		mcpServer: server.NewMCPServer("intheflow-mcp", strings.TrimSpace(intheflow.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves on the given port using SSE until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionParam() mcp.ToolOption {
	return mcp.WithString("session_id", mcp.Required(), mcp.Description("Canvas session ID"))
}

func (s *Server) registerTools() {
	kinds := make([]string, 0, len(domain.Registry))
	for _, k := range domain.Registry {
		kinds = append(kinds, string(k.Kind))
	}

	s.mcpServer.AddTool(mcp.NewTool("add_node",
		mcp.WithDescription("Add a tool node to a canvas at the next cascade position. Creates the canvas if needed."),
		sessionParam(),
		mcp.WithString("kind", mcp.Required(), mcp.Enum(kinds...), mcp.Description("Tool kind")),
		mcp.WithOutputSchema[CanvasResponse](),
	), mcp.NewStructuredToolHandler(s.handleAddNode))

	s.mcpServer.AddTool(mcp.NewTool("remove_node",
		mcp.WithDescription("Remove a node and every connection touching it."),
		sessionParam(),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID")),
		mcp.WithOutputSchema[CanvasResponse](),
	), mcp.NewStructuredToolHandler(s.handleRemoveNode))

	s.mcpServer.AddTool(mcp.NewTool("move_node",
		mcp.WithDescription("Move a node's top-left corner to canvas coordinates (x, y). Recorded as one undo step."),
		sessionParam(),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Canvas X")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Canvas Y")),
		mcp.WithOutputSchema[CanvasResponse](),
	), mcp.NewStructuredToolHandler(s.handleMoveNode))

	s.mcpServer.AddTool(mcp.NewTool("connect",
		mcp.WithDescription("Connect a source node's output to a target node's input. Duplicates and self loops are ignored."),
		sessionParam(),
		mcp.WithString("source_id", mcp.Required(), mcp.Description("Upstream node ID")),
		mcp.WithString("target_id", mcp.Required(), mcp.Description("Downstream node ID")),
		mcp.WithOutputSchema[CanvasResponse](),
	), mcp.NewStructuredToolHandler(s.handleConnect))

	s.mcpServer.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last structural change or drag."),
		sessionParam(),
		mcp.WithOutputSchema[CanvasResponse](),
	), mcp.NewStructuredToolHandler(s.handleUndo))

	s.mcpServer.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change."),
		sessionParam(),
		mcp.WithOutputSchema[CanvasResponse](),
	), mcp.NewStructuredToolHandler(s.handleRedo))

	s.mcpServer.AddTool(mcp.NewTool("get_canvas",
		mcp.WithDescription("Get the nodes, connections, pan and history position of a canvas."),
		sessionParam(),
		mcp.WithOutputSchema[CanvasResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetCanvas))

	s.mcpServer.AddTool(mcp.NewTool("set_source",
		mcp.WithDescription("Set the uploaded reference (URL or data URI) of an image or video source node. An empty payload clears it."),
		sessionParam(),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Source node ID")),
		mcp.WithString("payload", mcp.Description("URL or data URI")),
		mcp.WithOutputSchema[CanvasResponse](),
	), mcp.NewStructuredToolHandler(s.handleSetSource))

	if s.content != nil {
		s.mcpServer.AddTool(mcp.NewTool("generate",
			mcp.WithDescription("Run a generator node and wait for the result. Params depend on the kind: prompt, aspect_ratio, text, voice."),
			sessionParam(),
			mcp.WithString("node_id", mcp.Required(), mcp.Description("Generator node ID")),
			mcp.WithObject("params", mcp.Description("Kind specific parameters")),
			mcp.WithOutputSchema[CanvasResponse](),
		), mcp.NewStructuredToolHandler(s.handleGenerate))
	}
}

func (s *Server) workspace(ctx context.Context, sessionID string) (*workspace.Workspace, error) {
	if sessionID == "" {
		return nil, errors.New("session_id is required")
	}
	return s.sessions.Get(ctx, sessionID)
}

func respond(ws *workspace.Workspace, nodeID string, changed bool) CanvasResponse {
	resp := CanvasResponse{State: ws.State(), Changed: changed}
	if n, ok := ws.Node(nodeID); ok {
		resp.Node = &n
	}
	return resp
}

func (s *Server) handleAddNode(ctx context.Context, _ mcp.CallToolRequest, args AddNodeArgs) (CanvasResponse, error) {
	if args.SessionID == "" {
		return CanvasResponse{}, errors.New("session_id is required")
	}
	kind, err := domain.ParseKind(args.Kind)
	if err != nil {
		return CanvasResponse{}, err
	}
	ws, err := s.sessions.Create(ctx, args.SessionID)
	if err != nil {
		return CanvasResponse{}, err
	}
	node, err := ws.AddNode(ctx, kind)
	if err != nil {
		return CanvasResponse{}, err
	}
	return respond(ws, node.ID, true), nil
}

func (s *Server) handleRemoveNode(ctx context.Context, _ mcp.CallToolRequest, args NodeArgs) (CanvasResponse, error) {
	ws, err := s.workspace(ctx, args.SessionID)
	if err != nil {
		return CanvasResponse{}, err
	}
	if !ws.RemoveNode(ctx, args.NodeID) {
		return CanvasResponse{}, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, args.NodeID)
	}
	return respond(ws, "", true), nil
}

func (s *Server) handleMoveNode(ctx context.Context, _ mcp.CallToolRequest, args MoveNodeArgs) (CanvasResponse, error) {
	ws, err := s.workspace(ctx, args.SessionID)
	if err != nil {
		return CanvasResponse{}, err
	}
	if _, ok := ws.Node(args.NodeID); !ok {
		return CanvasResponse{}, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, args.NodeID)
	}
	changed := ws.MoveNode(ctx, args.NodeID, domain.Point{X: args.X, Y: args.Y})
	return respond(ws, args.NodeID, changed), nil
}

func (s *Server) handleConnect(ctx context.Context, _ mcp.CallToolRequest, args ConnectArgs) (CanvasResponse, error) {
	ws, err := s.workspace(ctx, args.SessionID)
	if err != nil {
		return CanvasResponse{}, err
	}
	for _, id := range []string{args.SourceID, args.TargetID} {
		if _, ok := ws.Node(id); !ok {
			return CanvasResponse{}, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
		}
	}
	changed := ws.Connect(ctx, args.SourceID, args.TargetID)
	return respond(ws, "", changed), nil
}

func (s *Server) handleUndo(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (CanvasResponse, error) {
	ws, err := s.workspace(ctx, args.SessionID)
	if err != nil {
		return CanvasResponse{}, err
	}
	return respond(ws, "", ws.Undo(ctx)), nil
}

func (s *Server) handleRedo(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (CanvasResponse, error) {
	ws, err := s.workspace(ctx, args.SessionID)
	if err != nil {
		return CanvasResponse{}, err
	}
	return respond(ws, "", ws.Redo(ctx)), nil
}

func (s *Server) handleGetCanvas(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (CanvasResponse, error) {
	ws, err := s.workspace(ctx, args.SessionID)
	if err != nil {
		return CanvasResponse{}, err
	}
	return respond(ws, "", false), nil
}

func (s *Server) handleSetSource(ctx context.Context, _ mcp.CallToolRequest, args SetSourceArgs) (CanvasResponse, error) {
	ws, err := s.workspace(ctx, args.SessionID)
	if err != nil {
		return CanvasResponse{}, err
	}
	if err := content.SetSource(ctx, ws, args.NodeID, args.Payload); err != nil {
		return CanvasResponse{}, err
	}
	return respond(ws, args.NodeID, true), nil
}

func (s *Server) handleGenerate(ctx context.Context, _ mcp.CallToolRequest, args GenerateArgs) (CanvasResponse, error) {
	ws, err := s.workspace(ctx, args.SessionID)
	if err != nil {
		return CanvasResponse{}, err
	}
	if err := s.content.Run(ctx, ws, args.NodeID, args.Params); err != nil {
		s.logger.Warn("MCP generate failed", "session_id", args.SessionID, "node_id", args.NodeID, "error", err)
		return CanvasResponse{}, err
	}
	return respond(ws, args.NodeID, true), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(kindsURI, "Tool Kinds",
		mcp.WithResourceDescription("Every tool kind with its display metadata and input arity."),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(domain.Registry)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      kindsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
