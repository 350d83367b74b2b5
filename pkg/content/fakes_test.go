package content_test

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/aretw0/intheflow/pkg/geometry"
	"github.com/aretw0/intheflow/pkg/graph"
	"github.com/aretw0/intheflow/pkg/interaction"
	"github.com/aretw0/intheflow/pkg/ports"
)

// canvas is a minimal content.Canvas over an editor value.
type canvas struct {
	mu       sync.Mutex
	editor   interaction.Editor
	statuses map[string][]domain.NodeStatus
	next     int
}

func newCanvas() *canvas {
	return &canvas{
		editor:   interaction.NewEditor(geometry.DefaultOffset),
		statuses: make(map[string][]domain.NodeStatus),
	}
}

func (c *canvas) add(kind domain.Kind) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n domain.Node
	c.editor, n = c.editor.AddNode(kind, graph.DefaultPlacement, func() string {
		c.next++
		return string(rune('a' + c.next - 1))
	})
	return n.ID
}

func (c *canvas) connect(s, t string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editor, _ = c.editor.Connect(s, t)
}

func (c *canvas) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editor, _ = c.editor.RemoveNode(id)
}

func (c *canvas) snapshot() interaction.Editor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editor
}

func (c *canvas) last(id string) domain.NodeStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.statuses[id]
	if len(s) == 0 {
		return domain.NodeStatus{NodeID: id, Status: domain.StatusIdle}
	}
	return s[len(s)-1]
}

func (c *canvas) SessionID() string { return "test" }

func (c *canvas) Node(id string) (domain.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editor.Graph.Node(id)
}

func (c *canvas) ResolveInputs(id string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editor.Graph.ResolveInputs(id)
}

func (c *canvas) AmendOutput(_ context.Context, id, payload string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.editor.Graph.Node(id); !ok {
		return false
	}
	c.editor, _ = c.editor.AmendOutput(id, payload)
	return true
}

func (c *canvas) SetStatus(_ context.Context, s domain.NodeStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[s.NodeID] = append(c.statuses[s.NodeID], s)
}

// generator records requests and answers with canned results. When gate is
// set, every call blocks until it is closed.
type generator struct {
	mu     sync.Mutex
	gate   chan struct{}
	err    error
	image  []ports.ImageRequest
	video  []ports.VideoRequest
	text   []ports.TextRequest
	speech []ports.SpeechRequest
}

func (g *generator) wait() {
	if g.gate != nil {
		<-g.gate
	}
}

func (g *generator) GenerateImage(_ context.Context, req ports.ImageRequest) (string, error) {
	g.wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.image = append(g.image, req)
	if g.err != nil {
		return "", g.err
	}
	return "data:image/png;base64,IMG", nil
}

func (g *generator) GenerateVideo(_ context.Context, req ports.VideoRequest, progress ports.ProgressFunc) (string, error) {
	g.wait()
	progress("Rendering")
	g.mu.Lock()
	defer g.mu.Unlock()
	g.video = append(g.video, req)
	if g.err != nil {
		return "", g.err
	}
	return "https://example.com/clip.mp4", nil
}

func (g *generator) GenerateText(_ context.Context, req ports.TextRequest) (ports.TextResult, error) {
	g.wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.text = append(g.text, req)
	if g.err != nil {
		return ports.TextResult{}, g.err
	}
	res := ports.TextResult{Text: "INT. STUDIO - DAY"}
	if req.Mode == ports.TextResearch {
		res.Sources = []domain.Source{{URL: "https://example.com", Title: "Example"}}
	}
	return res, nil
}

func (g *generator) GenerateSpeech(_ context.Context, req ports.SpeechRequest) (string, error) {
	g.wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.speech = append(g.speech, req)
	if g.err != nil {
		return "", g.err
	}
	return "data:audio/mp3;base64,AUD", nil
}

type credentials struct {
	has       bool
	requested int
	err       error
}

func (c *credentials) HasCredential(context.Context) bool { return c.has }

func (c *credentials) RequestCredential(context.Context) error {
	c.requested++
	return c.err
}

var errBackend = errors.New("backend exploded")
