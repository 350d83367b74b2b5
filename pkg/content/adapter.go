package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/intheflow/internal/logging"
	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/aretw0/intheflow/pkg/ports"
)

// Canvas is the view of a live canvas the adapter works against.
// Every call must observe the canvas as it is at the time of the call, so a
// result written after a long request lands on the current graph.
type Canvas interface {
	SessionID() string
	Node(id string) (domain.Node, bool)
	ResolveInputs(id string) []string
	// AmendOutput writes a node output without an undo step. It reports false
	// when the node no longer exists.
	AmendOutput(ctx context.Context, id, payload string) bool
	SetStatus(ctx context.Context, status domain.NodeStatus)
}

// Adapter runs generation requests for tool nodes.
type Adapter struct {
	generator   ports.Generator
	credentials ports.Credentials
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	now         func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

// Option configures the Adapter.
type Option func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// WithCredentials sets the credential collaborator consulted before video generation.
func WithCredentials(c ports.Credentials) Option {
	return func(a *Adapter) {
		a.credentials = c
	}
}

// WithHooks registers generation lifecycle hooks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(a *Adapter) {
		a.hooks = a.hooks.Merge(h)
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		a.now = now
	}
}

// NewAdapter creates an adapter backed by gen.
func NewAdapter(gen ports.Generator, opts ...Option) *Adapter {
	a := &Adapter{
		generator: gen,
		logger:    logging.NewNop(),
		now:       time.Now,
		inflight:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Generate validates the request and starts it in the background.
// It returns once the node is marked loading; the outcome is reported through
// the node status and, on success, the node output.
func (a *Adapter) Generate(ctx context.Context, c Canvas, nodeID string, params map[string]any) (domain.NodeStatus, error) {
	node, req, loading, err := a.begin(ctx, c, nodeID, params)
	if err != nil {
		return domain.NodeStatus{}, err
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.run(context.WithoutCancel(ctx), c, node, req)
	}()
	return loading, nil
}

// Run is the synchronous form of Generate. The returned error is the
// generation failure, if any; it has already been recorded in the node status.
func (a *Adapter) Run(ctx context.Context, c Canvas, nodeID string, params map[string]any) error {
	node, req, _, err := a.begin(ctx, c, nodeID, params)
	if err != nil {
		return err
	}
	return a.run(ctx, c, node, req)
}

// Wait blocks until every background generation has finished.
func (a *Adapter) Wait() {
	a.wg.Wait()
}

func flightKey(c Canvas, nodeID string) string {
	return c.SessionID() + "/" + nodeID
}

// begin validates the request, claims the node and records the loading status
// it returns.
func (a *Adapter) begin(ctx context.Context, c Canvas, nodeID string, params map[string]any) (domain.Node, request, domain.NodeStatus, error) {
	node, ok := c.Node(nodeID)
	if !ok {
		return node, request{}, domain.NodeStatus{}, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
	}
	info, ok := domain.LookupKind(node.Kind)
	if !ok {
		return node, request{}, domain.NodeStatus{}, fmt.Errorf("%w: %s", domain.ErrUnknownKind, node.Kind)
	}
	if !info.Generative() {
		return node, request{}, domain.NodeStatus{}, fmt.Errorf("%w: %s", domain.ErrNotGenerative, node.Kind)
	}

	var inputs []string
	if info.Arity != domain.ArityNone {
		inputs = c.ResolveInputs(nodeID)
	}
	req, err := buildRequest(node.Kind, params, inputs)
	if err != nil {
		return node, req, domain.NodeStatus{}, err
	}

	key := flightKey(c, nodeID)
	a.mu.Lock()
	if _, busy := a.inflight[key]; busy {
		a.mu.Unlock()
		return node, req, domain.NodeStatus{}, fmt.Errorf("%w: %s", domain.ErrGenerationInFlight, nodeID)
	}
	a.inflight[key] = struct{}{}
	a.mu.Unlock()

	loading := a.setStatus(ctx, c, node.ID, domain.StatusLoading, "", "", nil)
	if a.hooks.OnGeneration != nil {
		a.hooks.OnGeneration(ctx, &domain.GenerationEvent{
			EventBase: a.base(c, domain.EventGenerationStart),
			NodeID:    node.ID,
			Kind:      node.Kind,
		})
	}
	return node, req, loading, nil
}

func (a *Adapter) base(c Canvas, t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: a.now(), Type: t, SessionID: c.SessionID()}
}

func (a *Adapter) setStatus(ctx context.Context, c Canvas, nodeID string, s domain.ExecutionStatus, msg, errMsg string, sources []domain.Source) domain.NodeStatus {
	st := domain.NodeStatus{
		NodeID:    nodeID,
		Status:    s,
		Message:   msg,
		Error:     errMsg,
		Sources:   sources,
		UpdatedAt: a.now(),
	}
	c.SetStatus(ctx, st)
	return st
}

func (a *Adapter) run(ctx context.Context, c Canvas, node domain.Node, req request) error {
	start := a.now()
	defer func() {
		a.mu.Lock()
		delete(a.inflight, flightKey(c, node.ID))
		a.mu.Unlock()
	}()

	progress := func(msg string) {
		if _, ok := c.Node(node.ID); ok {
			a.setStatus(ctx, c, node.ID, domain.StatusLoading, msg, "", nil)
		}
	}

	payload, sources, err := a.invoke(ctx, req, progress)

	ev := &domain.GenerationEvent{
		EventBase: a.base(c, domain.EventGenerationEnd),
		NodeID:    node.ID,
		Kind:      node.Kind,
		Duration:  a.now().Sub(start),
		IsError:   err != nil,
	}
	defer func() {
		if a.hooks.OnGeneration != nil {
			a.hooks.OnGeneration(ctx, ev)
		}
	}()

	if err != nil {
		a.logger.Warn("Generation failed",
			"session_id", c.SessionID(),
			"node_id", node.ID,
			"kind", node.Kind,
			"error", err,
		)
		if _, ok := c.Node(node.ID); ok {
			a.setStatus(ctx, c, node.ID, domain.StatusError, "", failureMessage(node.Kind, err), nil)
		} else {
			ev.Orphaned = true
		}
		return fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	if !c.AmendOutput(ctx, node.ID, payload) {
		ev.Orphaned = true
		a.logger.Debug("Discarding result for removed node", "session_id", c.SessionID(), "node_id", node.ID)
		return nil
	}
	a.setStatus(ctx, c, node.ID, domain.StatusSuccess, "", "", sources)
	a.logger.Info("Generation completed",
		"session_id", c.SessionID(),
		"node_id", node.ID,
		"kind", node.Kind,
		"duration", ev.Duration,
	)
	return nil
}

func (a *Adapter) invoke(ctx context.Context, req request, progress ports.ProgressFunc) (string, []domain.Source, error) {
	switch req.kind {
	case domain.KindImageGenerator:
		out, err := a.generator.GenerateImage(ctx, req.image)
		return out, nil, nonEmpty(out, err)

	case domain.KindVideoGenerator:
		a.ensureCredential(ctx, progress)
		progress("Starting generation (this may take a minute)...")
		out, err := a.generator.GenerateVideo(ctx, req.video, progress)
		return out, nil, nonEmpty(out, err)

	case domain.KindVoiceGenerator:
		out, err := a.generator.GenerateSpeech(ctx, req.speech)
		return out, nil, nonEmpty(out, err)

	default:
		res, err := a.generator.GenerateText(ctx, req.text)
		if err != nil {
			return "", nil, err
		}
		text := res.Text
		if text == "" {
			text = "No response text."
		}
		return text, res.Sources, nil
	}
}

// ensureCredential asks for a credential when none is configured. A failed
// request is logged and generation proceeds; the generator reports the failure.
func (a *Adapter) ensureCredential(ctx context.Context, progress ports.ProgressFunc) {
	if a.credentials == nil {
		return
	}
	progress("Checking API Key permissions...")
	if a.credentials.HasCredential(ctx) {
		return
	}
	progress("Waiting for API Key selection...")
	if err := a.credentials.RequestCredential(ctx); err != nil {
		a.logger.Warn("Credential request failed", "error", err)
	}
}

var errEmptyResult = errors.New("generator returned no content")

func nonEmpty(out string, err error) error {
	if err == nil && out == "" {
		return errEmptyResult
	}
	return err
}

func failureMessage(kind domain.Kind, err error) string {
	switch kind {
	case domain.KindImageGenerator:
		return "Failed to generate image."
	case domain.KindVideoGenerator:
		if errors.Is(err, ports.ErrCredentialRejected) {
			return "API Key issue. Please try again to select a valid key."
		}
		return "Failed to generate video. Ensure you are using a paid Project ID."
	case domain.KindVoiceGenerator:
		return "Failed to generate speech."
	default:
		return "Failed to generate text."
	}
}
