package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/intheflow/pkg/content"
	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/aretw0/intheflow/pkg/interaction"
	"github.com/aretw0/intheflow/pkg/workspace"
)

// ErrBadScript wraps every script parsing failure.
var ErrBadScript = errors.New("invalid replay script")

// Script is a recorded canvas session: a list of operations and raw input
// events applied in order to a fresh canvas.
//
//	session: demo
//	steps:
//	  - op: add
//	    kind: IMAGE_GENERATOR
//	  - op: event
//	    event: {type: pointer_down, pos: {x: 300, y: 110}, target: {kind: node_header, node_id: node-1}}
type Script struct {
	Session string           `yaml:"session"`
	Steps   []map[string]any `yaml:"steps"`
}

// Step is one decoded script entry. Nodes created by the script are named
// node-1, node-2, ... in creation order.
type Step struct {
	Op      string            `mapstructure:"op"`
	Kind    string            `mapstructure:"kind"`
	Node    string            `mapstructure:"node"`
	Source  string            `mapstructure:"source"`
	Target  string            `mapstructure:"target"`
	X       float64           `mapstructure:"x"`
	Y       float64           `mapstructure:"y"`
	Payload string            `mapstructure:"payload"`
	Params  map[string]any    `mapstructure:"params"`
	Event   interaction.Event `mapstructure:"event"`
}

// Operations understood by Replay.
const (
	OpAdd        = "add"
	OpRemove     = "remove"
	OpMove       = "move"
	OpConnect    = "connect"
	OpDisconnect = "disconnect"
	OpUndo       = "undo"
	OpRedo       = "redo"
	OpEvent      = "event"
	OpSetSource  = "set_source"
	OpGenerate   = "generate"
)

// StepResult records the outcome of one step.
type StepResult struct {
	Index   int
	Op      string
	Changed bool
	Err     error
}

// ParseScript reads a yaml script.
func ParseScript(r io.Reader) (Script, error) {
	var s Script
	if err := yaml.NewDecoder(r).Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return s, fmt.Errorf("%w: %v", ErrBadScript, err)
	}
	if s.Session == "" {
		s.Session = "replay"
	}
	return s, nil
}

// LoadScript reads a yaml script from disk.
func LoadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	return ParseScript(bytes.NewReader(data))
}

func decodeStep(raw map[string]any) (Step, error) {
	var s Step
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return s, err
	}
	if err := dec.Decode(raw); err != nil {
		return s, fmt.Errorf("%w: %v", ErrBadScript, err)
	}
	s.Op = strings.ToLower(strings.TrimSpace(s.Op))
	return s, nil
}

// NewReplayWorkspace creates the canvas a script runs against, using the
// configured geometry and hooks and sequential node IDs.
func (a *App) NewReplayWorkspace(sessionID string) *workspace.Workspace {
	n := 0
	return workspace.New(sessionID,
		workspace.WithOffset(a.Config.Canvas.Offset),
		workspace.WithPlacement(a.Config.Canvas.Placement),
		workspace.WithHooks(a.Metrics.Hooks()),
		workspace.WithLogger(a.Logger),
		workspace.WithIDFunc(func() string {
			n++
			return fmt.Sprintf("node-%d", n)
		}),
	)
}

// Replay applies every step of script to ws. Unknown ops or fields, unknown
// kinds, invalid params or sources, and set_source or generate on a missing
// node stop the replay. Structural steps whose preconditions do not hold
// (remove, move, connect or disconnect with unknown IDs, undo at the first
// step) are no-ops reported with Changed false. Generation failures are
// recorded in the node status and the replay continues.
func Replay(ctx context.Context, ws *workspace.Workspace, gen *content.Adapter, script Script) ([]StepResult, error) {
	results := make([]StepResult, 0, len(script.Steps))
	for i, raw := range script.Steps {
		step, err := decodeStep(raw)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		changed, err := apply(ctx, ws, gen, step)
		res := StepResult{Index: i + 1, Op: step.Op, Changed: changed, Err: err}
		results = append(results, res)
		if err != nil && !errors.Is(err, domain.ErrGenerationFailed) {
			return results, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}
	return results, nil
}

func apply(ctx context.Context, ws *workspace.Workspace, gen *content.Adapter, s Step) (bool, error) {
	switch s.Op {
	case OpAdd:
		kind, err := domain.ParseKind(s.Kind)
		if err != nil {
			return false, err
		}
		_, err = ws.AddNode(ctx, kind)
		return err == nil, err
	case OpRemove:
		return ws.RemoveNode(ctx, s.Node), nil
	case OpMove:
		return ws.MoveNode(ctx, s.Node, domain.Point{X: s.X, Y: s.Y}), nil
	case OpConnect:
		return ws.Connect(ctx, s.Source, s.Target), nil
	case OpDisconnect:
		return ws.Disconnect(ctx, domain.ConnectionID(s.Source, s.Target)), nil
	case OpUndo:
		return ws.Undo(ctx), nil
	case OpRedo:
		return ws.Redo(ctx), nil
	case OpEvent:
		before := ws.State()
		after := ws.Dispatch(ctx, s.Event)
		return domain.Diff(&before, &after) != nil, nil
	case OpSetSource:
		err := content.SetSource(ctx, ws, s.Node, s.Payload)
		return err == nil, err
	case OpGenerate:
		if gen == nil {
			return false, errors.New("no generator configured")
		}
		err := gen.Run(ctx, ws, s.Node, s.Params)
		return err == nil, err
	}
	return false, fmt.Errorf("%w: unknown op %q", ErrBadScript, s.Op)
}

// FormatSteps renders step results as a markdown list.
func FormatSteps(results []StepResult) string {
	var sb strings.Builder
	sb.WriteString("## Steps\n\n")
	for _, r := range results {
		mark := "·"
		if r.Changed {
			mark = "✓"
		}
		fmt.Fprintf(&sb, "%d. %s `%s`", r.Index, mark, r.Op)
		if r.Err != nil {
			fmt.Fprintf(&sb, " _%v_", r.Err)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}
