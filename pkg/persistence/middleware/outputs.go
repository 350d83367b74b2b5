package middleware

import (
	"context"
	"regexp"
	"slices"

	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/aretw0/intheflow/pkg/ports"
)

// DefaultVolatileOutputs matches payloads that cannot outlive the client that
// produced them, such as browser object URLs.
var DefaultVolatileOutputs = []string{`^blob:`}

type outputFilterMiddleware struct {
	next     ports.CanvasStore
	patterns []*regexp.Regexp
}

// NewOutputFilterMiddleware creates a middleware that clears node outputs
// matching any of the patterns before a checkpoint is saved. Loads are passed
// through unchanged.
func NewOutputFilterMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		patterns[i] = re
	}
	return func(next ports.CanvasStore) ports.CanvasStore {
		return &outputFilterMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *outputFilterMiddleware) matches(output string) bool {
	for _, re := range m.patterns {
		if re.MatchString(output) {
			return true
		}
	}
	return false
}

func (m *outputFilterMiddleware) Save(ctx context.Context, sessionID string, cp *domain.Checkpoint) error {
	// Clone so the caller's checkpoint is untouched.
	cloned := *cp
	cloned.Nodes = slices.Clone(cp.Nodes)
	for i, n := range cloned.Nodes {
		if n.HasOutput() && m.matches(n.Output) {
			cloned.Nodes[i].Output = ""
		}
	}
	return m.next.Save(ctx, sessionID, &cloned)
}

func (m *outputFilterMiddleware) Load(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *outputFilterMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *outputFilterMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
