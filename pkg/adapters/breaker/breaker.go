// Package breaker guards a ports.Generator with a circuit breaker. After
// MaxFailures consecutive backend failures every call fails fast with
// ErrOpen until Timeout elapses and a trial call succeeds.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/aretw0/intheflow/pkg/ports"
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = gobreaker.ErrOpenState

// Settings configures New.
type Settings struct {
	Name        string
	MaxFailures uint32
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Generator is a ports.Generator that stops calling a failing backend.
type Generator struct {
	next ports.Generator
	cb   *gobreaker.CircuitBreaker
}

var _ ports.Generator = (*Generator)(nil)

// New wraps next. A zero MaxFailures trips on the first failure.
func New(next ports.Generator, s Settings) *Generator {
	if s.Name == "" {
		s.Name = "generator"
	}
	if s.MaxFailures == 0 {
		s.MaxFailures = 1
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    s.Name,
			Timeout: s.Timeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= s.MaxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
			IsSuccessful: healthy,
		}),
	}
}

// healthy reports whether err says nothing about the backend itself.
// Cancellations and rejected keys do not count against it.
func healthy(err error) bool {
	return err == nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, ports.ErrCredentialRejected)
}

// State is the current breaker state ("closed", "half-open" or "open").
func (g *Generator) State() string {
	return g.cb.State().String()
}

func execute[T any](g *Generator, fn func() (T, error)) (T, error) {
	v, err := g.cb.Execute(func() (any, error) {
		return fn()
	})
	out, _ := v.(T)
	return out, err
}

func (g *Generator) GenerateImage(ctx context.Context, req ports.ImageRequest) (string, error) {
	return execute(g, func() (string, error) { return g.next.GenerateImage(ctx, req) })
}

func (g *Generator) GenerateText(ctx context.Context, req ports.TextRequest) (ports.TextResult, error) {
	return execute(g, func() (ports.TextResult, error) { return g.next.GenerateText(ctx, req) })
}

func (g *Generator) GenerateSpeech(ctx context.Context, req ports.SpeechRequest) (string, error) {
	return execute(g, func() (string, error) { return g.next.GenerateSpeech(ctx, req) })
}

func (g *Generator) GenerateVideo(ctx context.Context, req ports.VideoRequest, progress ports.ProgressFunc) (string, error) {
	return execute(g, func() (string, error) { return g.next.GenerateVideo(ctx, req, progress) })
}
