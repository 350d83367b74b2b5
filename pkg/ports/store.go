package ports

import (
	"context"

	"github.com/aretw0/intheflow/pkg/domain"
)

// CanvasStore persists canvas checkpoints.
// A checkpoint holds the current graph only; undo history is never stored.
type CanvasStore interface {
	// Save persists the checkpoint for a given session ID, replacing any previous one.
	Save(ctx context.Context, sessionID string, cp *domain.Checkpoint) error

	// Load retrieves the checkpoint for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Checkpoint, error)

	// Delete removes the checkpoint for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
