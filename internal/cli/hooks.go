package cli

import (
	"context"
	"log/slog"

	"github.com/aretw0/intheflow/pkg/domain"
)

// DebugHooks logs every lifecycle event at debug level.
func DebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnHistory: func(ctx context.Context, e *domain.HistoryEvent) {
			logger.DebugContext(ctx, "history", "session_id", e.SessionID, "type", e.Type, "cursor", e.Cursor, "depth", e.Depth)
		},
		OnGesture: func(ctx context.Context, e *domain.GestureEvent) {
			logger.DebugContext(ctx, "gesture", "session_id", e.SessionID, "type", e.Type, "gesture", e.Gesture, "node_id", e.NodeID)
		},
		OnGeneration: func(ctx context.Context, e *domain.GenerationEvent) {
			args := []any{"session_id", e.SessionID, "type", e.Type, "node_id", e.NodeID, "kind", e.Kind}
			if e.Type == domain.EventGenerationEnd {
				args = append(args, "duration", e.Duration, "is_error", e.IsError, "orphaned", e.Orphaned)
			}
			logger.DebugContext(ctx, "generation", args...)
		},
	}
}
