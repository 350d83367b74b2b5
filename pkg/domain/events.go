package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRecord          EventType = "history_record"
	EventAmend           EventType = "history_amend"
	EventUndo            EventType = "history_undo"
	EventRedo            EventType = "history_redo"
	EventGestureStart    EventType = "gesture_start"
	EventGestureEnd      EventType = "gesture_end"
	EventGenerationStart EventType = "generation_start"
	EventGenerationEnd   EventType = "generation_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
}

// HistoryEvent reports a movement of the history stack.
type HistoryEvent struct {
	EventBase
	Cursor int `json:"cursor"`
	Depth  int `json:"depth"`
}

// GestureEvent reports the start or end of an interaction gesture.
type GestureEvent struct {
	EventBase
	Gesture string `json:"gesture"`
	NodeID  string `json:"node_id,omitempty"`
}

// GenerationEvent reports a content generation request for a node.
type GenerationEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	Kind     Kind          `json:"kind"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
	Orphaned bool          `json:"orphaned,omitempty"`
}

// LifecycleHooks defines callbacks for canvas observability.
// Every field is optional.
type LifecycleHooks struct {
	OnHistory    func(context.Context, *HistoryEvent)
	OnGesture    func(context.Context, *GestureEvent)
	OnGeneration func(context.Context, *GenerationEvent)
}

// Merge returns hooks that call h first, then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnHistory:    chain(h.OnHistory, other.OnHistory),
		OnGesture:    chain(h.OnGesture, other.OnGesture),
		OnGeneration: chain(h.OnGeneration, other.OnGeneration),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
