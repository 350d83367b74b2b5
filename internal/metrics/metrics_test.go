package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/intheflow/pkg/domain"
)

func TestHooks(t *testing.T) {
	m := New()
	h := m.Hooks()
	ctx := context.Background()

	h.OnHistory(ctx, &domain.HistoryEvent{EventBase: domain.EventBase{Type: domain.EventRecord}})
	h.OnHistory(ctx, &domain.HistoryEvent{EventBase: domain.EventBase{Type: domain.EventRecord}})
	h.OnHistory(ctx, &domain.HistoryEvent{EventBase: domain.EventBase{Type: domain.EventUndo}})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.history.WithLabelValues("history_record")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.history.WithLabelValues("history_undo")))

	h.OnGesture(ctx, &domain.GestureEvent{EventBase: domain.EventBase{Type: domain.EventGestureStart}, Gesture: "panning"})
	h.OnGesture(ctx, &domain.GestureEvent{EventBase: domain.EventBase{Type: domain.EventGestureEnd}, Gesture: "panning"})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gestures.WithLabelValues("panning")), "only ends are counted")

	gen := func(isErr, orphan bool) *domain.GenerationEvent {
		return &domain.GenerationEvent{
			EventBase: domain.EventBase{Type: domain.EventGenerationEnd},
			Kind:      domain.KindImageGenerator,
			Duration:  2 * time.Second,
			IsError:   isErr,
			Orphaned:  orphan,
		}
	}
	h.OnGeneration(ctx, &domain.GenerationEvent{EventBase: domain.EventBase{Type: domain.EventGenerationStart}, Kind: domain.KindImageGenerator})
	h.OnGeneration(ctx, gen(false, false))
	h.OnGeneration(ctx, gen(true, false))
	h.OnGeneration(ctx, gen(false, true))

	kind := string(domain.KindImageGenerator)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues(kind, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues(kind, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues(kind, "orphaned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orphans))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Hooks().OnHistory(context.Background(), &domain.HistoryEvent{EventBase: domain.EventBase{Type: domain.EventAmend}})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `intheflow_history_events_total{type="history_amend"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
