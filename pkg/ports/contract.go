package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCheckpoint(sessionID string) *domain.Checkpoint {
	return &domain.Checkpoint{
		SessionID: sessionID,
		Nodes: []domain.Node{
			{ID: "a", Kind: domain.KindImageSource, Title: "Image Source", Position: domain.Point{X: 100, Y: 100}, Width: 400, Output: "data:image/png;base64,AAA"},
			{ID: "b", Kind: domain.KindVideoGenerator, Title: "Video Generator", Position: domain.Point{X: 130, Y: 130}, Width: 400},
		},
		Connections: []domain.Connection{domain.NewConnection("a", "b")},
		Pan:         domain.Point{X: -20, Y: 15},
		SavedAt:     time.Now().UTC().Truncate(time.Second),
	}
}

// RunCanvasStoreContract runs a suite of tests to verify that a CanvasStore
// implementation adheres to the interface contract.
func RunCanvasStoreContract(t *testing.T, store CanvasStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		cp := sampleCheckpoint(sessionID)

		err := store.Save(ctx, sessionID, cp)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, cp.Nodes, loaded.Nodes)
		assert.Equal(t, cp.Connections, loaded.Connections)
		assert.Equal(t, cp.Pan, loaded.Pan)
		assert.True(t, cp.SavedAt.Equal(loaded.SavedAt))
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		cp := sampleCheckpoint(sessionID)
		cp.Nodes = cp.Nodes[:1]
		cp.Connections = nil
		require.NoError(t, store.Save(ctx, sessionID, cp))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Len(t, loaded.Nodes, 1)
		assert.Empty(t, loaded.Connections)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, sampleCheckpoint(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, sampleCheckpoint(id1))
		_ = store.Save(ctx, id2, sampleCheckpoint(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
