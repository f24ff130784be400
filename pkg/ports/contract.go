package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalierhq/espalier/pkg/domain"
)

// RunSessionStoreContract runs a suite of tests verifying that a
// SessionStore implementation adheres to the interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	actorKey := "contract-test-actor-" + time.Now().Format("20060102150405")

	record := func() *domain.Record {
		return &domain.Record{
			MenuID:     "demo",
			StartNode:  "start",
			LastNode:   "middle",
			LastInput:  "onward",
			LastKwargs: domain.Map{"foo": "bar", "count": 42},
			AutoQuit:   true,
			AutoLook:   true,
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, actorKey, record()))

		loaded, err := store.Load(ctx, actorKey)
		require.NoError(t, err)
		assert.Equal(t, "demo", loaded.MenuID)
		assert.Equal(t, "middle", loaded.LastNode)
		assert.Equal(t, "onward", loaded.LastInput)
		assert.Equal(t, "bar", loaded.LastKwargs["foo"])
		// JSON-backed stores may widen ints, so only check presence
		assert.NotNil(t, loaded.LastKwargs["count"])
		assert.True(t, loaded.AutoQuit)
		assert.False(t, loaded.AutoHelp)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, actorKey, record()))

		updated := record()
		updated.LastNode = "later"
		require.NoError(t, store.Save(ctx, actorKey, updated))

		loaded, err := store.Load(ctx, actorKey)
		require.NoError(t, err)
		assert.Equal(t, "later", loaded.LastNode)
	})

	t.Run("Load Isolation", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, actorKey, record()))

		loaded, err := store.Load(ctx, actorKey)
		require.NoError(t, err)
		loaded.LastKwargs["foo"] = "mutated"

		again, err := store.Load(ctx, actorKey)
		require.NoError(t, err)
		assert.Equal(t, "bar", again.LastKwargs["foo"], "callers must not mutate stored state by reference")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+actorKey)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, actorKey, record()))
		require.NoError(t, store.Delete(ctx, actorKey))

		_, err := store.Load(ctx, actorKey)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete Non-Existent", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, "non-existent-"+actorKey))
	})
}
