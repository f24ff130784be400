package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalierhq/espalier/pkg/adapters/memory"
	"github.com/espalierhq/espalier/pkg/domain"
	"github.com/espalierhq/espalier/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, memory.NewStore())
}

func TestMemoryStore_List(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	rec := &domain.Record{MenuID: "demo", LastNode: "start"}
	require.NoError(t, store.Save(ctx, "alice", rec))
	require.NoError(t, store.Save(ctx, "bob", rec))

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, keys)

	require.NoError(t, store.Delete(ctx, "alice"))
	keys, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, keys)
}
