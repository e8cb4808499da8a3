package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utopium/chatflow/pkg/adapters/memory"
	"github.com/utopium/chatflow/pkg/domain"
	"github.com/utopium/chatflow/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunStateStoreContract(t, store)
}

func TestMemoryStore_ConcurrentSaves(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap := domain.NewSnapshot()
			snap.State.Version = i
			_ = store.Save(ctx, "shared", snap)
		}(i)
	}
	wg.Wait()

	loaded, err := store.Load(ctx, "shared")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, loaded.State.Version, 0)
}
