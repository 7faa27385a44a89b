package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/concierge/pkg/adapters/memory"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_Contract(t *testing.T) {
	ports.RunCategoryCacheContract(t, func(t *testing.T) ports.CategoryCache {
		return memory.NewCache()
	})
}

func TestMemoryCache_Isolation(t *testing.T) {
	cache := memory.NewCache()
	ctx := context.Background()

	in := []string{"Catering"}
	require.NoError(t, cache.Set(ctx, in, 0))
	in[0] = "Mutated"

	got, _, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Catering"}, got)

	got[0] = "Mutated"
	again, _, _ := cache.Get(ctx)
	assert.Equal(t, []string{"Catering"}, again)
}

func TestMemoryCache_Expiry(t *testing.T) {
	cache := memory.NewCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, []string{"Catering"}, 20*time.Millisecond))
	_, ok, _ := cache.Get(ctx)
	assert.True(t, ok)

	require.Eventually(t, func() bool {
		_, ok, _ := cache.Get(ctx)
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryLocker(t *testing.T) {
	locker := memory.NewLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "categories", time.Second)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(short, "categories", time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Other keys are independent.
	other, err := locker.Lock(ctx, "other", time.Second)
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	acquired := make(chan struct{})
	go func() {
		unlock2, err := locker.Lock(ctx, "categories", time.Second)
		if err == nil {
			_ = unlock2(ctx)
		}
		close(acquired)
	}()

	require.NoError(t, unlock(ctx))
	require.NoError(t, unlock(ctx), "double release is a no-op")

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the released lock")
	}
}
