package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCategoryCacheContract runs a suite of tests to verify that a CategoryCache
// implementation adheres to the defined interface contract.
func RunCategoryCacheContract(t *testing.T, newCache func(t *testing.T) CategoryCache) {
	ctx := context.Background()

	t.Run("Miss", func(t *testing.T) {
		cache := newCache(t)
		got, ok, err := cache.Get(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("Set and Get", func(t *testing.T) {
		cache := newCache(t)
		want := []string{"Photography", "Catering", "Decoration"}

		require.NoError(t, cache.Set(ctx, want, 0))

		got, ok, err := cache.Get(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, want, got, "order must be preserved")
	})

	t.Run("Overwrite", func(t *testing.T) {
		cache := newCache(t)
		require.NoError(t, cache.Set(ctx, []string{"Old"}, time.Minute))
		require.NoError(t, cache.Set(ctx, []string{"New"}, time.Minute))

		got, ok, err := cache.Get(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []string{"New"}, got)
	})

	t.Run("Empty List Is A Hit", func(t *testing.T) {
		cache := newCache(t)
		require.NoError(t, cache.Set(ctx, []string{}, 0))

		_, ok, err := cache.Get(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
