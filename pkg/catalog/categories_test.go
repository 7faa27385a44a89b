package catalog_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/concierge/pkg/adapters/memory"
	"github.com/aretw0/concierge/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	calls atomic.Int32
	list  []string
	err   error
	delay time.Duration
}

func (f *fakeFetcher) Categories(ctx context.Context) ([]string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.list, f.err
}

func TestCategories_NoCache(t *testing.T) {
	f := &fakeFetcher{list: []string{" Photography ", "Catering", "", "photography"}}
	src := catalog.New(f)

	assert.False(t, src.Static())

	got, err := src.Options(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Photography", "Catering"}, got)

	_, err = src.Options(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestCategories_CacheAside(t *testing.T) {
	f := &fakeFetcher{list: []string{"Photography"}}
	cache := memory.NewCache()
	src := catalog.New(f, catalog.WithCache(cache), catalog.WithTTL(time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := src.Options(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Photography"}, got)
	}
	assert.Equal(t, int32(1), f.calls.Load())

	cached, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"Photography"}, cached)
}

func TestCategories_EmptyListIsNotCached(t *testing.T) {
	f := &fakeFetcher{list: []string{}}
	cache := memory.NewCache()
	src := catalog.New(f, catalog.WithCache(cache))

	got, err := src.Options(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	_, ok, _ := cache.Get(context.Background())
	assert.False(t, ok)
}

func TestCategories_FetchError(t *testing.T) {
	f := &fakeFetcher{err: errors.New("503")}
	src := catalog.New(f, catalog.WithCache(memory.NewCache()))

	_, err := src.Options(context.Background())
	var fetchErr *catalog.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.ErrorContains(t, err, "503")
}

func TestCategories_SingleRefreshUnderLock(t *testing.T) {
	f := &fakeFetcher{list: []string{"Catering"}, delay: 20 * time.Millisecond}
	cache := memory.NewCache()
	src := catalog.New(f,
		catalog.WithCache(cache),
		catalog.WithLocker(memory.NewLocker()),
	)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := src.Options(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, []string{"Catering"}, got)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
}

func TestClean(t *testing.T) {
	assert.Equal(t, []string{}, catalog.Clean(nil))
	assert.Equal(t, []string{"A", "b"}, catalog.Clean([]string{"A", " a ", "b", "  "}))
}
