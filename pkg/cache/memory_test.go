package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
)

func TestMemoryCacheGetSet(t *testing.T) {
	c := NewMemoryCache(time.Minute, nil)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	want := &enginetypes.NodeExecutionResult{Success: true, Output: "v"}
	require.NoError(t, c.Set(ctx, "k", want))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", got.Output)
}

func TestMemoryCacheExpires(t *testing.T) {
	c := NewMemoryCache(10*time.Millisecond, nil)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", &enginetypes.NodeExecutionResult{Success: true}))

	time.Sleep(30 * time.Millisecond)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetOrBuildCoalescesConcurrentMisses(t *testing.T) {
	c := NewMemoryCache(time.Minute, nil)
	ctx := context.Background()

	var calls int32
	build := func() (*enginetypes.NodeExecutionResult, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return &enginetypes.NodeExecutionResult{Success: true, Output: "built"}, nil
	}

	var wg sync.WaitGroup
	results := make([]*enginetypes.NodeExecutionResult, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := c.GetOrBuild(ctx, "shared-key", build)
			require.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "built", r.Output)
	}

	cached, ok, err := c.Get(ctx, "shared-key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "built", cached.Output)
}

func TestGetOrBuildDoesNotCacheFailure(t *testing.T) {
	c := NewMemoryCache(time.Minute, nil)
	ctx := context.Background()

	r, err := c.GetOrBuild(ctx, "k", func() (*enginetypes.NodeExecutionResult, error) {
		return &enginetypes.NodeExecutionResult{Success: false, Error: "nope"}, nil
	})
	require.NoError(t, err)
	assert.False(t, r.Success)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
