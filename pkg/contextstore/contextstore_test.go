package contextstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "exec1", "node1", map[string]any{"x": 1}))

	got, ok, err := s.Get(ctx, "exec1", "node1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 1, got["x"])

	_, ok, err = s.Get(ctx, "exec1", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutOverwritesPriorEntry(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "exec1", "node1", map[string]any{"x": 1}))
	require.NoError(t, s.Put(ctx, "exec1", "node1", map[string]any{"x": 2}))

	got, ok, err := s.Get(ctx, "exec1", "node1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 2, got["x"])
}

func TestDeleteExecutionScopesToExecutionID(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "exec1", "node1", map[string]any{"x": 1}))
	require.NoError(t, s.Put(ctx, "exec2", "node1", map[string]any{"x": 2}))

	s.DeleteExecution("exec1")

	_, ok, err := s.Get(ctx, "exec1", "node1")
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := s.Get(ctx, "exec2", "node1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 2, got["x"])
}
