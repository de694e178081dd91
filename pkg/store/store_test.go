package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
)

func TestInMemorySaveAndGetByID(t *testing.T) {
	s := NewInMemory()
	wf := &enginetypes.WorkflowSpec{BlueprintID: "bp1", Name: "demo"}

	require.NoError(t, s.Save(context.Background(), wf))

	got, ok, err := s.GetByID(context.Background(), "bp1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "demo", got.Name)

	_, ok, err = s.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryGetSatisfiesWorkflowRegistry(t *testing.T) {
	s := NewInMemory()
	wf := &enginetypes.WorkflowSpec{BlueprintID: "bp1", Name: "demo"}
	require.NoError(t, s.Save(context.Background(), wf))

	var reg enginetypes.WorkflowRegistry = s
	got, ok := reg.Get("bp1")
	require.True(t, ok)
	assert.Equal(t, "demo", got.Name)

	_, ok = reg.Get("ghost")
	assert.False(t, ok)
}

func TestInMemorySaveAndGetResult(t *testing.T) {
	s := NewInMemory()
	result := &enginetypes.WorkflowResult{Success: true}

	require.NoError(t, s.SaveResult(context.Background(), "exec1", result))

	got, ok, err := s.GetResult(context.Background(), "exec1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Success)

	_, ok, err = s.GetResult(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
