package rundispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/logger"
)

func TestQueueSubmitAndProcess(t *testing.T) {
	q := New(4, logger.New("error", "text"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processed := make(chan string, 1)
	q.Start(ctx, func(_ context.Context, req RunRequest) error {
		processed <- req.ExecutionID
		return nil
	})

	ok := q.Submit(ctx, RunRequest{ExecutionID: "exec-1", Workflow: &enginetypes.WorkflowSpec{}})
	require.True(t, ok)

	select {
	case id := <-processed:
		assert.Equal(t, "exec-1", id)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for run to process")
	}
}

func TestQueueRejectsWhenFull(t *testing.T) {
	q := New(1, logger.New("error", "text"))
	ctx := context.Background()

	require.True(t, q.Submit(ctx, RunRequest{ExecutionID: "exec-1"}))
	assert.False(t, q.Submit(ctx, RunRequest{ExecutionID: "exec-2"}))
}
