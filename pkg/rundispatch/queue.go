// Package rundispatch queues asynchronous workflow-run requests for
// cmd/engineserver's POST /workflows/:id/run?async=true surface, adapted
// from common/queue's in-memory pub/sub queue and specialized to carry
// RunRequest instead of opaque byte messages.
package rundispatch

import (
	"context"
	"sync"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/logger"
)

// RunRequest is one queued asynchronous run.
type RunRequest struct {
	ExecutionID    string
	Workflow       *enginetypes.WorkflowSpec
	InitialContext map[string]any
}

// Handler processes one dequeued RunRequest.
type Handler func(ctx context.Context, req RunRequest) error

// Queue is a single-topic, in-memory, buffered run queue. It exists to
// decouple "accept the submission" from "execute the workflow" inside one
// process; a distributed broker is out of scope (spec.md Non-goals).
type Queue struct {
	mu      sync.Mutex
	pending chan RunRequest
	log     *logger.Logger
}

// New returns a Queue buffering up to capacity pending requests.
func New(capacity int, log *logger.Logger) *Queue {
	return &Queue{pending: make(chan RunRequest, capacity), log: log}
}

// Submit enqueues req, returning false if the queue is full.
func (q *Queue) Submit(ctx context.Context, req RunRequest) bool {
	select {
	case q.pending <- req:
		return true
	case <-ctx.Done():
		return false
	default:
		q.log.Warn("run queue full, rejecting submission", "execution_id", req.ExecutionID)
		return false
	}
}

// Start runs handler against every queued request until ctx is cancelled.
// Only one worker goroutine drains the queue, so runs execute in submission
// order; callers wanting parallel async runs should submit to N queues.
func (q *Queue) Start(ctx context.Context, handler Handler) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-q.pending:
				if err := handler(ctx, req); err != nil {
					q.log.Error("async run failed", "execution_id", req.ExecutionID, "error", err)
				}
			}
		}
	}()
}

// Close releases the queue's buffer. Safe to call once after Start's ctx has
// been cancelled.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	close(q.pending)
}
