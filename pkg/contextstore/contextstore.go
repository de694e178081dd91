// Package contextstore implements the per-(node_id, execution_id)
// input/output snapshot store executors and the HTTP surface read back for
// debugging and partial-update resumption (spec.md §5, §6.6). Adapted from
// common/cache/cache.go's RWMutex-protected map shape.
package contextstore

import (
	"context"
	"sync"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
)

// InMemory is a process-local enginetypes.ContextStore. Last-writer-wins
// per key is acceptable since each node writes its own input/output once
// per attempt (spec.md §5).
type InMemory struct {
	mu   sync.RWMutex
	data map[string]map[string]any
}

var _ enginetypes.ContextStore = (*InMemory)(nil)

// New returns an empty InMemory context store.
func New() *InMemory {
	return &InMemory{data: make(map[string]map[string]any)}
}

// Put records content under (executionID, nodeID), overwriting any prior
// entry for the same key.
func (s *InMemory) Put(_ context.Context, executionID, nodeID string, content map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key(executionID, nodeID)] = content
	return nil
}

// Get retrieves the content last written for (executionID, nodeID).
func (s *InMemory) Get(_ context.Context, executionID, nodeID string) (map[string]any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key(executionID, nodeID)]
	return v, ok, nil
}

// DeleteExecution drops every entry belonging to executionID, bounding
// memory growth once a run's result has been persisted elsewhere.
func (s *InMemory) DeleteExecution(executionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := executionID + ":"
	for k := range s.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(s.data, k)
		}
	}
}

func key(executionID, nodeID string) string {
	return executionID + ":" + nodeID
}
