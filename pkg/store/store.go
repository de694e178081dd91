// Package store defines the blueprint/result persistence contracts the
// engine's HTTP surface and registry-backed nested workflows depend on
// (spec.md §6.6), plus an in-memory implementation for tests and the
// default no-database deployment.
package store

import (
	"context"
	"sync"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
)

// BlueprintStore persists and retrieves workflow blueprints by id. It also
// satisfies enginetypes.WorkflowRegistry (the narrower, context-free
// lookup executors use for registry_name nested_workflow references).
type BlueprintStore interface {
	Save(ctx context.Context, wf *enginetypes.WorkflowSpec) error
	GetByID(ctx context.Context, blueprintID string) (*enginetypes.WorkflowSpec, bool, error)
	enginetypes.WorkflowRegistry
}

// ResultStore persists a completed run's WorkflowResult keyed by execution
// id, for later retrieval (spec.md §6.6 "fetch run result").
type ResultStore interface {
	SaveResult(ctx context.Context, executionID string, result *enginetypes.WorkflowResult) error
	GetResult(ctx context.Context, executionID string) (*enginetypes.WorkflowResult, bool, error)
}

// InMemory is a process-local BlueprintStore + ResultStore, keyed by
// blueprint id / execution id.
type InMemory struct {
	mu         sync.RWMutex
	blueprints map[string]*enginetypes.WorkflowSpec
	results    map[string]*enginetypes.WorkflowResult
}

// NewInMemory returns an empty InMemory store.
func NewInMemory() *InMemory {
	return &InMemory{
		blueprints: make(map[string]*enginetypes.WorkflowSpec),
		results:    make(map[string]*enginetypes.WorkflowResult),
	}
}

var (
	_ BlueprintStore = (*InMemory)(nil)
	_ ResultStore    = (*InMemory)(nil)
)

func (s *InMemory) Save(_ context.Context, wf *enginetypes.WorkflowSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blueprints[wf.BlueprintID] = wf
	return nil
}

func (s *InMemory) GetByID(_ context.Context, blueprintID string) (*enginetypes.WorkflowSpec, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.blueprints[blueprintID]
	return wf, ok, nil
}

// Get satisfies enginetypes.WorkflowRegistry for registry_name-backed
// nested_workflow nodes, resolving the name against the same blueprint map.
func (s *InMemory) Get(name string) (*enginetypes.WorkflowSpec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.blueprints[name]
	return wf, ok
}

func (s *InMemory) SaveResult(_ context.Context, executionID string, result *enginetypes.WorkflowResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[executionID] = result
	return nil
}

func (s *InMemory) GetResult(_ context.Context, executionID string) (*enginetypes.WorkflowResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[executionID]
	return r, ok, nil
}
