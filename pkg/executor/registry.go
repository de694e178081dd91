package executor

import "github.com/lyzr/orchestrator/pkg/enginetypes"

// Registry dispatches a node kind to its Executor (spec.md §4.3).
type Registry struct {
	executors map[enginetypes.NodeKind]enginetypes.Executor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[enginetypes.NodeKind]enginetypes.Executor)}
}

// Register binds kind to exec, overwriting any prior binding.
func (r *Registry) Register(kind enginetypes.NodeKind, exec enginetypes.Executor) {
	r.executors[kind] = exec
}

// Get resolves the Executor bound to kind.
func (r *Registry) Get(kind enginetypes.NodeKind) (enginetypes.Executor, bool) {
	e, ok := r.executors[kind]
	return e, ok
}
