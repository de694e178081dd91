// Package tools provides a concrete enginetypes.ToolRegistry and the
// built-in tools cmd/engineserver registers into it by default.
package tools

import "github.com/lyzr/orchestrator/pkg/enginetypes"

// Registry is a map-backed enginetypes.ToolRegistry. It holds no lock:
// concurrent Get calls are safe, but Register must not run concurrently
// with Get or another Register.
type Registry struct {
	tools map[string]enginetypes.Tool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]enginetypes.Tool)}
}

// Register binds a tool under its own Name(), overwriting any prior binding.
func (r *Registry) Register(tool enginetypes.Tool) {
	r.tools[tool.Name()] = tool
}

// Get resolves a tool by name.
func (r *Registry) Get(name string) (enginetypes.Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}
