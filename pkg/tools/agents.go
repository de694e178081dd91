package tools

import "github.com/lyzr/orchestrator/pkg/enginetypes"

// AgentRegistry is a map-backed enginetypes.AgentRegistry. It holds no lock:
// concurrent Get calls are safe, but Register must not run concurrently
// with Get or another Register.
type AgentRegistry struct {
	agents map[string]enginetypes.Agent
}

// NewAgentRegistry returns an empty AgentRegistry.
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{agents: make(map[string]enginetypes.Agent)}
}

// Register binds an agent under its own Name(), overwriting any prior binding.
func (r *AgentRegistry) Register(agent enginetypes.Agent) {
	r.agents[agent.Name()] = agent
}

// Get resolves an agent by package reference.
func (r *AgentRegistry) Get(pkg string) (enginetypes.Agent, bool) {
	a, ok := r.agents[pkg]
	return a, ok
}
