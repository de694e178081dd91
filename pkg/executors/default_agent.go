package executors

import (
	"context"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
)

// DefaultAgent is the built-in enginetypes.Agent implementation: a plain
// reason-act loop over whatever LLMService the engine handle exposes, with
// no memory or custom tool-selection behavior layered on top. Registered
// under the "default" package name so workflows that don't need a bespoke
// agent implementation still have one to reference.
type DefaultAgent struct{ name string }

// NewDefaultAgent returns a DefaultAgent registered under name.
func NewDefaultAgent(name string) *DefaultAgent {
	return &DefaultAgent{name: name}
}

// Name satisfies enginetypes.Agent.
func (a *DefaultAgent) Name() string { return a.name }

// Run satisfies enginetypes.Agent by delegating to RunReasonActLoop.
func (a *DefaultAgent) Run(ctx context.Context, handle enginetypes.EngineHandle, spec *enginetypes.AgentNodeSpec, tools []enginetypes.Tool, input map[string]any) (*enginetypes.NodeExecutionResult, error) {
	return RunReasonActLoop(ctx, handle, spec, tools, input)
}
