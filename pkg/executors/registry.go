package executors

import (
	"context"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/executor"
)

// BuildRegistry wires every node kind to its concrete executor. Loop,
// Parallel, and Recursive need the registry itself to dispatch their body
// sub-graphs, so it's built once here and closed over rather than
// constructed piecemeal by callers (spec.md §4.3, §4.8).
func BuildRegistry() *executor.Registry {
	reg := executor.NewRegistry()

	reg.Register(enginetypes.KindTool, Tool)
	reg.Register(enginetypes.KindLLM, LLM)
	reg.Register(enginetypes.KindAgent, Agent)
	reg.Register(enginetypes.KindCondition, Condition)
	reg.Register(enginetypes.KindNestedWorkflow, NestedWorkflow)

	reg.Register(enginetypes.KindLoop, func(ctx context.Context, handle enginetypes.EngineHandle, node *enginetypes.NodeConfig, input map[string]any) (*enginetypes.NodeExecutionResult, error) {
		return Loop(ctx, handle, node, input, reg)
	})
	reg.Register(enginetypes.KindParallel, func(ctx context.Context, handle enginetypes.EngineHandle, node *enginetypes.NodeConfig, input map[string]any) (*enginetypes.NodeExecutionResult, error) {
		return Parallel(ctx, handle, node, input, reg)
	})
	reg.Register(enginetypes.KindRecursive, func(ctx context.Context, handle enginetypes.EngineHandle, node *enginetypes.NodeConfig, input map[string]any) (*enginetypes.NodeExecutionResult, error) {
		return Recursive(ctx, handle, node, input, reg)
	})

	return reg
}
