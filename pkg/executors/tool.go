// Package executors implements the eight type-specific node executors
// (spec.md §4.8), each satisfying enginetypes.Executor.
package executors

import (
	"context"
	"fmt"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/executor"
	"github.com/lyzr/orchestrator/pkg/template"
)

// Tool resolves tool_args templates against the input context and prior
// results, then invokes the named tool via the tool registry.
func Tool(ctx context.Context, handle enginetypes.EngineHandle, node *enginetypes.NodeConfig, input map[string]any) (*enginetypes.NodeExecutionResult, error) {
	if node.Tool == nil {
		return nil, &enginetypes.ConfigError{Msg: fmt.Sprintf("node %q: missing tool spec", node.ID)}
	}

	tool, ok := handle.ToolRegistry().Get(node.Tool.ToolName)
	if !ok {
		return &enginetypes.NodeExecutionResult{Success: false, Error: fmt.Sprintf("unknown tool %q", node.Tool.ToolName)}, nil
	}

	priorResults, _ := input[executor.ResultsKey].(map[string]any)
	scope := template.Scope{Input: input, Results: priorResults}
	args, err := template.RenderValue(scope, map[string]any(node.Tool.ToolArgs))
	if err != nil {
		return &enginetypes.NodeExecutionResult{Success: false, Error: fmt.Sprintf("rendering tool_args: %v", err)}, nil
	}
	argsMap, _ := args.(map[string]any)

	out, err := tool.Run(ctx, argsMap)
	if err != nil {
		return &enginetypes.NodeExecutionResult{Success: false, Error: err.Error()}, nil
	}

	return &enginetypes.NodeExecutionResult{Success: true, Output: out}, nil
}
