package executors

import (
	"context"
	"fmt"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/executor"
	"github.com/lyzr/orchestrator/pkg/graph"
	"github.com/lyzr/orchestrator/pkg/scheduler"
	"github.com/lyzr/orchestrator/pkg/template"
)

// Loop resolves items_source to an iterable and runs body_node_ids as a
// sub-level once per item, sequentially, preserving output ordering by item
// index (spec.md §4.8).
func Loop(ctx context.Context, handle enginetypes.EngineHandle, node *enginetypes.NodeConfig, input map[string]any, registry *executor.Registry) (*enginetypes.NodeExecutionResult, error) {
	if node.Loop == nil {
		return nil, &enginetypes.ConfigError{Msg: fmt.Sprintf("node %q: missing loop spec", node.ID)}
	}
	spec := node.Loop

	resolved, err := template.ResolvePath(input, spec.ItemsSource)
	if err != nil {
		return &enginetypes.NodeExecutionResult{Success: false, Error: fmt.Sprintf("resolving items_source %q: %v", spec.ItemsSource, err)}, nil
	}
	items, ok := resolved.([]any)
	if !ok {
		return &enginetypes.NodeExecutionResult{Success: false, Error: fmt.Sprintf("items_source %q did not resolve to an iterable", spec.ItemsSource)}, nil
	}
	if spec.MaxIterations > 0 && len(items) > spec.MaxIterations {
		items = items[:spec.MaxIterations]
	}

	bodyGraph := graph.New(spec.BodyNodes)
	if err := bodyGraph.Validate(); err != nil {
		return nil, err
	}

	executionID, _ := input["execution_id"].(string)
	workflowID, _ := input["workflow_id"].(string)

	iterations := make([]any, 0, len(items))
	halted := false
	for i, item := range items {
		childInput := make(map[string]any, len(input)+1)
		for k, v := range input {
			childInput[k] = v
		}
		childInput[spec.ItemVar] = item

		sched := scheduler.New(bodyGraph, registry, handle, scheduler.Options{
			MaxParallel: 1,
			ExecutionID: fmt.Sprintf("%s:%s:%d", executionID, node.ID, i),
			WorkflowID:  workflowID,
		})
		res, err := sched.Run(ctx, childInput)
		if err != nil {
			return nil, err
		}
		iterations = append(iterations, bodyOutputs(res.NodeResults))
		if res.Halted {
			halted = true
			break
		}
	}

	out := map[string]any{"iterations": iterations, "count": len(iterations)}
	if halted {
		out["halted"] = true
	}
	return &enginetypes.NodeExecutionResult{Success: true, Output: out}, nil
}

// bodyOutputs flattens a sub-run's node results to node_id -> output (or an
// {"error": ...} marker for nodes that failed), the "per-iteration node
// outputs" shape spec.md §4.8 describes for loop results.
func bodyOutputs(results map[string]*enginetypes.NodeExecutionResult) map[string]any {
	out := make(map[string]any, len(results))
	for id, r := range results {
		if r.Success {
			out[id] = r.Output
		} else {
			out[id] = map[string]any{"error": r.Error}
		}
	}
	return out
}
