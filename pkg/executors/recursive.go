package executors

import (
	"context"
	"fmt"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/executor"
	"github.com/lyzr/orchestrator/pkg/graph"
	"github.com/lyzr/orchestrator/pkg/scheduler"
)

// Recursive runs a named state through the recursive body up to
// max_iterations, checking convergence_expression before each round
// (spec.md §4.8).
func Recursive(ctx context.Context, handle enginetypes.EngineHandle, node *enginetypes.NodeConfig, input map[string]any, registry *executor.Registry) (*enginetypes.NodeExecutionResult, error) {
	if node.Recursive == nil {
		return nil, &enginetypes.ConfigError{Msg: fmt.Sprintf("node %q: missing recursive spec", node.ID)}
	}
	spec := node.Recursive
	if spec.ResolvedBodyNode == nil {
		return nil, &enginetypes.ConfigError{Msg: fmt.Sprintf("node %q: recursive body node not resolved", node.ID)}
	}

	state := make(map[string]any, len(spec.InitialState))
	for k, v := range spec.InitialState {
		state[k] = v
	}

	executionID, _ := input["execution_id"].(string)
	workflowID, _ := input["workflow_id"].(string)

	g := graph.New([]*enginetypes.NodeConfig{spec.ResolvedBodyNode})
	if err := g.Validate(); err != nil {
		return nil, err
	}

	var conversationHistory []any
	converged := false
	iteration := 0

	for ; iteration < spec.MaxIterations; iteration++ {
		ok, err := conditionEvaluator.Evaluate(spec.ConvergenceExpr, state)
		if err != nil {
			return &enginetypes.NodeExecutionResult{
				Success:  false,
				Error:    err.Error(),
				Metadata: enginetypes.NodeMetadata{ErrorType: "ExpressionError"},
			}, nil
		}
		if ok {
			converged = true
			break
		}

		childInput := make(map[string]any, len(input)+1)
		for k, v := range input {
			childInput[k] = v
		}
		childInput["state"] = state

		sched := scheduler.New(g, registry, handle, scheduler.Options{
			MaxParallel: 1,
			ExecutionID: fmt.Sprintf("%s:%s:%d", executionID, node.ID, iteration),
			WorkflowID:  workflowID,
		})
		res, err := sched.Run(ctx, childInput)
		if err != nil {
			return nil, err
		}
		bodyResult, ran := res.NodeResults[spec.ResolvedBodyNode.ID]
		if !ran || !bodyResult.Success {
			errMsg := "recursive body did not run"
			if ran {
				errMsg = bodyResult.Error
			}
			return &enginetypes.NodeExecutionResult{Success: false, Error: fmt.Sprintf("recursive body failed at iteration %d: %s", iteration, errMsg)}, nil
		}

		outputMap, _ := bodyResult.Output.(map[string]any)
		for _, name := range spec.StateVariables {
			if v, ok := outputMap[name]; ok {
				state[name] = v
			}
		}
		if spec.PreserveContext {
			conversationHistory = append(conversationHistory, outputMap)
		}
	}

	out := map[string]any{
		"final_state":       state,
		"converged":         converged,
		"current_iteration": iteration,
	}
	if spec.PreserveContext {
		out["conversation_history"] = conversationHistory
	}
	if score, ok := state["consensus_score"]; ok {
		out["consensus_score"] = score
	}

	return &enginetypes.NodeExecutionResult{Success: true, Output: out}, nil
}
