package executors

import (
	"context"
	"fmt"

	"github.com/lyzr/orchestrator/pkg/condition"
	"github.com/lyzr/orchestrator/pkg/enginetypes"
)

// conditionEvaluator is shared across all condition-node invocations so
// compiled CEL programs are reused (spec.md §4.8: "evaluates expression ...
// in a sandboxed mini-language").
var conditionEvaluator = condition.NewEvaluator()

// Condition evaluates node.Condition.Expression against the input context
// and returns {"result": <bool>}. A compile or evaluation failure yields a
// failed result carrying an ExpressionError.
func Condition(_ context.Context, _ enginetypes.EngineHandle, node *enginetypes.NodeConfig, input map[string]any) (*enginetypes.NodeExecutionResult, error) {
	if node.Condition == nil {
		return nil, &enginetypes.ConfigError{Msg: fmt.Sprintf("node %q: missing condition spec", node.ID)}
	}

	result, err := conditionEvaluator.Evaluate(node.Condition.Expression, input)
	if err != nil {
		return &enginetypes.NodeExecutionResult{
			Success:  false,
			Error:    err.Error(),
			Metadata: enginetypes.NodeMetadata{ErrorType: "ExpressionError"},
		}, nil
	}

	return &enginetypes.NodeExecutionResult{Success: true, Output: map[string]any{"result": result}}, nil
}
