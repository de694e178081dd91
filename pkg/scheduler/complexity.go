package scheduler

import "github.com/lyzr/orchestrator/pkg/enginetypes"

// EstimatedComplexity returns a deterministic admission weight for node,
// used by the weighted concurrency limiter (spec.md §4.6: "LLM with tools >
// LLM > agent > tool > condition").
func EstimatedComplexity(node *enginetypes.NodeConfig) int {
	switch node.Kind {
	case enginetypes.KindLLM:
		if node.LLM != nil && len(node.LLM.Tools) > 0 {
			return 5
		}
		return 4
	case enginetypes.KindAgent:
		return 3
	case enginetypes.KindTool:
		return 2
	case enginetypes.KindCondition:
		return 1
	case enginetypes.KindLoop, enginetypes.KindParallel, enginetypes.KindRecursive, enginetypes.KindNestedWorkflow:
		return 2
	default:
		return 1
	}
}
