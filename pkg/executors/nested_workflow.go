package executors

import (
	"context"
	"fmt"

	"github.com/lyzr/orchestrator/pkg/contextbuilder"
	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/template"
)

// NestedWorkflow instantiates the referenced sub-workflow (inline or
// registry-backed) with mapped inputs, runs it to completion via
// handle.RunNested, and maps its outputs through exposed_outputs into this
// node's output; an empty mapping exposes the entire sub-result (spec.md
// §4.8).
func NestedWorkflow(ctx context.Context, handle enginetypes.EngineHandle, node *enginetypes.NodeConfig, input map[string]any) (*enginetypes.NodeExecutionResult, error) {
	if node.NestedWorkflow == nil {
		return nil, &enginetypes.ConfigError{Msg: fmt.Sprintf("node %q: missing nested_workflow spec", node.ID)}
	}
	spec := node.NestedWorkflow

	wf := spec.InlineWorkflow
	if wf == nil {
		resolved, ok := handle.WorkflowRegistry().Get(spec.RegistryName)
		if !ok {
			return &enginetypes.NodeExecutionResult{Success: false, Error: fmt.Sprintf("registry_name %q not found", spec.RegistryName)}, nil
		}
		wf = resolved
	}

	mappedInput := input
	if len(spec.InputMapping) > 0 {
		mappedInput = make(map[string]any, len(spec.InputMapping))
		for destKey, srcPath := range spec.InputMapping {
			v, err := template.ResolvePath(input, srcPath)
			if err != nil {
				return &enginetypes.NodeExecutionResult{Success: false, Error: fmt.Sprintf("resolving input_mapping %q: %v", destKey, err)}, nil
			}
			mappedInput[destKey] = v
		}
	}

	result, err := handle.RunNested(ctx, wf, mappedInput)
	if err != nil {
		return &enginetypes.NodeExecutionResult{Success: false, Error: err.Error()}, nil
	}
	if !result.Success {
		return &enginetypes.NodeExecutionResult{Success: false, Error: result.Error}, nil
	}

	flatOutput := contextbuilder.ResultsAsOutputMap(result.Output)
	if len(spec.ExposedOutputs) == 0 {
		return &enginetypes.NodeExecutionResult{Success: true, Output: flatOutput}, nil
	}

	exposed := make(map[string]any, len(spec.ExposedOutputs))
	for destKey, path := range spec.ExposedOutputs {
		v, err := template.ResolvePath(flatOutput, path)
		if err != nil {
			return &enginetypes.NodeExecutionResult{Success: false, Error: fmt.Sprintf("resolving exposed_outputs %q: %v", destKey, err)}, nil
		}
		exposed[destKey] = v
	}
	return &enginetypes.NodeExecutionResult{Success: true, Output: exposed}, nil
}
