// Package contextbuilder resolves a node's per-node input context from the
// accumulated results of its dependencies via declared InputMappings
// (spec.md §4.2).
package contextbuilder

import (
	"fmt"
	"strings"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/template"
)

// EngineFields are additional fields injected by the engine, available to
// executors but never placed in input_mappings (spec.md §4.2).
type EngineFields struct {
	WorkflowID    string
	NodeID        string
	ExecutionID   string
	AttemptNumber int
}

// Build resolves node's input_mappings against accumulated results. On any
// resolution failure it returns a *enginetypes.DependencyError (non-retryable,
// per spec.md §4.2); the caller must not invoke the executor in that case.
func Build(node *enginetypes.NodeConfig, results map[string]*enginetypes.NodeExecutionResult, fields EngineFields) (map[string]any, error) {
	ctx := make(map[string]any, len(node.InputMappings)+4)
	var errs []string

	for placeholder, mapping := range node.InputMappings {
		if mapping.IsLiteral() {
			ctx[placeholder] = mapping.Literal
			continue
		}

		dep, ok := results[mapping.SourceNodeID]
		if !ok || !dep.Success {
			errs = append(errs, fmt.Sprintf("dependency %q failed or did not run", mapping.SourceNodeID))
			continue
		}

		value, err := template.ResolvePath(dep.Output, mapping.SourceOutputPath)
		if err != nil {
			errs = append(errs, fmt.Sprintf(
				"failed to resolve path %q in dependency %q: %v",
				mapping.SourceOutputPath, mapping.SourceNodeID, err))
			continue
		}
		ctx[placeholder] = value
	}

	if len(errs) > 0 {
		return nil, &enginetypes.DependencyError{Msg: fmt.Sprintf(
			"node %q context validation failed:\n%s", node.ID, strings.Join(errs, "\n"))}
	}

	ctx["workflow_id"] = fields.WorkflowID
	ctx["node_id"] = fields.NodeID
	ctx["execution_id"] = fields.ExecutionID
	ctx["attempt_number"] = fields.AttemptNumber

	return ctx, nil
}

// ResultsAsOutputMap flattens accumulated results down to node_id -> output,
// the shape template.Scope.Results expects for "result.<node_id>.<path>"
// resolution inside tool_args / prompt_template rendering.
func ResultsAsOutputMap(results map[string]*enginetypes.NodeExecutionResult) map[string]any {
	out := make(map[string]any, len(results))
	for id, r := range results {
		if r.Success {
			out[id] = r.Output
		}
	}
	return out
}
