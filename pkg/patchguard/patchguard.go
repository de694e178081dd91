// Package patchguard validates the raw JSON Patch operations
// cmd/engineserver's PatchWorkflow receives before they're applied,
// adapted from common/validation/patch_validator.go.
package patchguard

import "fmt"

// maxAgentNodesPerPatch caps how many agent nodes a single PATCH request can
// add, so one blueprint edit can't silently balloon a workflow's rate-limit
// tier (pkg/ratelimit.InspectWorkflow) or its LLM spend in one step.
const maxAgentNodesPerPatch = 5

// Validate checks structural well-formedness of a decoded JSON Patch
// document and enforces the per-patch agent-node cap. It runs before
// jsonpatch.Apply so malformed or abusive patches are rejected with a
// specific message instead of jsonpatch's generic apply error.
func Validate(operations []map[string]any) error {
	agentCount := 0

	for i, op := range operations {
		if err := validateOperation(op, i); err != nil {
			return err
		}

		if op["op"] == "add" && op["path"] == "/nodes/-" {
			if value, ok := op["value"].(map[string]any); ok {
				if kind, ok := value["kind"].(string); ok && kind == "agent" {
					agentCount++
				}
			}
		}
	}

	if agentCount > maxAgentNodesPerPatch {
		return fmt.Errorf("patch adds %d agent nodes, exceeding the per-patch limit of %d", agentCount, maxAgentNodesPerPatch)
	}

	return nil
}

func validateOperation(op map[string]any, index int) error {
	opType, ok := op["op"].(string)
	if !ok {
		return fmt.Errorf("operation %d: missing or invalid 'op' field", index)
	}

	path, ok := op["path"].(string)
	if !ok {
		return fmt.Errorf("operation %d: missing or invalid 'path' field", index)
	}

	switch opType {
	case "add", "replace":
		value, ok := op["value"]
		if !ok {
			return fmt.Errorf("operation %d: 'value' required for %s operation", index, opType)
		}
		if path == "/nodes/-" {
			return validateNodeValue(value, index)
		}
	case "remove", "move", "copy", "test":
		// no value/node shape to check beyond the op/path fields above.
	default:
		return fmt.Errorf("operation %d: unsupported operation type %q", index, opType)
	}

	return nil
}

func validateNodeValue(value any, index int) error {
	node, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("operation %d: node value must be an object, got %T", index, value)
	}

	if _, ok := node["id"].(string); !ok {
		return fmt.Errorf("operation %d: node must have an 'id' field (string)", index)
	}
	if _, ok := node["kind"].(string); !ok {
		return fmt.Errorf("operation %d: node must have a 'kind' field (string)", index)
	}

	return nil
}
