package patchguard

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAcceptsWellFormedPatch(t *testing.T) {
	ops := []map[string]any{
		{"op": "replace", "path": "/name", "value": "patched"},
		{"op": "add", "path": "/nodes/-", "value": map[string]any{"id": "n2", "kind": "tool"}},
		{"op": "remove", "path": "/nodes/0"},
	}
	assert.NoError(t, Validate(ops))
}

func TestValidateRejectsMissingFields(t *testing.T) {
	assert.Error(t, Validate([]map[string]any{{"path": "/name", "value": "x"}}))
	assert.Error(t, Validate([]map[string]any{{"op": "replace", "value": "x"}}))
	assert.Error(t, Validate([]map[string]any{{"op": "replace", "path": "/name"}}))
}

func TestValidateRejectsUnsupportedOp(t *testing.T) {
	err := Validate([]map[string]any{{"op": "frobnicate", "path": "/name", "value": "x"}})
	assert.Error(t, err)
}

func TestValidateRejectsNodeMissingKind(t *testing.T) {
	ops := []map[string]any{
		{"op": "add", "path": "/nodes/-", "value": map[string]any{"id": "n2"}},
	}
	assert.Error(t, Validate(ops))
}

func TestValidateEnforcesAgentNodeCap(t *testing.T) {
	var ops []map[string]any
	for i := 0; i < 6; i++ {
		ops = append(ops, map[string]any{
			"op":   "add",
			"path": "/nodes/-",
			"value": map[string]any{
				"id":   fmt.Sprintf("agent-%d", i),
				"kind": "agent",
			},
		})
	}
	err := Validate(ops)
	assert.ErrorContains(t, err, "exceeding the per-patch limit")
}

func TestValidateAllowsUpToFiveAgentNodes(t *testing.T) {
	var ops []map[string]any
	for i := 0; i < 5; i++ {
		ops = append(ops, map[string]any{
			"op":   "add",
			"path": "/nodes/-",
			"value": map[string]any{
				"id":   fmt.Sprintf("agent-%d", i),
				"kind": "agent",
			},
		})
	}
	assert.NoError(t, Validate(ops))
}
