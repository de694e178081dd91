package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
)

func TestValidateOutputNoSchemaAlwaysValid(t *testing.T) {
	node := &enginetypes.NodeConfig{}
	assert.Empty(t, ValidateOutput(node, "anything"))
}

func TestValidateOutputMissingField(t *testing.T) {
	node := &enginetypes.NodeConfig{OutputSchema: map[string]string{"name": "string"}}
	errs := ValidateOutput(node, map[string]any{})
	assert.Len(t, errs, 1)
}

func TestValidateOutputTypeMismatch(t *testing.T) {
	node := &enginetypes.NodeConfig{OutputSchema: map[string]string{"count": "int"}}
	errs := ValidateOutput(node, map[string]any{"count": "five"})
	assert.Len(t, errs, 1)
}

func TestValidateOutputPasses(t *testing.T) {
	node := &enginetypes.NodeConfig{OutputSchema: map[string]string{
		"count": "int", "name": "string", "active": "bool", "tags": "array",
	}}
	errs := ValidateOutput(node, map[string]any{
		"count": float64(3), "name": "x", "active": true, "tags": []any{"a"},
	})
	assert.Empty(t, errs)
}

func TestValidateOutputNotAnObject(t *testing.T) {
	node := &enginetypes.NodeConfig{OutputSchema: map[string]string{"x": "string"}}
	errs := ValidateOutput(node, 42)
	assert.Len(t, errs, 1)
}
