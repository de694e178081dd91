package executor

import (
	"fmt"
	"math"
	"reflect"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
)

// ValidateOutput checks output against node.OutputSchema, a dict schema of
// {field -> expected_type_or_name} (spec.md §4.4.1). Returns the collected
// list of errors; an empty slice means valid.
func ValidateOutput(node *enginetypes.NodeConfig, output any) []string {
	if len(node.OutputSchema) == 0 {
		return nil
	}

	asMap, ok := output.(map[string]any)
	if !ok {
		return []string{fmt.Sprintf("output is not an object, cannot validate against output_schema (got %T)", output)}
	}

	var errs []string
	for field, expectedType := range node.OutputSchema {
		v, present := asMap[field]
		if !present {
			errs = append(errs, fmt.Sprintf("output missing required field %q", field))
			continue
		}
		if !typeMatches(v, expectedType) {
			errs = append(errs, fmt.Sprintf("output field %q: expected %q, got %T", field, expectedType, v))
		}
	}
	return errs
}

func typeMatches(v any, expected string) bool {
	if v == nil {
		return expected == "null" || expected == "any"
	}
	switch expected {
	case "string":
		_, ok := v.(string)
		return ok
	case "int", "integer":
		switch n := v.(type) {
		case float64:
			return n == math.Trunc(n)
		case int, int64:
			return true
		}
		return false
	case "number", "float":
		switch v.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case "bool", "boolean":
		_, ok := v.(bool)
		return ok
	case "object", "map":
		return reflect.TypeOf(v).Kind() == reflect.Map
	case "array", "list":
		return reflect.TypeOf(v).Kind() == reflect.Slice
	case "any":
		return true
	default:
		// Unknown schema type names pass through; treated like "any" so a
		// forward-compatible schema vocabulary doesn't break validation.
		return true
	}
}
