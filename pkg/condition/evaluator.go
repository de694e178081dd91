// Package condition evaluates a condition node's boolean expression in a
// sandboxed mini-language: boolean/arithmetic/relational operators,
// member/index access, string concatenation, no I/O, no assignment
// (spec.md §4.8). CEL (github.com/google/cel-go) supplies exactly that
// sandbox, adapted from cmd/workflow-runner/condition/evaluator.go.
package condition

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
)

// Evaluator compiles and caches CEL programs keyed by their normalized
// expression text.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewEvaluator returns an Evaluator with an empty compile cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{cache: make(map[string]cel.Program)}
}

// Evaluate runs a condition node's expression against its resolved input
// context and returns the boolean result. A JSONPath-style "$.field" prefix
// is accepted and normalized to "input.field" for ergonomics.
func (e *Evaluator) Evaluate(expression string, input map[string]any) (bool, error) {
	if expression == "" {
		return false, &enginetypes.ExpressionError{Msg: "empty expression"}
	}

	normalized := strings.ReplaceAll(expression, "$.", "input.")

	prg, err := e.program(normalized)
	if err != nil {
		return false, &enginetypes.ExpressionError{Msg: err.Error()}
	}

	out, _, err := prg.Eval(map[string]any{"input": input})
	if err != nil {
		return false, &enginetypes.ExpressionError{Msg: fmt.Sprintf("evaluation failed: %v", err)}
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, &enginetypes.ExpressionError{Msg: fmt.Sprintf("expression did not return a boolean, got %T", out.Value())}
	}
	return result, nil
}

func (e *Evaluator) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.cache[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	prg, err := compile(expr)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expr] = prg
	e.mu.Unlock()
	return prg, nil
}

func compile(expr string) (cel.Program, error) {
	env, err := cel.NewEnv(cel.Variable("input", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("creating CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compiling expression %q: %w", expr, issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("building CEL program for %q: %w", expr, err)
	}
	return prg, nil
}

// ClearCache drops every compiled program. Exposed for tests.
func (e *Evaluator) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]cel.Program)
}

// CacheSize reports the number of distinct compiled expressions currently
// cached. Exposed for tests.
func (e *Evaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}
