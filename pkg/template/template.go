// Package template implements the dotted-path resolution grammar and the
// "{{ path }}" templating engine used by the Context Builder and by the
// tool/llm executors (spec.md §4.2, §4.8, §9: "seg := ident | int_index").
// Path navigation is delegated to gjson, the same library the teacher's
// resolver.go uses to pull fields out of a prior node's JSON output
// (cmd/workflow-runner/resolver/resolver.go).
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// ResolvePath navigates a dotted path into data, where a segment indexes a
// mapping by key or a sequence by integer index. The empty path or "."
// yields the whole value unchanged.
func ResolvePath(data any, path string) (any, error) {
	if path == "" || path == "." {
		return data, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshaling value for path resolution: %w", err)
	}

	result := gjson.GetBytes(raw, path)
	if !result.Exists() {
		return nil, fmt.Errorf("path %q not found", path)
	}
	return result.Value(), nil
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([^}]+?)\s*\}\}`)

// Scope composes the input context with a "result.<node_id>.<path>"
// namespace over prior results, as required for tool_args/prompt_template
// rendering (spec.md §4.8).
type Scope struct {
	Input   map[string]any
	Results map[string]any // node_id -> output
}

// resolveExpr resolves a single "{{ ... }}" expression body against scope.
// Supported forms: "result.<node_id>.<path>" and "<input_key>.<path>".
func (s Scope) resolveExpr(expr string) (any, error) {
	expr = strings.TrimSpace(expr)
	if rest, ok := strings.CutPrefix(expr, "result."); ok {
		parts := strings.SplitN(rest, ".", 2)
		nodeID := parts[0]
		path := ""
		if len(parts) == 2 {
			path = parts[1]
		}
		out, ok := s.Results[nodeID]
		if !ok {
			return nil, fmt.Errorf("no result for node %q", nodeID)
		}
		return ResolvePath(out, path)
	}

	parts := strings.SplitN(expr, ".", 2)
	key := parts[0]
	path := ""
	if len(parts) == 2 {
		path = parts[1]
	}
	val, ok := s.Input[key]
	if !ok {
		return nil, fmt.Errorf("no input key %q", key)
	}
	return ResolvePath(val, path)
}

// RenderString substitutes every "{{ path }}" occurrence in str, converting
// resolved values to their string form (JSON-encoding complex types).
func RenderString(s Scope, str string) (string, error) {
	var firstErr error
	out := placeholderRe.ReplaceAllStringFunc(str, func(match string) string {
		if firstErr != nil {
			return match
		}
		sub := placeholderRe.FindStringSubmatch(match)
		val, err := s.resolveExpr(sub[1])
		if err != nil {
			firstErr = fmt.Errorf("resolving %q: %w", match, err)
			return match
		}
		return stringify(val)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// RenderValue recursively renders templates inside strings, maps, and
// slices — used for tool_args (spec.md §4.8: "tool_args templates ...
// string templating").
func RenderValue(s Scope, v any) (any, error) {
	switch val := v.(type) {
	case string:
		// A value that IS exactly one placeholder resolves to the
		// underlying typed value rather than its stringified form, so
		// numeric/bool/object tool args survive templating.
		if m := placeholderRe.FindStringSubmatch(val); m != nil && strings.TrimSpace(val) == m[0] {
			return s.resolveExpr(m[1])
		}
		return RenderString(s, val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			rv, err := RenderValue(s, v2)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, v2 := range val {
			rv, err := RenderValue(s, v2)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
