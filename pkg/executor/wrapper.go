// Package executor implements the Node Executor Wrapper: the cross-cutting
// per-node policy of context persistence, cache lookup, retry/backoff,
// per-attempt timeout, and output validation that every node kind runs
// through regardless of its own behavior (spec.md §4.4, §4.4.1).
package executor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/template"
)

// CacheKey computes the content-addressed cache key for a node invocation
// (spec.md §4.4: "hash(kind, node_id, canonical_json(input_context),
// canonical_json(config_snapshot))").
func CacheKey(kind enginetypes.NodeKind, nodeID string, inputContext map[string]any, configSnapshot *enginetypes.NodeConfig) (string, error) {
	inputJSON, err := canonicalJSON(inputContext)
	if err != nil {
		return "", fmt.Errorf("canonicalizing input_context: %w", err)
	}
	configJSON, err := canonicalJSON(configSnapshot)
	if err != nil {
		return "", fmt.Errorf("canonicalizing config_snapshot: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(nodeID))
	h.Write([]byte{0})
	h.Write(inputJSON)
	h.Write([]byte{0})
	h.Write(configJSON)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// canonicalJSON round-trips v through encoding/json's map-key sort order
// (stable since Go 1.12) to produce a deterministic byte representation.
func canonicalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// ResultsKey is the reserved input key under which Run exposes prior nodes'
// outputs (node_id -> output) to the executor being invoked, so tool_args
// and prompt_template rendering can resolve "result.<node_id>.<path>"
// placeholders (spec.md §4.8) without widening the Executor signature.
// CacheKey and the context store persist input as built by the caller,
// without this key, so caching and stored snapshots stay keyed on the
// node's own declared input_mappings rather than every prior node's output.
const ResultsKey = "__prior_results__"

// Run executes node through the full wrapper policy: cache lookup, the
// retry/backoff/timeout attempt loop, and output-schema validation.
// persistIntermediateOutputs controls whether a successful output is
// additionally written to the context store beyond the input_context write
// Run itself always performs first. priorResults is the
// flattened node_id -> output map of every node that has completed so far
// in this run (e.g. contextbuilder.ResultsAsOutputMap); it may be nil.
func Run(
	ctx context.Context,
	handle enginetypes.EngineHandle,
	node *enginetypes.NodeConfig,
	input map[string]any,
	exec enginetypes.Executor,
	executionID string,
	persistIntermediateOutputs bool,
	priorResults map[string]any,
) (*enginetypes.NodeExecutionResult, error) {
	log := handle.Logger()

	if err := handle.ContextStore().Put(ctx, executionID, node.ID, input); err != nil {
		log.Warn("context store write failed", "node_id", node.ID, "error", err)
	}

	var cacheKey string
	if node.UseCacheOrDefault() && handle.Cache() != nil {
		key, err := CacheKey(node.Kind, node.ID, input, node)
		if err != nil {
			return nil, fmt.Errorf("computing cache key: %w", err)
		}
		cacheKey = key

		if cached, ok, err := handle.Cache().Get(ctx, cacheKey); err == nil && ok && cached.Success {
			log.Debug("cache hit", "node_id", node.ID, "cache_key", cacheKey)
			return cached, nil
		}
	}

	result, lastErr := attemptLoop(ctx, handle, node, input, exec, log, priorResults)

	if result.Success {
		if persistIntermediateOutputs {
			if err := handle.ContextStore().Put(ctx, executionID, node.ID+":output", map[string]any{"output": result.Output}); err != nil {
				log.Warn("context store output write failed", "node_id", node.ID, "error", err)
			}
		}
		if verrs := ValidateOutput(node, result.Output); len(verrs) > 0 {
			result.Success = false
			result.Error = joinErrs(verrs)
			result.Metadata.ErrorType = "ValidationError"
			return result, nil
		}
		if len(node.OutputMappings) > 0 {
			mapped, err := applyOutputMappings(node, result.Output)
			if err != nil {
				log.Warn("output mapping failed", "node_id", node.ID, "error", err)
			} else {
				result.Output = mapped
			}
		}
		if cacheKey != "" {
			if err := handle.Cache().Set(ctx, cacheKey, result); err != nil {
				log.Warn("cache store failed", "node_id", node.ID, "error", err)
			}
		}
	}

	_ = lastErr
	return result, nil
}

func attemptLoop(
	ctx context.Context,
	handle enginetypes.EngineHandle,
	node *enginetypes.NodeConfig,
	input map[string]any,
	exec enginetypes.Executor,
	log enginetypes.Logger,
	priorResults map[string]any,
) (*enginetypes.NodeExecutionResult, error) {
	var lastErr error
	start := time.Now()

	for attempt := 0; attempt <= node.Retries; attempt++ {
		attemptCtx := ctx
		cancel := func() {}
		if node.TimeoutSeconds > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, time.Duration(node.TimeoutSeconds)*time.Second)
		}

		result, err := invoke(attemptCtx, handle, node, input, exec, priorResults)
		cancel()

		if err == nil && result.Success {
			result.Metadata.NodeID = node.ID
			result.Metadata.Kind = node.Kind
			result.Metadata.Name = node.Name
			result.Metadata.StartTime = start
			result.Metadata.EndTime = time.Now()
			result.Metadata.Duration = time.Since(start).Seconds()
			result.Metadata.RetryCount = attempt
			result.ExecutionTime = result.Metadata.Duration
			return result, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("%s", result.Error)
		}

		if attempt < node.Retries {
			log.Debug("node attempt failed, retrying", "node_id", node.ID, "attempt", attempt, "error", lastErr)
			backoff := time.Duration(node.BackoffSeconds * math.Pow(2, float64(attempt)) * float64(time.Second))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = node.Retries + 1
			}
		}
	}

	errType := "UnknownError"
	if te, ok := lastErr.(*enginetypes.TimeoutError); ok {
		_ = te
		errType = "TimeoutError"
	} else if lastErr != nil {
		errType = fmt.Sprintf("%T", lastErr)
	}

	return &enginetypes.NodeExecutionResult{
		Success: false,
		Error:   fmt.Sprintf("Retry limit exceeded (%d) – last error: %v", node.Retries, lastErr),
		Metadata: enginetypes.NodeMetadata{
			NodeID:     node.ID,
			Kind:       node.Kind,
			Name:       node.Name,
			StartTime:  start,
			EndTime:    time.Now(),
			Duration:   time.Since(start).Seconds(),
			ErrorType:  errType,
			RetryCount: node.Retries,
		},
		ExecutionTime: time.Since(start).Seconds(),
	}, lastErr
}

// invokeResult carries exec's return values across the goroutine boundary in
// invoke, so the timeout path never reads state the background goroutine is
// still writing.
type invokeResult struct {
	result *enginetypes.NodeExecutionResult
	err    error
}

func invoke(ctx context.Context, handle enginetypes.EngineHandle, node *enginetypes.NodeConfig, input map[string]any, exec enginetypes.Executor, priorResults map[string]any) (*enginetypes.NodeExecutionResult, error) {
	execInput := input
	if len(priorResults) > 0 {
		execInput = make(map[string]any, len(input)+1)
		for k, v := range input {
			execInput[k] = v
		}
		execInput[ResultsKey] = priorResults
	}

	done := make(chan invokeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- invokeResult{
					result: &enginetypes.NodeExecutionResult{Success: false, Error: fmt.Sprintf("panic: %v", r)},
					err:    fmt.Errorf("executor panicked: %v", r),
				}
			}
		}()
		res, err := exec(ctx, handle, node, execInput)
		done <- invokeResult{result: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return &enginetypes.NodeExecutionResult{Success: false, Error: out.err.Error()}, out.err
		}
		return out.result, nil
	case <-ctx.Done():
		// done is buffered, so the goroutine's eventual send never blocks and
		// the goroutine is free to exit once exec returns.
		return &enginetypes.NodeExecutionResult{Success: false, Error: "timeout"}, &enginetypes.TimeoutError{Msg: fmt.Sprintf("node %q exceeded timeout", node.ID)}
	}
}

// applyOutputMappings resolves node.OutputMappings (alias_name -> dotted
// path into the node's own output) and publishes the aliases alongside the
// original output, applied after validation and before caching so a cache
// hit already carries the published aliases (spec.md §9 Open Question:
// "exact semantics of output_mappings at the engine vs. executor boundary" —
// resolved here, at the wrapper, so every executor gets it uniformly).
// Output that is already a map gets the aliases merged in as extra keys
// (original keys win on collision); any other output shape is wrapped as
// {"value": <original>, <alias>: <resolved>, ...}.
func applyOutputMappings(node *enginetypes.NodeConfig, output any) (any, error) {
	merged := make(map[string]any, len(node.OutputMappings)+1)
	if asMap, ok := output.(map[string]any); ok {
		for k, v := range asMap {
			merged[k] = v
		}
	} else {
		merged["value"] = output
	}

	for alias, path := range node.OutputMappings {
		if _, exists := merged[alias]; exists {
			continue
		}
		v, err := template.ResolvePath(output, path)
		if err != nil {
			return nil, fmt.Errorf("resolving output_mappings[%q]=%q: %w", alias, path, err)
		}
		merged[alias] = v
	}
	return merged, nil
}

func joinErrs(errs []string) string {
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += e
	}
	return out
}
