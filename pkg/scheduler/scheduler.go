// Package scheduler implements the Level Scheduler (spec.md §4.6): per-level
// depth guarding, active-node filtering via branch gating, weighted
// concurrency admission, concurrent node dispatch through the Node Executor
// Wrapper, and failure-policy evaluation.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/lyzr/orchestrator/pkg/contextbuilder"
	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/executor"
	"github.com/lyzr/orchestrator/pkg/graph"
	"github.com/lyzr/orchestrator/pkg/guardrails"
	"github.com/lyzr/orchestrator/pkg/metrics"
)

// Options configures a single Run (spec.md §6.9 EngineConfig fields plus
// the guard callbacks from §6.8).
type Options struct {
	MaxParallel                int
	PersistIntermediateOutputs bool
	FailurePolicy               FailurePolicy
	TokenCeiling                *int
	DepthCeiling                *int
	ExecutionID                 string
	WorkflowID                  string
	TokenGuard                  func(totalTokens int, ceiling *int) bool
	DepthGuard                  func(levelIndex int, ceiling *int) bool
}

// Result is the scheduler's output for one Run: the accumulated per-node
// results plus the final aggregate usage, suitable for assembly into a
// WorkflowResult by the engine entry point.
type Result struct {
	NodeResults map[string]*enginetypes.NodeExecutionResult
	TokenStats  enginetypes.TokenStats
	Errors      []string
	Halted      bool
}

// Scheduler drives one workflow run's level-by-level execution.
type Scheduler struct {
	graph    *graph.DependencyGraph
	registry *executor.Registry
	handle   enginetypes.EngineHandle
	opts     Options
}

// New returns a Scheduler for g, dispatching via registry against handle.
func New(g *graph.DependencyGraph, registry *executor.Registry, handle enginetypes.EngineHandle, opts Options) *Scheduler {
	if opts.TokenGuard == nil {
		opts.TokenGuard = guardrails.TokenGuard
	}
	if opts.DepthGuard == nil {
		opts.DepthGuard = guardrails.DepthGuard
	}
	if opts.MaxParallel < 1 {
		opts.MaxParallel = 1
	}
	return &Scheduler{graph: g, registry: registry, handle: handle, opts: opts}
}

// Run executes every level of the graph in ascending order and returns the
// accumulated results.
func (s *Scheduler) Run(ctx context.Context, initialContext map[string]any) (*Result, error) {
	gate := newBranchGate()
	// Register every condition node's branch membership up front so
	// isActive can consult it regardless of which level a dependent sits at.
	for lvl := 0; lvl <= s.graph.MaxLevel(); lvl++ {
		for _, id := range s.graph.Levels()[lvl] {
			node, _ := s.graph.Node(id)
			if node.Kind == enginetypes.KindCondition {
				gate.registerCondition(id, node.Condition.TrueBranch, node.Condition.FalseBranch)
			}
		}
	}

	results := make(map[string]*enginetypes.NodeExecutionResult)
	agg := metrics.NewAggregator()
	var accumulatedErrors []string
	dependencies := dependenciesIndex(s.graph)

	for level := 0; level <= s.graph.MaxLevel(); level++ {
		if !s.opts.DepthGuard(level, s.opts.DepthCeiling) || (s.opts.DepthCeiling != nil && level > *s.opts.DepthCeiling) {
			accumulatedErrors = append(accumulatedErrors, fmt.Sprintf("depth ceiling exceeded at level %d", level))
			return &Result{NodeResults: results, TokenStats: agg.Snapshot(), Errors: accumulatedErrors, Halted: true}, nil
		}

		ids := activeNodeIDs(s.graph.Levels()[level], gate, dependencies)

		levelResults, levelErr := s.runLevel(ctx, ids, results, initialContext)
		for id, r := range levelResults {
			results[id] = r
		}

		hadFailures := false
		for _, id := range ids {
			r := results[id]
			if r == nil {
				continue
			}
			if !r.Success {
				hadFailures = true
				accumulatedErrors = append(accumulatedErrors, fmt.Sprintf("node %q: %s", id, r.Error))
			} else if r.Usage != nil {
				agg.Record(id, r.Usage)
			}
		}
		if levelErr != nil {
			accumulatedErrors = append(accumulatedErrors, levelErr.Error())
			hadFailures = true
		}

		if !s.opts.TokenGuard(agg.TotalTokens(), s.opts.TokenCeiling) {
			accumulatedErrors = append(accumulatedErrors, "Token ceiling exceeded")
			return &Result{NodeResults: results, TokenStats: agg.Snapshot(), Errors: accumulatedErrors, Halted: true}, nil
		}

		for _, id := range ids {
			node, _ := s.graph.Node(id)
			if node.Kind != enginetypes.KindCondition {
				continue
			}
			r := results[id]
			if r == nil || !r.Success {
				continue
			}
			decision, ok := asBoolResult(r.Output)
			if ok {
				gate.recordDecision(id, decision)
			}
		}

		policy := s.opts.FailurePolicy
		if policy == "" {
			policy = PolicyContinuePossible
		}
		if hadFailures {
			remaining := remainingRunnable(s.graph, level, results, gate, dependencies)
			if !shouldContinue(policy, hadFailures, remaining) {
				return &Result{NodeResults: results, TokenStats: agg.Snapshot(), Errors: accumulatedErrors, Halted: true}, nil
			}
		}
	}

	return &Result{NodeResults: results, TokenStats: agg.Snapshot(), Errors: accumulatedErrors}, nil
}

// runLevel admits and executes every active node id at a level concurrently,
// bounded by a weighted semaphore of capacity MaxParallel (spec.md §4.6).
func (s *Scheduler) runLevel(ctx context.Context, ids []string, priorResults map[string]*enginetypes.NodeExecutionResult, initialContext map[string]any) (map[string]*enginetypes.NodeExecutionResult, error) {
	out := make(map[string]*enginetypes.NodeExecutionResult, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	sem := semaphore.NewWeighted(int64(s.opts.MaxParallel))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, id := range ids {
		node, ok := s.graph.Node(id)
		if !ok {
			continue
		}
		weight := int64(EstimatedComplexity(node))
		if weight > int64(s.opts.MaxParallel) {
			weight = int64(s.opts.MaxParallel)
		}

		if err := sem.Acquire(ctx, weight); err != nil {
			mu.Lock()
			out[id] = &enginetypes.NodeExecutionResult{Success: false, Error: err.Error(), Metadata: enginetypes.NodeMetadata{NodeID: id, Kind: node.Kind}}
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(node *enginetypes.NodeConfig, weight int64) {
			defer wg.Done()
			defer sem.Release(weight)

			result := s.runOne(ctx, node, priorResults, initialContext)

			mu.Lock()
			out[node.ID] = result
			mu.Unlock()
		}(node, weight)
	}

	wg.Wait()
	return out, nil
}

// runOne builds a node's input context and runs it through the Node
// Executor Wrapper, converting any per-node panic/error into a failed
// result so siblings at the level can still complete (spec.md §4.6.5).
func (s *Scheduler) runOne(ctx context.Context, node *enginetypes.NodeConfig, priorResults map[string]*enginetypes.NodeExecutionResult, initialContext map[string]any) *enginetypes.NodeExecutionResult {
	input, err := contextbuilder.Build(node, priorResults, contextbuilder.EngineFields{
		WorkflowID:  s.opts.WorkflowID,
		NodeID:      node.ID,
		ExecutionID: s.opts.ExecutionID,
	})
	if err != nil {
		return &enginetypes.NodeExecutionResult{
			Success: false,
			Error:   err.Error(),
			Metadata: enginetypes.NodeMetadata{
				NodeID:    node.ID,
				Kind:      node.Kind,
				Name:      node.Name,
				ErrorType: "DependencyError",
			},
		}
	}
	for k, v := range initialContext {
		if _, exists := input[k]; !exists {
			input[k] = v
		}
	}

	exec, ok := s.registry.Get(node.Kind)
	if !ok {
		return &enginetypes.NodeExecutionResult{
			Success: false,
			Error:   fmt.Sprintf("no executor registered for kind %q", node.Kind),
			Metadata: enginetypes.NodeMetadata{NodeID: node.ID, Kind: node.Kind, Name: node.Name, ErrorType: "ConfigError"},
		}
	}

	result, err := executor.Run(ctx, s.handle, node, input, exec, s.opts.ExecutionID, s.opts.PersistIntermediateOutputs, contextbuilder.ResultsAsOutputMap(priorResults))
	if err != nil {
		return &enginetypes.NodeExecutionResult{
			Success: false,
			Error:   err.Error(),
			Metadata: enginetypes.NodeMetadata{NodeID: node.ID, Kind: node.Kind, Name: node.Name, ErrorType: fmt.Sprintf("%T", err)},
		}
	}
	return result
}

func asBoolResult(output any) (bool, bool) {
	m, ok := output.(map[string]any)
	if !ok {
		return false, false
	}
	b, ok := m["result"].(bool)
	return b, ok
}

func dependenciesIndex(g *graph.DependencyGraph) map[string][]string {
	out := make(map[string][]string)
	for lvl := 0; lvl <= g.MaxLevel(); lvl++ {
		for _, id := range g.Levels()[lvl] {
			out[id] = g.Dependencies(id)
		}
	}
	return out
}

func activeNodeIDs(ids []string, gate *branchGate, dependencies map[string][]string) []string {
	active := make([]string, 0, len(ids))
	for _, id := range ids {
		if gate.isActive(id, dependencies) {
			active = append(active, id)
		}
	}
	sort.Strings(active) // deterministic ordering for tests; execution itself is concurrent
	return active
}

// remainingRunnable reports whether, among levels after the current one,
// any node has all of its transitive dependencies already successful
// (spec.md §4.7 CONTINUE_POSSIBLE).
func remainingRunnable(g *graph.DependencyGraph, currentLevel int, results map[string]*enginetypes.NodeExecutionResult, gate *branchGate, dependencies map[string][]string) bool {
	for lvl := currentLevel + 1; lvl <= g.MaxLevel(); lvl++ {
		for _, id := range g.Levels()[lvl] {
			if !gate.isActive(id, dependencies) {
				continue
			}
			if allDepsSucceeded(id, dependencies, results) {
				return true
			}
		}
	}
	return false
}

func allDepsSucceeded(id string, dependencies map[string][]string, results map[string]*enginetypes.NodeExecutionResult) bool {
	for _, dep := range dependencies[id] {
		r, ok := results[dep]
		if !ok || !r.Success {
			return false
		}
	}
	return true
}
