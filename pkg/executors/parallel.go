package executors

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/executor"
	"github.com/lyzr/orchestrator/pkg/graph"
	"github.com/lyzr/orchestrator/pkg/scheduler"
)

// Parallel runs each declared branch as an independent sub-level, bounded by
// max_concurrency. A branch failure is reported inside that branch's entry
// as {"success": false, ...}; siblings are never cancelled, and the parallel
// node itself always succeeds, so a branch failure alone does not trigger
// the run's failure policy.
func Parallel(ctx context.Context, handle enginetypes.EngineHandle, node *enginetypes.NodeConfig, input map[string]any, registry *executor.Registry) (*enginetypes.NodeExecutionResult, error) {
	if node.Parallel == nil {
		return nil, &enginetypes.ConfigError{Msg: fmt.Sprintf("node %q: missing parallel spec", node.ID)}
	}
	spec := node.Parallel

	maxConcurrency := spec.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = len(spec.BranchNodes)
	}
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	executionID, _ := input["execution_id"].(string)
	workflowID, _ := input["workflow_id"].(string)

	sem := semaphore.NewWeighted(int64(maxConcurrency))
	var mu sync.Mutex
	var wg sync.WaitGroup
	out := make(map[string]any, len(spec.BranchNodes))

	for branchID, bodyNodes := range spec.BranchNodes {
		branchID, bodyNodes := branchID, bodyNodes
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			out[branchID] = map[string]any{"success": false, "error": err.Error()}
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			branchResult := runBranch(ctx, handle, registry, bodyNodes, input, fmt.Sprintf("%s:%s:%s", executionID, node.ID, branchID), workflowID, maxConcurrency)

			mu.Lock()
			out[branchID] = branchResult
			mu.Unlock()
		}()
	}
	wg.Wait()

	return &enginetypes.NodeExecutionResult{Success: true, Output: out}, nil
}

// runBranch executes one parallel branch's body nodes as a sub-graph and
// returns the branch's single leaf output directly, a node_id -> output map
// when the branch succeeded with more than one leaf, or a
// {"success": false, ...} map when any body node failed.
func runBranch(ctx context.Context, handle enginetypes.EngineHandle, registry *executor.Registry, bodyNodes []*enginetypes.NodeConfig, input map[string]any, executionID, workflowID string, maxConcurrency int) any {
	g := graph.New(bodyNodes)
	if err := g.Validate(); err != nil {
		return map[string]any{"success": false, "error": err.Error()}
	}

	sched := scheduler.New(g, registry, handle, scheduler.Options{
		MaxParallel: maxConcurrency,
		ExecutionID: executionID,
		WorkflowID:  workflowID,
	})
	res, err := sched.Run(ctx, input)
	if err != nil {
		return map[string]any{"success": false, "error": err.Error()}
	}

	success := !res.Halted
	for _, r := range res.NodeResults {
		if !r.Success {
			success = false
		}
	}
	if !success {
		return map[string]any{"success": false, "output": bodyOutputs(res.NodeResults)}
	}

	leaves := g.Leaves()
	if len(leaves) == 1 {
		if r, ok := res.NodeResults[leaves[0]]; ok {
			return r.Output
		}
	}
	return bodyOutputs(res.NodeResults)
}
