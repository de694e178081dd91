// Package engine is the Chain Entry Point (spec.md §4.10): it validates a
// workflow document, builds its dependency graph, drives the Level
// Scheduler to completion, and assembles the final WorkflowResult. It also
// supplies the enginetypes.EngineHandle every executor runs against, closing
// the loop for nested_workflow nodes via Handle.RunNested.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lyzr/orchestrator/pkg/config"
	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/executor"
	"github.com/lyzr/orchestrator/pkg/graph"
	"github.com/lyzr/orchestrator/pkg/scheduler"
)

// Dependencies bundles the collaborators an Engine's Handle exposes to
// executors (spec.md §6.1-§6.5). Memory and WorkflowRegistry may be nil when
// the corresponding feature is disabled for this deployment.
type Dependencies struct {
	ContextStore  enginetypes.ContextStore
	Cache         enginetypes.Cache
	ToolRegistry  enginetypes.ToolRegistry
	AgentRegistry enginetypes.AgentRegistry
	LLMService    enginetypes.LLMService
	Memory        enginetypes.MemoryAccessor
	Logger        enginetypes.Logger
	Registry      enginetypes.WorkflowRegistry
}

// Engine drives workflow validation and execution end to end.
type Engine struct {
	registry *executor.Registry
	handle   *handle
	opts     config.EngineConfig
}

// New wires an Engine around deps and executors.BuildRegistry()'s node-kind
// dispatch table. opts supplies the engine options applied to every Run
// (spec.md §6.9); Run takes no per-call overrides.
func New(opts config.EngineConfig, deps Dependencies, nodeRegistry *executor.Registry) *Engine {
	e := &Engine{registry: nodeRegistry, opts: opts}
	e.handle = &handle{deps: deps, engine: e}
	return e
}

// Handle returns the enginetypes.EngineHandle executors run against, for
// callers that need to hand it to something other than this Engine (e.g. an
// HTTP layer resolving a workflow from the registry before calling Run).
func (e *Engine) Handle() enginetypes.EngineHandle { return e.handle }

// Validate performs the full pre-run validation pipeline: per-node
// structural checks, body-subgraph resolution, and DAG validation over the
// top-level graph (spec.md §4.1, §9). It mutates wf in place (resolving
// BodyNodes/BranchNodes/ResolvedBodyNode), so callers should Validate once
// after load/deserialize and reuse the same *WorkflowSpec for every Run.
func (e *Engine) Validate(wf *enginetypes.WorkflowSpec) error {
	if err := wf.Validate(); err != nil {
		return err
	}
	for _, n := range wf.Nodes {
		if n.Version == "" {
			return &enginetypes.ConfigError{Msg: fmt.Sprintf("node %q is missing version metadata", n.ID)}
		}
	}
	if err := wf.ResolveBodySubgraphs(); err != nil {
		return err
	}
	g := graph.New(wf.TopLevelNodes())
	if err := g.Validate(); err != nil {
		return err
	}
	if e.opts.ValidateOutputs {
		warnings, err := g.ValidateSchemaAlignment(false)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			e.handle.deps.Logger.Warn("schema alignment warning", "node_id", w.NodeID, "placeholder", w.Placeholder, "detail", w.Msg)
		}
	}
	return nil
}

// Run validates wf (on every call) and executes it to completion under a
// freshly minted execution id.
func (e *Engine) Run(ctx context.Context, wf *enginetypes.WorkflowSpec, initialContext map[string]any) (*enginetypes.WorkflowResult, error) {
	if err := e.Validate(wf); err != nil {
		return nil, err
	}
	return e.run(ctx, wf, initialContext, uuid.NewString())
}

func (e *Engine) run(ctx context.Context, wf *enginetypes.WorkflowSpec, initialContext map[string]any, executionID string) (*enginetypes.WorkflowResult, error) {
	start := time.Now()

	g := graph.New(wf.TopLevelNodes())
	if err := g.Validate(); err != nil {
		return nil, err
	}

	sched := scheduler.New(g, e.registry, e.handle, scheduler.Options{
		MaxParallel:                e.opts.MaxParallel,
		PersistIntermediateOutputs: e.opts.PersistIntermediateOutputs,
		FailurePolicy:              scheduler.FailurePolicy(e.opts.FailurePolicy),
		TokenCeiling:               e.opts.TokenCeiling,
		DepthCeiling:               e.opts.DepthCeiling,
		ExecutionID:                executionID,
		WorkflowID:                 wf.BlueprintID,
	})

	result, err := sched.Run(ctx, initialContext)
	if err != nil {
		return nil, fmt.Errorf("running workflow %q: %w", wf.BlueprintID, err)
	}

	finalNodeID := ""
	if leaves := g.Leaves(); len(leaves) > 0 {
		finalNodeID = leaves[0]
	}

	success := !result.Halted && len(result.Errors) == 0
	end := time.Now()

	return &enginetypes.WorkflowResult{
		Success: success,
		Output:  result.NodeResults,
		Error:   strings.Join(result.Errors, "; "),
		Metadata: enginetypes.WorkflowResultMetadata{
			FinalNodeID: finalNodeID,
			StartTime:   start,
			EndTime:     end,
			Duration:    end.Sub(start).Seconds(),
		},
		ChainMetadata: &enginetypes.ChainMetadata{
			ChainID:      executionID,
			Name:         wf.Name,
			Version:      wf.Version,
			NodeCount:    g.NodeCount(),
			EdgeCount:    g.EdgeCount(),
			TopologyHash: g.TopologyHash(),
			CreatedAt:    start,
		},
		ExecutionTime: end.Sub(start).Seconds(),
		TokenStats:    result.TokenStats,
	}, nil
}

// handle is the concrete enginetypes.EngineHandle every executor runs
// against. It forwards RunNested back through its owning Engine so a nested
// workflow gets the same registry, cache, and guard defaults under an
// isolated execution id (spec.md §4.8 Nested Workflow).
type handle struct {
	deps   Dependencies
	engine *Engine
}

var _ enginetypes.EngineHandle = (*handle)(nil)

func (h *handle) ContextStore() enginetypes.ContextStore     { return h.deps.ContextStore }
func (h *handle) Cache() enginetypes.Cache                   { return h.deps.Cache }
func (h *handle) ToolRegistry() enginetypes.ToolRegistry     { return h.deps.ToolRegistry }
func (h *handle) AgentRegistry() enginetypes.AgentRegistry   { return h.deps.AgentRegistry }
func (h *handle) LLMService() enginetypes.LLMService         { return h.deps.LLMService }
func (h *handle) Memory() enginetypes.MemoryAccessor         { return h.deps.Memory }
func (h *handle) Logger() enginetypes.Logger                 { return h.deps.Logger }
func (h *handle) WorkflowRegistry() enginetypes.WorkflowRegistry { return h.deps.Registry }

// RunNested executes wf to completion sharing this engine's registry, cache,
// and guard defaults, but under its own freshly minted execution id so its
// context-store writes and cache keys never collide with the parent run's.
func (h *handle) RunNested(ctx context.Context, wf *enginetypes.WorkflowSpec, initialContext map[string]any) (*enginetypes.WorkflowResult, error) {
	if err := wf.ResolveBodySubgraphs(); err != nil {
		return nil, err
	}
	return h.engine.run(ctx, wf, initialContext, uuid.NewString())
}
