package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/orchestrator/pkg/cache"
	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/executor"
	"github.com/lyzr/orchestrator/pkg/graph"
)

type memContextStore struct{ data map[string]map[string]any }

func newMemContextStore() *memContextStore { return &memContextStore{data: make(map[string]map[string]any)} }

func (s *memContextStore) Put(_ context.Context, executionID, nodeID string, content map[string]any) error {
	s.data[executionID+":"+nodeID] = content
	return nil
}

func (s *memContextStore) Get(_ context.Context, executionID, nodeID string) (map[string]any, bool, error) {
	v, ok := s.data[executionID+":"+nodeID]
	return v, ok, nil
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}

type fakeHandle struct {
	contextStore enginetypes.ContextStore
	cache        enginetypes.Cache
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{contextStore: newMemContextStore(), cache: cache.NewMemoryCache(time.Minute, nil)}
}

func (h *fakeHandle) ContextStore() enginetypes.ContextStore  { return h.contextStore }
func (h *fakeHandle) Cache() enginetypes.Cache                { return h.cache }
func (h *fakeHandle) ToolRegistry() enginetypes.ToolRegistry   { return nil }
func (h *fakeHandle) AgentRegistry() enginetypes.AgentRegistry { return nil }
func (h *fakeHandle) LLMService() enginetypes.LLMService       { return nil }
func (h *fakeHandle) Memory() enginetypes.MemoryAccessor        { return nil }
func (h *fakeHandle) Logger() enginetypes.Logger                { return noopLogger{} }
func (h *fakeHandle) WorkflowRegistry() enginetypes.WorkflowRegistry { return nil }
func (h *fakeHandle) RunNested(ctx context.Context, wf *enginetypes.WorkflowSpec, initialContext map[string]any) (*enginetypes.WorkflowResult, error) {
	return nil, nil
}

func toolEcho(_ context.Context, _ enginetypes.EngineHandle, node *enginetypes.NodeConfig, input map[string]any) (*enginetypes.NodeExecutionResult, error) {
	return &enginetypes.NodeExecutionResult{Success: true, Output: map[string]any{"node": node.ID}}, nil
}

func registryWithTool(f enginetypes.Executor) *executor.Registry {
	r := executor.NewRegistry()
	r.Register(enginetypes.KindTool, f)
	r.Register(enginetypes.KindCondition, func(_ context.Context, _ enginetypes.EngineHandle, node *enginetypes.NodeConfig, input map[string]any) (*enginetypes.NodeExecutionResult, error) {
		return &enginetypes.NodeExecutionResult{Success: true, Output: map[string]any{"result": true}}, nil
	})
	return r
}

func toolNode(id string, deps ...string) *enginetypes.NodeConfig {
	return &enginetypes.NodeConfig{ID: id, Kind: enginetypes.KindTool, Dependencies: deps, Tool: &enginetypes.ToolNodeSpec{ToolName: "echo"}}
}

func TestSchedulerRunsLinearChain(t *testing.T) {
	nodes := []*enginetypes.NodeConfig{
		toolNode("a"),
		toolNode("b", "a"),
		toolNode("c", "b"),
	}
	g := graph.New(nodes)
	require.NoError(t, g.Validate())

	s := New(g, registryWithTool(toolEcho), newFakeHandle(), Options{MaxParallel: 5, ExecutionID: "e1"})
	result, err := s.Run(context.Background(), map[string]any{})
	require.NoError(t, err)

	assert.Len(t, result.NodeResults, 3)
	assert.True(t, result.NodeResults["c"].Success)
}

func TestSchedulerBranchGatingDisablesFalseBranch(t *testing.T) {
	cond := &enginetypes.NodeConfig{
		ID:   "gate",
		Kind: enginetypes.KindCondition,
		Condition: &enginetypes.ConditionNodeSpec{
			Expression:  "true",
			TrueBranch:  []string{"onTrue"},
			FalseBranch: []string{"onFalse"},
		},
	}
	onTrue := toolNode("onTrue", "gate")
	onFalse := toolNode("onFalse", "gate")

	g := graph.New([]*enginetypes.NodeConfig{cond, onTrue, onFalse})
	require.NoError(t, g.Validate())

	s := New(g, registryWithTool(toolEcho), newFakeHandle(), Options{MaxParallel: 5, ExecutionID: "e1"})
	result, err := s.Run(context.Background(), map[string]any{})
	require.NoError(t, err)

	_, ranFalse := result.NodeResults["onFalse"]
	assert.False(t, ranFalse)
	_, ranTrue := result.NodeResults["onTrue"]
	assert.True(t, ranTrue)
}

func TestSchedulerHaltsOnFirstFailureUnderHaltPolicy(t *testing.T) {
	var calls int32
	failing := func(_ context.Context, _ enginetypes.EngineHandle, node *enginetypes.NodeConfig, _ map[string]any) (*enginetypes.NodeExecutionResult, error) {
		atomic.AddInt32(&calls, 1)
		if node.ID == "a" {
			return &enginetypes.NodeExecutionResult{Success: false, Error: "boom"}, nil
		}
		return &enginetypes.NodeExecutionResult{Success: true, Output: map[string]any{}}, nil
	}

	nodes := []*enginetypes.NodeConfig{toolNode("a"), toolNode("b", "a")}
	g := graph.New(nodes)
	require.NoError(t, g.Validate())

	s := New(g, registryWithTool(failing), newFakeHandle(), Options{MaxParallel: 5, ExecutionID: "e1", FailurePolicy: PolicyHalt})
	result, err := s.Run(context.Background(), map[string]any{})
	require.NoError(t, err)

	assert.True(t, result.Halted)
	_, ranB := result.NodeResults["b"]
	assert.False(t, ranB)
}

func TestSchedulerTokenCeilingStopsRun(t *testing.T) {
	usageTool := func(_ context.Context, _ enginetypes.EngineHandle, node *enginetypes.NodeConfig, _ map[string]any) (*enginetypes.NodeExecutionResult, error) {
		return &enginetypes.NodeExecutionResult{
			Success: true,
			Output:  map[string]any{},
			Usage:   &enginetypes.UsageMetadata{TotalTokens: 100},
		}, nil
	}

	nodes := []*enginetypes.NodeConfig{toolNode("a"), toolNode("b", "a")}
	g := graph.New(nodes)
	require.NoError(t, g.Validate())

	ceiling := 50
	s := New(g, registryWithTool(usageTool), newFakeHandle(), Options{MaxParallel: 5, ExecutionID: "e1", TokenCeiling: &ceiling})
	result, err := s.Run(context.Background(), map[string]any{})
	require.NoError(t, err)

	assert.True(t, result.Halted)
	assert.Contains(t, result.Errors, "Token ceiling exceeded")
	_, ranB := result.NodeResults["b"]
	assert.False(t, ranB)
}
