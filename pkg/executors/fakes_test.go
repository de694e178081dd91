package executors

import (
	"context"
	"fmt"
	"time"

	"github.com/lyzr/orchestrator/pkg/cache"
	"github.com/lyzr/orchestrator/pkg/enginetypes"
)

type memContextStore struct {
	data map[string]map[string]any
}

func newMemContextStore() *memContextStore {
	return &memContextStore{data: make(map[string]map[string]any)}
}

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

type fakeToolRegistry struct {
	tools map[string]enginetypes.Tool
}

func (r *fakeToolRegistry) Get(name string) (enginetypes.Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

type echoTool struct{ name string }

func (t *echoTool) Name() string { return t.name }
func (t *echoTool) Run(_ context.Context, args map[string]any) (any, error) {
	return args, nil
}
func (t *echoTool) InputSchema() map[string]string  { return map[string]string{"x": "any"} }
func (t *echoTool) OutputSchema() map[string]string { return nil }

type failingTool struct{ name string }

func (t *failingTool) Name() string                               { return t.name }
func (t *failingTool) Run(_ context.Context, _ map[string]any) (any, error) { return nil, fmt.Errorf("boom") }
func (t *failingTool) InputSchema() map[string]string             { return nil }
func (t *failingTool) OutputSchema() map[string]string            { return nil }

type fakeAgentRegistry struct {
	agents map[string]enginetypes.Agent
}

func (r *fakeAgentRegistry) Get(pkg string) (enginetypes.Agent, bool) {
	a, ok := r.agents[pkg]
	return a, ok
}

// scriptedLLM returns queued responses in order, one per Generate call.
type scriptedLLM struct {
	responses []enginetypes.GenerateResult
	calls     int

	lastPrompt  string
	lastContext map[string]any
}

func (l *scriptedLLM) Generate(_ context.Context, _ enginetypes.LLMConfig, prompt string, ctx map[string]any, _ []enginetypes.ToolRef, _ time.Duration) (*enginetypes.GenerateResult, error) {
	l.lastPrompt = prompt
	l.lastContext = ctx
	if l.calls >= len(l.responses) {
		return nil, fmt.Errorf("no more scripted responses")
	}
	r := l.responses[l.calls]
	l.calls++
	return &r, nil
}

type fakeWorkflowRegistry struct {
	workflows map[string]*enginetypes.WorkflowSpec
}

func (r *fakeWorkflowRegistry) Get(name string) (*enginetypes.WorkflowSpec, bool) {
	wf, ok := r.workflows[name]
	return wf, ok
}

type fakeHandle struct {
	contextStore     enginetypes.ContextStore
	cacheImpl        enginetypes.Cache
	toolRegistry     enginetypes.ToolRegistry
	agentRegistry    enginetypes.AgentRegistry
	llmService       enginetypes.LLMService
	workflowRegistry enginetypes.WorkflowRegistry
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{
		contextStore: newMemContextStore(),
		cacheImpl:    cache.NewMemoryCache(time.Minute, nil),
	}
}

func (h *fakeHandle) ContextStore() enginetypes.ContextStore       { return h.contextStore }
func (h *fakeHandle) Cache() enginetypes.Cache                     { return h.cacheImpl }
func (h *fakeHandle) ToolRegistry() enginetypes.ToolRegistry       { return h.toolRegistry }
func (h *fakeHandle) AgentRegistry() enginetypes.AgentRegistry     { return h.agentRegistry }
func (h *fakeHandle) LLMService() enginetypes.LLMService           { return h.llmService }
func (h *fakeHandle) Memory() enginetypes.MemoryAccessor            { return nil }
func (h *fakeHandle) Logger() enginetypes.Logger                    { return noopLogger{} }
func (h *fakeHandle) WorkflowRegistry() enginetypes.WorkflowRegistry { return h.workflowRegistry }
func (h *fakeHandle) RunNested(ctx context.Context, wf *enginetypes.WorkflowSpec, initialContext map[string]any) (*enginetypes.WorkflowResult, error) {
	return nil, fmt.Errorf("RunNested not stubbed")
}

func baseNode(id string, kind enginetypes.NodeKind) *enginetypes.NodeConfig {
	return &enginetypes.NodeConfig{ID: id, Kind: kind}
}
