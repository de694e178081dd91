package enginetypes

import (
	"context"
	"time"
)

// EngineHandle is what executors receive so they can reach collaborators
// without importing the engine package (spec.md §6.1).
type EngineHandle interface {
	ContextStore() ContextStore
	Cache() Cache
	ToolRegistry() ToolRegistry
	AgentRegistry() AgentRegistry
	LLMService() LLMService
	Memory() MemoryAccessor
	Logger() Logger
	WorkflowRegistry() WorkflowRegistry
	// RunNested executes a sub-workflow to completion sharing this engine's
	// guard callbacks and cache, under an isolated execution id.
	RunNested(ctx context.Context, wf *WorkflowSpec, initialContext map[string]any) (*WorkflowResult, error)
}

// WorkflowRegistry resolves a registry_name nested_workflow reference to its
// stored blueprint (spec.md §4.8 Nested Workflow).
type WorkflowRegistry interface {
	Get(name string) (*WorkflowSpec, bool)
}

// Logger is the minimal structured-logging surface executors depend on.
type Logger interface {
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	Debug(msg string, kv ...any)
}

// Executor implements one node kind's behavior behind the uniform contract
// (spec.md §4.3, §6.1). Asynchronous via ctx cancellation.
type Executor func(ctx context.Context, handle EngineHandle, node *NodeConfig, input map[string]any) (*NodeExecutionResult, error)

// Tool is the external tool contract (spec.md §6.2).
type Tool interface {
	Name() string
	Run(ctx context.Context, args map[string]any) (any, error)
	InputSchema() map[string]string
	OutputSchema() map[string]string
}

// ToolRegistry resolves a tool by name.
type ToolRegistry interface {
	Get(name string) (Tool, bool)
}

// Agent is the external agent contract consumed by the agent executor.
type Agent interface {
	Name() string
	Run(ctx context.Context, handle EngineHandle, spec *AgentNodeSpec, tools []Tool, input map[string]any) (*NodeExecutionResult, error)
}

// AgentRegistry resolves an agent by package reference.
type AgentRegistry interface {
	Get(pkg string) (Agent, bool)
}

// GenerateResult is the LLM service's response envelope (spec.md §6.3).
type GenerateResult struct {
	Text  string
	Usage UsageMetadata
}

// LLMService is the external LLM provider contract (spec.md §6.3).
type LLMService interface {
	Generate(ctx context.Context, cfg LLMConfig, prompt string, context map[string]any, tools []ToolRef, timeout time.Duration) (*GenerateResult, error)
}

// Cache is the external content-addressed cache contract (spec.md §6.4).
// The interface carries no single-flight guarantee: the Node Executor
// Wrapper calls Get and Set directly, so concurrent misses on one key each
// run the executor. Only the in-memory cache's GetOrBuild coalesces
// concurrent builders per key; the Redis-backed cache does not.
type Cache interface {
	Get(ctx context.Context, key string) (*NodeExecutionResult, bool, error)
	Set(ctx context.Context, key string, value *NodeExecutionResult) error
}

// MemoryScope names one of the four memory scopes (spec.md §6.5).
type MemoryScope string

const (
	MemoryWorking    MemoryScope = "working"
	MemoryEpisodic   MemoryScope = "episodic"
	MemorySemantic   MemoryScope = "semantic"
	MemoryProcedural MemoryScope = "procedural"
)

// MemoryEntry is one record returned from Search.
type MemoryEntry struct {
	Key      string
	Content  any
	Metadata map[string]any
}

// Memory is a single scope's store/retrieve/search surface.
type Memory interface {
	Store(ctx context.Context, key string, content any, metadata map[string]any) error
	Retrieve(ctx context.Context, key string) (any, bool, error)
	Search(ctx context.Context, query string, filters map[string]any, limit int) ([]MemoryEntry, error)
}

// MemoryAccessor exposes the four memory scopes to agent executors. Opaque
// to the engine itself (spec.md §6.5); may be nil when memory is disabled.
type MemoryAccessor interface {
	Scope(s MemoryScope) Memory
}

// ContextStore persists per-(node_id, execution_id) input/output snapshots.
// Last-writer-wins is acceptable since each node writes once (spec.md §5).
type ContextStore interface {
	Put(ctx context.Context, executionID, nodeID string, content map[string]any) error
	Get(ctx context.Context, executionID, nodeID string) (map[string]any, bool, error)
}
