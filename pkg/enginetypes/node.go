// Package enginetypes defines the tagged node-config variants, the uniform
// result envelope, and the narrow interfaces the engine consumes from its
// host (executors, cache, context store, guard callbacks).
package enginetypes

import "fmt"

// NodeKind discriminates the node-config tagged union.
type NodeKind string

const (
	KindTool           NodeKind = "tool"
	KindLLM            NodeKind = "llm"
	KindAgent          NodeKind = "agent"
	KindCondition      NodeKind = "condition"
	KindLoop           NodeKind = "loop"
	KindParallel       NodeKind = "parallel"
	KindRecursive      NodeKind = "recursive"
	KindNestedWorkflow NodeKind = "nested_workflow"
)

// ValidKinds enumerates every node kind the registry can dispatch to.
// Any other tag is rejected at parse time (spec.md §9: "reject unknown
// tags at parse time").
var ValidKinds = map[NodeKind]bool{
	KindTool:           true,
	KindLLM:            true,
	KindAgent:          true,
	KindCondition:      true,
	KindLoop:           true,
	KindParallel:       true,
	KindRecursive:      true,
	KindNestedWorkflow: true,
}

// InputMapping binds a node's input placeholder to a dependency's output
// (or to a literal value when SourceNodeID is empty).
type InputMapping struct {
	SourceNodeID     string         `json:"source_node_id,omitempty"`
	SourceOutputPath string         `json:"source_output_path,omitempty"`
	Literal          any            `json:"literal,omitempty"`
	Rules            map[string]any `json:"rules,omitempty"`
}

// IsLiteral reports whether this mapping binds a literal value rather than
// resolving a dependency's output.
func (m InputMapping) IsLiteral() bool {
	return m.SourceNodeID == ""
}

// LLMConfig carries provider-specific generation parameters.
type LLMConfig struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// ToolRef describes a callable tool schema exposed to an LLM/agent node.
type ToolRef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// NodeConfig is the common envelope shared by every node kind. Kind-specific
// fields live in pointer sub-structs so only the relevant one is populated
// (Go's answer to a tagged union / discriminated sum type, per spec.md §9).
type NodeConfig struct {
	ID             string                  `json:"id"`
	Kind           NodeKind                `json:"kind"`
	Name           string                  `json:"name,omitempty"`
	Version        string                  `json:"version"`
	Dependencies   []string                `json:"dependencies,omitempty"`
	TimeoutSeconds int                     `json:"timeout_seconds,omitempty"`
	Retries        int                     `json:"retries,omitempty"`
	BackoffSeconds float64                 `json:"backoff_seconds,omitempty"`
	InputMappings  map[string]InputMapping `json:"input_mappings,omitempty"`
	OutputMappings map[string]string       `json:"output_mappings,omitempty"`
	InputSchema    map[string]string       `json:"input_schema,omitempty"`
	OutputSchema   map[string]string       `json:"output_schema,omitempty"`
	UseCache       *bool                   `json:"use_cache,omitempty"`
	AllowedTools   []string                `json:"allowed_tools,omitempty"`

	Tool           *ToolNodeSpec      `json:"tool,omitempty"`
	LLM            *LLMNodeSpec       `json:"llm,omitempty"`
	Agent          *AgentNodeSpec     `json:"agent,omitempty"`
	Condition      *ConditionNodeSpec `json:"condition_spec,omitempty"`
	Loop           *LoopNodeSpec      `json:"loop,omitempty"`
	Parallel       *ParallelNodeSpec  `json:"parallel,omitempty"`
	Recursive      *RecursiveNodeSpec `json:"recursive,omitempty"`
	NestedWorkflow *NestedWorkflowSpec `json:"nested_workflow,omitempty"`
}

// UseCacheOrDefault returns the effective use_cache flag (default true).
func (n *NodeConfig) UseCacheOrDefault() bool {
	if n.UseCache == nil {
		return true
	}
	return *n.UseCache
}

// ToolNodeSpec configures a deterministic tool invocation.
type ToolNodeSpec struct {
	ToolName string         `json:"tool_name"`
	ToolArgs map[string]any `json:"tool_args,omitempty"`
}

// LLMNodeSpec configures a single-shot LLM call.
type LLMNodeSpec struct {
	Model          string    `json:"model"`
	PromptTemplate string    `json:"prompt_template"`
	LLMConfig      LLMConfig `json:"llm_config"`
	Tools          []ToolRef `json:"tools,omitempty"`
}

// AgentNodeSpec configures a reasoning-agent conversation.
type AgentNodeSpec struct {
	Package      string    `json:"package"`
	Model        string    `json:"model"`
	Instructions string    `json:"instructions"`
	LLMConfig    LLMConfig `json:"llm_config"`
	MemoryEnable bool      `json:"memory_enable,omitempty"`
	MaxRounds    int       `json:"max_rounds,omitempty"`
}

// EffectiveMaxRounds returns MaxRounds or the spec default of 2.
func (a *AgentNodeSpec) EffectiveMaxRounds() int {
	if a.MaxRounds <= 0 {
		return 2
	}
	return a.MaxRounds
}

// ConditionNodeSpec configures a branch-gating boolean expression.
type ConditionNodeSpec struct {
	Expression  string   `json:"expression"`
	TrueBranch  []string `json:"true_branch"`
	FalseBranch []string `json:"false_branch,omitempty"`
}

// LoopNodeSpec configures a bounded per-item iteration over a body sub-DAG.
type LoopNodeSpec struct {
	ItemsSource   string   `json:"items_source"`
	ItemVar       string   `json:"item_var"`
	BodyNodeIDs   []string `json:"body_node_ids"`
	MaxIterations int      `json:"max_iterations"`

	// BodyNodes is resolved from BodyNodeIDs against the owning
	// WorkflowSpec's node list by ResolveBodySubgraphs. Never set by callers
	// directly, never (de)serialized.
	BodyNodes []*NodeConfig `json:"-"`
}

// ParallelNodeSpec configures independent branch sub-DAGs.
type ParallelNodeSpec struct {
	Branches       map[string][]string `json:"branches"`
	MaxConcurrency int                 `json:"max_concurrency,omitempty"`

	// BranchNodes is resolved from Branches by ResolveBodySubgraphs.
	BranchNodes map[string][]*NodeConfig `json:"-"`
}

// RecursiveNodeSpec configures a bounded recursive agent conversation.
type RecursiveNodeSpec struct {
	BodyNodeID      string         `json:"body_node_id"`
	ConvergenceExpr string         `json:"convergence_expression"`
	MaxIterations   int            `json:"max_iterations"`
	InitialState    map[string]any `json:"initial_state"`
	StateVariables  []string       `json:"state_variables,omitempty"`
	PreserveContext bool           `json:"preserve_context,omitempty"`

	// ResolvedBodyNode is resolved from BodyNodeID by ResolveBodySubgraphs.
	ResolvedBodyNode *NodeConfig `json:"-"`
}

// NestedWorkflowSpec configures a sub-workflow invocation.
type NestedWorkflowSpec struct {
	RegistryName    string            `json:"registry_name,omitempty"`
	InlineWorkflow  *WorkflowSpec     `json:"inline_workflow,omitempty"`
	InputMapping    map[string]string `json:"input_mapping,omitempty"`
	ExposedOutputs  map[string]string `json:"exposed_outputs,omitempty"`
}

// WorkflowSpec is the persisted workflow document (spec.md §6.6).
type WorkflowSpec struct {
	BlueprintID string         `json:"blueprint_id,omitempty"`
	Version     string         `json:"version"`
	Name        string         `json:"name,omitempty"`
	Nodes       []*NodeConfig  `json:"nodes"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Validate performs shallow per-node structural checks that belong at
// parse/construction time: known kind, matching kind-specific payload, and
// the allowed_tools/kind restriction from spec.md §7 (ConfigError list).
func (w *WorkflowSpec) Validate() error {
	seen := make(map[string]bool, len(w.Nodes))
	for _, n := range w.Nodes {
		if n.ID == "" {
			return &ConfigError{Msg: "node with empty id"}
		}
		if seen[n.ID] {
			return &ConfigError{Msg: fmt.Sprintf("duplicate node id %q", n.ID)}
		}
		seen[n.ID] = true

		if !ValidKinds[n.Kind] {
			return &ConfigError{Msg: fmt.Sprintf("node %q: unknown kind %q", n.ID, n.Kind)}
		}
		if err := n.validateKindPayload(); err != nil {
			return err
		}
		if len(n.AllowedTools) > 0 && n.Kind != KindAgent && n.Kind != KindTool {
			return &ConfigError{Msg: fmt.Sprintf("node %q (kind=%s) may not declare allowed_tools", n.ID, n.Kind)}
		}
		for _, dep := range n.Dependencies {
			if dep == n.ID {
				return &ConfigError{Msg: fmt.Sprintf("node %q cannot depend on itself", n.ID)}
			}
		}
		for placeholder, mapping := range n.InputMappings {
			if mapping.IsLiteral() {
				continue
			}
			if !containsStr(n.Dependencies, mapping.SourceNodeID) {
				return &ConfigError{Msg: fmt.Sprintf(
					"node %q: input mapping %q references undeclared dependency %q",
					n.ID, placeholder, mapping.SourceNodeID)}
			}
		}
	}
	return nil
}

func (n *NodeConfig) validateKindPayload() error {
	switch n.Kind {
	case KindTool:
		if n.Tool == nil || n.Tool.ToolName == "" {
			return &ConfigError{Msg: fmt.Sprintf("node %q: tool kind requires tool_name", n.ID)}
		}
	case KindLLM:
		if n.LLM == nil || n.LLM.PromptTemplate == "" {
			return &ConfigError{Msg: fmt.Sprintf("node %q: llm kind requires prompt_template", n.ID)}
		}
	case KindAgent:
		if n.Agent == nil || n.Agent.Package == "" {
			return &ConfigError{Msg: fmt.Sprintf("node %q: agent kind requires package", n.ID)}
		}
	case KindCondition:
		if n.Condition == nil || n.Condition.Expression == "" {
			return &ConfigError{Msg: fmt.Sprintf("node %q: condition kind requires expression", n.ID)}
		}
	case KindLoop:
		if n.Loop == nil || n.Loop.MaxIterations <= 0 || len(n.Loop.BodyNodeIDs) == 0 {
			return &ConfigError{Msg: fmt.Sprintf("node %q: loop kind requires max_iterations>0 and body_node_ids", n.ID)}
		}
	case KindParallel:
		if n.Parallel == nil || len(n.Parallel.Branches) == 0 {
			return &ConfigError{Msg: fmt.Sprintf("node %q: parallel kind requires branches", n.ID)}
		}
	case KindRecursive:
		if n.Recursive == nil || n.Recursive.BodyNodeID == "" || n.Recursive.MaxIterations <= 0 {
			return &ConfigError{Msg: fmt.Sprintf("node %q: recursive kind requires body_node_id and max_iterations>0", n.ID)}
		}
	case KindNestedWorkflow:
		if n.NestedWorkflow == nil || (n.NestedWorkflow.RegistryName == "" && n.NestedWorkflow.InlineWorkflow == nil) {
			return &ConfigError{Msg: fmt.Sprintf("node %q: nested_workflow kind requires registry_name or inline_workflow", n.ID)}
		}
	}
	return nil
}

// ResolveBodySubgraphs populates BodyNodes/BranchNodes/ResolvedBodyNode on
// every loop/parallel/recursive node by looking up the referenced ids
// against w.Nodes. Container nodes own their body nodes' execution (the
// Loop/Parallel/Recursive executors run them as an inner sub-graph via
// their own scheduler), so body nodes are looked up here once at load time
// rather than re-resolved per run. Call once after Validate succeeds.
func (w *WorkflowSpec) ResolveBodySubgraphs() error {
	byID := make(map[string]*NodeConfig, len(w.Nodes))
	for _, n := range w.Nodes {
		byID[n.ID] = n
	}
	lookup := func(id string) (*NodeConfig, error) {
		n, ok := byID[id]
		if !ok {
			return nil, &ConfigError{Msg: fmt.Sprintf("body node id %q is not declared in this workflow", id)}
		}
		return n, nil
	}

	for _, n := range w.Nodes {
		switch n.Kind {
		case KindLoop:
			nodes := make([]*NodeConfig, 0, len(n.Loop.BodyNodeIDs))
			for _, id := range n.Loop.BodyNodeIDs {
				body, err := lookup(id)
				if err != nil {
					return err
				}
				nodes = append(nodes, body)
			}
			n.Loop.BodyNodes = nodes
		case KindParallel:
			branches := make(map[string][]*NodeConfig, len(n.Parallel.Branches))
			for branchID, ids := range n.Parallel.Branches {
				nodes := make([]*NodeConfig, 0, len(ids))
				for _, id := range ids {
					body, err := lookup(id)
					if err != nil {
						return err
					}
					nodes = append(nodes, body)
				}
				branches[branchID] = nodes
			}
			n.Parallel.BranchNodes = branches
		case KindRecursive:
			body, err := lookup(n.Recursive.BodyNodeID)
			if err != nil {
				return err
			}
			n.Recursive.ResolvedBodyNode = body
		}
	}
	return nil
}

// nestedNodeIDs collects every node id owned by a loop/parallel/recursive
// container, so TopLevelNodes can exclude them from independent scheduling.
func (w *WorkflowSpec) nestedNodeIDs() map[string]bool {
	nested := make(map[string]bool)
	for _, n := range w.Nodes {
		switch n.Kind {
		case KindLoop:
			for _, id := range n.Loop.BodyNodeIDs {
				nested[id] = true
			}
		case KindParallel:
			for _, ids := range n.Parallel.Branches {
				for _, id := range ids {
					nested[id] = true
				}
			}
		case KindRecursive:
			nested[n.Recursive.BodyNodeID] = true
		}
	}
	return nested
}

// TopLevelNodes returns the nodes the engine's own DependencyGraph should
// schedule: every declared node minus those owned by a loop/parallel/
// recursive container, whose execution is delegated to that container's
// executor instead.
func (w *WorkflowSpec) TopLevelNodes() []*NodeConfig {
	nested := w.nestedNodeIDs()
	out := make([]*NodeConfig, 0, len(w.Nodes))
	for _, n := range w.Nodes {
		if !nested[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
