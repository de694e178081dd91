package enginetypes

import "time"

// NodeMetadata carries execution bookkeeping attached to every result.
type NodeMetadata struct {
	NodeID     string    `json:"node_id"`
	Kind       NodeKind  `json:"kind"`
	Name       string    `json:"name,omitempty"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Duration   float64   `json:"duration"`
	ErrorType  string    `json:"error_type,omitempty"`
	RetryCount int       `json:"retry_count"`
}

// UsageMetadata records token/cost accounting for a single node execution.
type UsageMetadata struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost"`
	APICalls         int     `json:"api_calls"`
	Model            string  `json:"model"`
	Provider         string  `json:"provider"`
	NodeID           string  `json:"node_id"`
}

// NodeExecutionResult is the uniform envelope returned by every executor.
type NodeExecutionResult struct {
	Success     bool           `json:"success"`
	Output      any            `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	Metadata    NodeMetadata   `json:"metadata"`
	Usage       *UsageMetadata `json:"usage,omitempty"`
	ExecutionTime float64      `json:"execution_time"`
	ContextUsed map[string]any `json:"context_used,omitempty"`
	TokenStats  map[string]any `json:"token_stats,omitempty"`
	BudgetStatus map[string]any `json:"budget_status,omitempty"`
}

// TokenStats aggregates usage across a whole workflow run.
type TokenStats struct {
	TotalTokens int                       `json:"total_tokens"`
	TotalCost   float64                   `json:"total_cost"`
	PerNodeUsage map[string]*UsageMetadata `json:"per_node_usage"`
}

// ChainMetadata is descriptive, engine-populated information about the run
// (spec supplement; grounded on the original's ChainMetadata model).
type ChainMetadata struct {
	ChainID      string    `json:"chain_id"`
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	NodeCount    int       `json:"node_count"`
	EdgeCount    int       `json:"edge_count"`
	TopologyHash string    `json:"topology_hash"`
	Tags         []string  `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// WorkflowResult is the final, persisted-format result of a run.
type WorkflowResult struct {
	Success       bool                            `json:"success"`
	Output        map[string]*NodeExecutionResult `json:"output"`
	Error         string                          `json:"error,omitempty"`
	Metadata      WorkflowResultMetadata          `json:"metadata"`
	ChainMetadata *ChainMetadata                  `json:"chain_metadata,omitempty"`
	ExecutionTime float64                         `json:"execution_time"`
	TokenStats    TokenStats                      `json:"token_stats"`
}

// WorkflowResultMetadata is the top-level metadata block of a WorkflowResult.
type WorkflowResultMetadata struct {
	FinalNodeID string    `json:"final_node_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Duration    float64   `json:"duration"`
}
