package executors

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
)

// toolCall is the shape an agent's response must have to be treated as a
// tool invocation rather than a final answer (agent_node.py: "tool_name" in
// the parsed JSON payload).
type toolCall struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
}

// Agent runs a bounded reason-act loop: each round the LLM emits either a
// tool-call JSON payload or a final answer. Repeated identical tool calls
// abort the loop with the cached result as the final answer. Tool
// permissions come from the node's own allowed_tools only: an empty list
// grants no tools, and there is no global-registry or chain-level tier.
func Agent(ctx context.Context, handle enginetypes.EngineHandle, node *enginetypes.NodeConfig, input map[string]any) (*enginetypes.NodeExecutionResult, error) {
	if node.Agent == nil {
		return nil, &enginetypes.ConfigError{Msg: fmt.Sprintf("node %q: missing agent spec", node.ID)}
	}
	spec := node.Agent

	agentImpl, ok := handle.AgentRegistry().Get(spec.Package)
	if !ok {
		return &enginetypes.NodeExecutionResult{Success: false, Error: fmt.Sprintf("unknown agent package %q", spec.Package)}, nil
	}

	tools := resolveToolPermissions(handle, node)

	result, err := agentImpl.Run(ctx, handle, spec, tools, input)
	if err != nil {
		return &enginetypes.NodeExecutionResult{Success: false, Error: err.Error()}, nil
	}
	return result, nil
}

// resolveToolPermissions resolves the node's allowed_tools allow-list
// against the tool registry. An empty allow-list grants no tools at all,
// not every registered tool — an agent node must name each tool it wants.
func resolveToolPermissions(handle enginetypes.EngineHandle, node *enginetypes.NodeConfig) []enginetypes.Tool {
	if len(node.AllowedTools) == 0 {
		return nil
	}
	names := append([]string(nil), node.AllowedTools...)
	sort.Strings(names)

	var tools []enginetypes.Tool
	for _, name := range names {
		if t, ok := handle.ToolRegistry().Get(name); ok {
			tools = append(tools, t)
		}
	}
	return tools
}

// RunReasonActLoop drives the bounded tool-call/final-answer loop shared by
// every Agent implementation built on top of an LLMService, so concrete
// agent packages don't each reimplement round-bookkeeping and the
// repeated-call dedup rule (agent_node.py `execute`).
func RunReasonActLoop(
	ctx context.Context,
	handle enginetypes.EngineHandle,
	spec *enginetypes.AgentNodeSpec,
	tools []enginetypes.Tool,
	input map[string]any,
) (*enginetypes.NodeExecutionResult, error) {
	maxRounds := spec.EffectiveMaxRounds()

	userContent, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshaling agent input: %w", err)
	}

	type turn struct{ role, content string }
	conversation := []turn{
		{role: "system", content: spec.Instructions},
		{role: "user", content: string(userContent)},
	}

	toolRefs := make([]enginetypes.ToolRef, 0, len(tools))
	toolByName := make(map[string]enginetypes.Tool, len(tools))
	for _, t := range tools {
		params := make(map[string]any, len(t.InputSchema()))
		for field, typ := range t.InputSchema() {
			params[field] = typ
		}
		toolRefs = append(toolRefs, enginetypes.ToolRef{Name: t.Name(), Parameters: params})
		toolByName[t.Name()] = t
	}

	var aggregate enginetypes.UsageMetadata
	toolResultCache := make(map[string]any)

	var finalOutput any
	roundsUsed := 0

	for round := 0; round < maxRounds; round++ {
		roundsUsed = round + 1
		var promptLines []string
		for _, t := range conversation {
			promptLines = append(promptLines, fmt.Sprintf("%s: %s", strings.ToUpper(t.role), t.content))
		}
		prompt := strings.Join(promptLines, "\n")

		gen, err := handle.LLMService().Generate(ctx, spec.LLMConfig, prompt, map[string]any{}, toolRefs, 0)
		if err != nil {
			return &enginetypes.NodeExecutionResult{
				Success: false,
				Error:   err.Error(),
				Usage:   &aggregate,
			}, nil
		}
		aggregate.PromptTokens += gen.Usage.PromptTokens
		aggregate.CompletionTokens += gen.Usage.CompletionTokens
		aggregate.TotalTokens += gen.Usage.TotalTokens

		var call toolCall
		if err := json.Unmarshal([]byte(gen.Text), &call); err != nil || call.ToolName == "" {
			// Not a tool-call payload: the raw text is the final answer.
			var asJSON any
			if jsonErr := json.Unmarshal([]byte(gen.Text), &asJSON); jsonErr == nil {
				finalOutput = asJSON
			} else {
				finalOutput = gen.Text
			}
			break
		}

		argsJSON, _ := json.Marshal(call.Arguments)
		cacheKey := call.ToolName + ":" + string(argsJSON)
		if cached, seen := toolResultCache[cacheKey]; seen {
			finalOutput = cached
			break
		}

		tool, ok := toolByName[call.ToolName]
		if !ok {
			return &enginetypes.NodeExecutionResult{Success: false, Error: fmt.Sprintf("tool %q not permitted for this agent", call.ToolName), Usage: &aggregate}, nil
		}

		toolResult, err := tool.Run(ctx, call.Arguments)
		if err != nil {
			return &enginetypes.NodeExecutionResult{Success: false, Error: fmt.Sprintf("tool %q failed: %v", call.ToolName, err), Usage: &aggregate}, nil
		}
		toolResultCache[cacheKey] = toolResult

		conversation = append(conversation,
			turn{role: "assistant", content: gen.Text},
			turn{role: "tool", content: fmt.Sprintf("%v", toolResult)},
		)
	}

	aggregate.APICalls = roundsUsed
	aggregate.Model = spec.LLMConfig.Model
	aggregate.Provider = spec.LLMConfig.Provider
	aggregate.Cost = pricingTable.Cost(spec.LLMConfig.Provider, spec.LLMConfig.Model, aggregate.PromptTokens, aggregate.CompletionTokens)

	return &enginetypes.NodeExecutionResult{
		Success: true,
		Output:  finalOutput,
		Usage:   &aggregate,
	}, nil
}
