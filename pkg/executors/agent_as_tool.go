package executors

import (
	"context"
	"fmt"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
)

// AgentNode bundles a resolved agent implementation with the spec/tools/
// handle it runs against, so it can be exposed as a callable tool to another
// agent node via AsTool (spec supplement; grounded on agent_node.py's
// as_tool). The resulting tool itself exposes no AsTool method, so wrapping
// is bounded to one level of nesting by construction: an agent-as-tool
// cannot itself be wrapped again.
type AgentNode struct {
	Spec   *enginetypes.AgentNodeSpec
	Impl   enginetypes.Agent
	Tools  []enginetypes.Tool
	Handle enginetypes.EngineHandle
}

// AsTool returns a Tool that runs this agent's reason-act loop against a
// single "input" argument, surfacing the agent's final output as the tool's
// result.
func (a *AgentNode) AsTool(name, description string) enginetypes.Tool {
	return &agentTool{name: name, description: description, node: a}
}

type agentTool struct {
	name        string
	description string
	node        *AgentNode
}

func (t *agentTool) Name() string { return t.name }

func (t *agentTool) Run(ctx context.Context, args map[string]any) (any, error) {
	input, ok := args["input"].(map[string]any)
	if !ok {
		input = args
	}

	result, err := t.node.Impl.Run(ctx, t.node.Handle, t.node.Spec, t.node.Tools, input)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("agent tool %q failed: %s", t.name, result.Error)
	}
	return result.Output, nil
}

func (t *agentTool) InputSchema() map[string]string {
	return map[string]string{"input": "object"}
}

func (t *agentTool) OutputSchema() map[string]string { return nil }
