package executors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
)

type stubAgent struct {
	name   string
	output any
	ok     bool
	errMsg string
}

func (a *stubAgent) Name() string { return a.name }

func (a *stubAgent) Run(_ context.Context, _ enginetypes.EngineHandle, _ *enginetypes.AgentNodeSpec, _ []enginetypes.Tool, input map[string]any) (*enginetypes.NodeExecutionResult, error) {
	if !a.ok {
		return &enginetypes.NodeExecutionResult{Success: false, Error: a.errMsg}, nil
	}
	return &enginetypes.NodeExecutionResult{Success: true, Output: a.output}, nil
}

func TestAgentAsToolWrapsSuccessfulRun(t *testing.T) {
	node := &AgentNode{
		Spec:   &enginetypes.AgentNodeSpec{Package: "researcher"},
		Impl:   &stubAgent{name: "researcher", ok: true, output: map[string]any{"summary": "done"}},
		Handle: newFakeHandle(),
	}

	tool := node.AsTool("researcher_tool", "delegates to the researcher agent")
	assert.Equal(t, "researcher_tool", tool.Name())
	assert.Equal(t, map[string]string{"input": "object"}, tool.InputSchema())

	out, err := tool.Run(context.Background(), map[string]any{"input": map[string]any{"question": "why"}})
	require.NoError(t, err)
	result := out.(map[string]any)
	assert.Equal(t, "done", result["summary"])
}

func TestAgentAsToolPropagatesFailure(t *testing.T) {
	node := &AgentNode{
		Spec:   &enginetypes.AgentNodeSpec{Package: "researcher"},
		Impl:   &stubAgent{name: "researcher", ok: false, errMsg: "agent exploded"},
		Handle: newFakeHandle(),
	}

	tool := node.AsTool("researcher_tool", "delegates to the researcher agent")
	_, err := tool.Run(context.Background(), map[string]any{"input": map[string]any{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent exploded")
}

func TestAgentAsToolFallsBackToRawArgsWithoutInputKey(t *testing.T) {
	node := &AgentNode{
		Spec: &enginetypes.AgentNodeSpec{Package: "researcher"},
		Impl: &stubAgent{name: "researcher", ok: true, output: "ok"},
	}

	tool := node.AsTool("researcher_tool", "delegates to the researcher agent")
	out, err := tool.Run(context.Background(), map[string]any{"question": "why"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestAgentAsToolHasNoFurtherAsToolMethod(t *testing.T) {
	node := &AgentNode{Impl: &stubAgent{name: "researcher"}}
	tool := node.AsTool("researcher_tool", "desc")

	var _ enginetypes.Tool = tool
	_, isAgentNode := any(tool).(*AgentNode)
	assert.False(t, isAgentNode)
}
