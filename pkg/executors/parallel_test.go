package executors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
)

func TestParallelRunsBranchesIndependently(t *testing.T) {
	h := newFakeHandle()
	h.toolRegistry = &fakeToolRegistry{tools: map[string]enginetypes.Tool{"echo": &echoTool{name: "echo"}}}

	branchA := baseNode("a", enginetypes.KindTool)
	branchA.Tool = &enginetypes.ToolNodeSpec{ToolName: "echo", ToolArgs: map[string]any{"who": "a"}}
	branchB := baseNode("b", enginetypes.KindTool)
	branchB.Tool = &enginetypes.ToolNodeSpec{ToolName: "echo", ToolArgs: map[string]any{"who": "b"}}

	node := baseNode("par1", enginetypes.KindParallel)
	node.Parallel = &enginetypes.ParallelNodeSpec{
		Branches: map[string][]string{"branch_a": {"a"}, "branch_b": {"b"}},
		BranchNodes: map[string][]*enginetypes.NodeConfig{
			"branch_a": {branchA},
			"branch_b": {branchB},
		},
	}

	result, err := Parallel(context.Background(), h, node, map[string]any{}, newTestRegistry())
	require.NoError(t, err)
	require.True(t, result.Success)

	out := result.Output.(map[string]any)
	require.Contains(t, out, "branch_a")
	require.Contains(t, out, "branch_b")
	assert.Equal(t, "a", out["branch_a"].(map[string]any)["who"])
	assert.Equal(t, "b", out["branch_b"].(map[string]any)["who"])
}

func TestParallelBranchFailureDoesNotCancelSiblings(t *testing.T) {
	h := newFakeHandle()
	h.toolRegistry = &fakeToolRegistry{tools: map[string]enginetypes.Tool{
		"echo": &echoTool{name: "echo"},
		"bad":  &failingTool{name: "bad"},
	}}

	ok := baseNode("ok", enginetypes.KindTool)
	ok.Tool = &enginetypes.ToolNodeSpec{ToolName: "echo"}
	bad := baseNode("bad", enginetypes.KindTool)
	bad.Tool = &enginetypes.ToolNodeSpec{ToolName: "bad"}

	node := baseNode("par1", enginetypes.KindParallel)
	node.Parallel = &enginetypes.ParallelNodeSpec{
		Branches: map[string][]string{"good": {"ok"}, "broken": {"bad"}},
		BranchNodes: map[string][]*enginetypes.NodeConfig{
			"good":   {ok},
			"broken": {bad},
		},
	}

	result, err := Parallel(context.Background(), h, node, map[string]any{}, newTestRegistry())
	require.NoError(t, err)
	require.True(t, result.Success) // the parallel node itself always "succeeds"; branch status is nested

	out := result.Output.(map[string]any)
	goodBranch, ok2 := out["good"].(map[string]any)
	require.True(t, ok2)
	assert.NotNil(t, goodBranch)

	brokenBranch, ok3 := out["broken"].(map[string]any)
	require.True(t, ok3)
	assert.Equal(t, false, brokenBranch["success"])
}
