package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
)

func TestEstimatedComplexityOrdering(t *testing.T) {
	llmWithTools := &enginetypes.NodeConfig{Kind: enginetypes.KindLLM, LLM: &enginetypes.LLMNodeSpec{Tools: []enginetypes.ToolRef{{Name: "x"}}}}
	llm := &enginetypes.NodeConfig{Kind: enginetypes.KindLLM, LLM: &enginetypes.LLMNodeSpec{}}
	agent := &enginetypes.NodeConfig{Kind: enginetypes.KindAgent}
	tool := &enginetypes.NodeConfig{Kind: enginetypes.KindTool}
	cond := &enginetypes.NodeConfig{Kind: enginetypes.KindCondition}

	assert.Greater(t, EstimatedComplexity(llmWithTools), EstimatedComplexity(llm))
	assert.Greater(t, EstimatedComplexity(llm), EstimatedComplexity(agent))
	assert.Greater(t, EstimatedComplexity(agent), EstimatedComplexity(tool))
	assert.Greater(t, EstimatedComplexity(tool), EstimatedComplexity(cond))
}
