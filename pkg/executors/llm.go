package executors

import (
	"context"
	"fmt"
	"time"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/executor"
	"github.com/lyzr/orchestrator/pkg/template"
)

// LLM renders prompt_template against the input context and prior results,
// then invokes the LLM service with llm_config and any declared tool
// schemas (spec.md §4.8).
func LLM(ctx context.Context, handle enginetypes.EngineHandle, node *enginetypes.NodeConfig, input map[string]any) (*enginetypes.NodeExecutionResult, error) {
	if node.LLM == nil {
		return nil, &enginetypes.ConfigError{Msg: fmt.Sprintf("node %q: missing llm spec", node.ID)}
	}

	priorResults, _ := input[executor.ResultsKey].(map[string]any)
	scope := template.Scope{Input: input, Results: priorResults}
	prompt, err := template.RenderString(scope, node.LLM.PromptTemplate)
	if err != nil {
		return &enginetypes.NodeExecutionResult{Success: false, Error: fmt.Sprintf("rendering prompt_template: %v", err)}, nil
	}

	var timeout time.Duration
	if node.TimeoutSeconds > 0 {
		timeout = time.Duration(node.TimeoutSeconds) * time.Second
	}

	// strip the internal results key before handing context to the provider;
	// it's rendering-only plumbing, not part of this node's declared input.
	providerContext := input
	if priorResults != nil {
		providerContext = make(map[string]any, len(input)-1)
		for k, v := range input {
			if k == executor.ResultsKey {
				continue
			}
			providerContext[k] = v
		}
	}

	gen, err := handle.LLMService().Generate(ctx, node.LLM.LLMConfig, prompt, providerContext, node.LLM.Tools, timeout)
	if err != nil {
		return &enginetypes.NodeExecutionResult{Success: false, Error: err.Error()}, nil
	}

	usage := gen.Usage
	usage.NodeID = node.ID
	usage.Model = node.LLM.LLMConfig.Model
	usage.Provider = node.LLM.LLMConfig.Provider
	usage.APICalls = 1
	usage.Cost = pricingTable.Cost(usage.Provider, usage.Model, usage.PromptTokens, usage.CompletionTokens)

	return &enginetypes.NodeExecutionResult{
		Success: true,
		Output:  map[string]any{"text": gen.Text},
		Usage:   &usage,
	}, nil
}
