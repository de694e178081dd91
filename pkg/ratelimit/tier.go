package ratelimit

import "github.com/lyzr/orchestrator/pkg/enginetypes"

// Tier buckets a workflow by how expensive it is to run, so that a flood of
// cheap tool-only workflows doesn't starve a handful of agent-heavy ones and
// vice versa, adapted from common/ratelimit's workflow inspector.
type Tier string

const (
	TierSimple   Tier = "simple"   // no agent nodes
	TierStandard Tier = "standard" // 1-2 agent nodes
	TierHeavy    Tier = "heavy"    // 3+ agent nodes
)

// TierConfig is the request budget for a Tier.
type TierConfig struct {
	Limit         int64
	WindowSeconds int
}

// DefaultTierConfigs are the per-minute request budgets Limiter.CheckTier
// applies for cmd/engineserver; pkg/config has no setting that overrides
// them.
var DefaultTierConfigs = map[Tier]TierConfig{
	TierSimple:   {Limit: 100, WindowSeconds: 60},
	TierStandard: {Limit: 20, WindowSeconds: 60},
	TierHeavy:    {Limit: 5, WindowSeconds: 60},
}

// InspectWorkflow classifies wf by its agent-node count.
func InspectWorkflow(wf *enginetypes.WorkflowSpec) Tier {
	agents := 0
	for _, n := range wf.Nodes {
		if n.Kind == enginetypes.KindAgent {
			agents++
		}
	}
	switch {
	case agents == 0:
		return TierSimple
	case agents <= 2:
		return TierStandard
	default:
		return TierHeavy
	}
}
