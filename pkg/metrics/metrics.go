// Package metrics aggregates per-node usage into chain-level token stats
// (spec.md §4.9), updated by the scheduler post-completion to avoid lock
// contention inside executors.
package metrics

import "github.com/lyzr/orchestrator/pkg/enginetypes"

// Aggregator accumulates usage across a single workflow run. Not safe for
// concurrent use; the scheduler updates it serially after each level.
type Aggregator struct {
	stats enginetypes.TokenStats
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{stats: enginetypes.TokenStats{PerNodeUsage: make(map[string]*enginetypes.UsageMetadata)}}
}

// Record folds one successful node result's usage into the running totals.
// No-op if usage is nil.
func (a *Aggregator) Record(nodeID string, usage *enginetypes.UsageMetadata) {
	if usage == nil {
		return
	}
	a.stats.TotalTokens += usage.TotalTokens
	a.stats.TotalCost += usage.Cost
	a.stats.PerNodeUsage[nodeID] = usage
}

// TotalTokens returns the running total_tokens figure.
func (a *Aggregator) TotalTokens() int { return a.stats.TotalTokens }

// Snapshot returns a copy of the accumulated TokenStats suitable for
// embedding in a WorkflowResult.
func (a *Aggregator) Snapshot() enginetypes.TokenStats {
	cp := enginetypes.TokenStats{
		TotalTokens:  a.stats.TotalTokens,
		TotalCost:    a.stats.TotalCost,
		PerNodeUsage: make(map[string]*enginetypes.UsageMetadata, len(a.stats.PerNodeUsage)),
	}
	for k, v := range a.stats.PerNodeUsage {
		cp.PerNodeUsage[k] = v
	}
	return cp
}
