package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
)

func TestAggregatorRecordsAndSums(t *testing.T) {
	a := NewAggregator()
	a.Record("n1", &enginetypes.UsageMetadata{TotalTokens: 10, Cost: 0.1})
	a.Record("n2", &enginetypes.UsageMetadata{TotalTokens: 20, Cost: 0.2})
	a.Record("n3", nil)

	assert.Equal(t, 30, a.TotalTokens())

	snap := a.Snapshot()
	assert.Equal(t, 30, snap.TotalTokens)
	assert.InDelta(t, 0.3, snap.TotalCost, 1e-9)
	assert.Len(t, snap.PerNodeUsage, 2)
}
