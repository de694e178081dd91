package guardrails

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(i int) *int { return &i }

func TestTokenGuard(t *testing.T) {
	assert.True(t, TokenGuard(100, nil))
	assert.True(t, TokenGuard(100, intPtr(100)))
	assert.False(t, TokenGuard(101, intPtr(100)))
}

func TestDepthGuard(t *testing.T) {
	assert.True(t, DepthGuard(3, nil))
	assert.True(t, DepthGuard(3, intPtr(3)))
	assert.False(t, DepthGuard(4, intPtr(3)))
}
