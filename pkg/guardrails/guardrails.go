// Package guardrails implements the token and depth guard callbacks the
// Level Scheduler consults after each level commits (spec.md §6.8, §4.6).
package guardrails

// TokenGuard returns false once totalTokens exceeds ceiling (reaching it
// exactly still passes), signalling the scheduler to stop after the current level. A nil
// ceiling means unlimited.
func TokenGuard(totalTokens int, ceiling *int) bool {
	if ceiling == nil {
		return true
	}
	return totalTokens <= *ceiling
}

// DepthGuard returns false once levelIndex exceeds ceiling. A nil ceiling
// means unlimited depth.
func DepthGuard(levelIndex int, ceiling *int) bool {
	if ceiling == nil {
		return true
	}
	return levelIndex <= *ceiling
}
