package scheduler

// branchGate tracks condition-node decisions and memoizes node activity
// (spec.md §4.5). Not safe for concurrent use; the Level Scheduler owns it
// and mutates it only between levels.
type branchGate struct {
	decisions  map[string]bool // condition node id -> decision
	conditions map[string]conditionBranches
	activeMemo map[string]bool
}

type conditionBranches struct {
	trueBranch  map[string]bool
	falseBranch map[string]bool
}

func newBranchGate() *branchGate {
	return &branchGate{
		decisions:  make(map[string]bool),
		conditions: make(map[string]conditionBranches),
		activeMemo: make(map[string]bool),
	}
}

// registerCondition records the branch membership of a condition node so
// isActive can later consult it once a decision is recorded.
func (g *branchGate) registerCondition(conditionID string, trueBranch, falseBranch []string) {
	g.conditions[conditionID] = conditionBranches{
		trueBranch:  toSet(trueBranch),
		falseBranch: toSet(falseBranch),
	}
}

// recordDecision stores a condition node's boolean outcome and invalidates
// the memoized activity cache, since downstream activity may now change.
func (g *branchGate) recordDecision(conditionID string, result bool) {
	g.decisions[conditionID] = result
	g.activeMemo = make(map[string]bool)
}

// isActive reports whether node is active given current branch decisions
// and dependency activity, memoizing the result (spec.md §4.5).
func (g *branchGate) isActive(nodeID string, dependencies map[string][]string) bool {
	if v, ok := g.activeMemo[nodeID]; ok {
		return v
	}
	// Mark visiting to break any accidental cycle defensively; the graph
	// package already guarantees acyclicity for well-formed workflows.
	g.activeMemo[nodeID] = true

	for condID, decision := range g.decisions {
		branches, ok := g.conditions[condID]
		if !ok {
			continue
		}
		if decision && branches.falseBranch[nodeID] {
			g.activeMemo[nodeID] = false
			return false
		}
		if !decision && branches.trueBranch[nodeID] {
			g.activeMemo[nodeID] = false
			return false
		}
	}

	for _, dep := range dependencies[nodeID] {
		if !g.isActive(dep, dependencies) {
			g.activeMemo[nodeID] = false
			return false
		}
	}

	g.activeMemo[nodeID] = true
	return true
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, i := range items {
		s[i] = true
	}
	return s
}
