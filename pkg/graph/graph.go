// Package graph validates a workflow's dependency DAG and answers
// topology queries: levels, dependencies/dependents, leaves.
package graph

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
)

// DependencyGraph is built from a node list and is immutable afterwards.
type DependencyGraph struct {
	nodes        map[string]*enginetypes.NodeConfig
	order        []string // declaration order, used for level tie-breaking
	dependents   map[string][]string
	dependencies map[string][]string
	levelOf      map[string]int
	levels       map[int][]string
}

// New constructs a DependencyGraph. Call Validate() before relying on it.
func New(nodes []*enginetypes.NodeConfig) *DependencyGraph {
	g := &DependencyGraph{
		nodes:        make(map[string]*enginetypes.NodeConfig, len(nodes)),
		dependents:   make(map[string][]string),
		dependencies: make(map[string][]string),
	}
	for _, n := range nodes {
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
		g.dependencies[n.ID] = append([]string(nil), n.Dependencies...)
	}
	for _, n := range nodes {
		for _, dep := range n.Dependencies {
			g.dependents[dep] = append(g.dependents[dep], n.ID)
		}
	}
	return g
}

// Validate rejects self-dependencies (already checked at WorkflowSpec.Validate
// time but re-checked here defensively), dangling dependency ids, and cycles.
func (g *DependencyGraph) Validate() error {
	for id, deps := range g.dependencies {
		for _, dep := range deps {
			if _, ok := g.nodes[dep]; !ok {
				return &enginetypes.ConfigError{Msg: fmt.Sprintf("node %q depends on unknown node %q", id, dep)}
			}
			if dep == id {
				return &enginetypes.ConfigError{Msg: fmt.Sprintf("node %q depends on itself", id)}
			}
		}
	}

	visiting := make(map[string]int) // 0=unvisited,1=in-stack,2=done
	var visit func(id string) error
	visit = func(id string) error {
		switch visiting[id] {
		case 1:
			return &enginetypes.ConfigError{Msg: fmt.Sprintf("cycle detected at node %q", id)}
		case 2:
			return nil
		}
		visiting[id] = 1
		for _, dep := range g.dependencies[id] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[id] = 2
		return nil
	}
	for _, id := range g.order {
		if err := visit(id); err != nil {
			return err
		}
	}

	g.computeLevels()
	return nil
}

// computeLevels assigns each node the longest-path distance from any root.
func (g *DependencyGraph) computeLevels() {
	g.levelOf = make(map[string]int, len(g.order))
	g.levels = make(map[int][]string)

	var level func(id string) int
	memo := make(map[string]int)
	level = func(id string) int {
		if v, ok := memo[id]; ok {
			return v
		}
		deps := g.dependencies[id]
		if len(deps) == 0 {
			memo[id] = 0
			return 0
		}
		max := 0
		for _, dep := range deps {
			if l := level(dep); l+1 > max {
				max = l + 1
			}
		}
		memo[id] = max
		return max
	}

	for _, id := range g.order {
		l := level(id)
		g.levelOf[id] = l
		g.levels[l] = append(g.levels[l], id)
	}
	// Declaration order within a level gives deterministic tie-breaking
	// (spec.md §4.1: "Tie-breaking inside a level is unspecified;
	// implementations may use declaration order for determinism").
	for l := range g.levels {
		ids := g.levels[l]
		sort.SliceStable(ids, func(i, j int) bool {
			return g.indexOf(ids[i]) < g.indexOf(ids[j])
		})
	}
}

func (g *DependencyGraph) indexOf(id string) int {
	for i, v := range g.order {
		if v == id {
			return i
		}
	}
	return -1
}

// Levels returns an ordered mapping level_index -> node ids.
func (g *DependencyGraph) Levels() map[int][]string { return g.levels }

// MaxLevel returns the highest level index present (0 if graph is empty).
func (g *DependencyGraph) MaxLevel() int {
	max := 0
	for l := range g.levels {
		if l > max {
			max = l
		}
	}
	return max
}

// Dependencies returns the direct predecessors of id.
func (g *DependencyGraph) Dependencies(id string) []string { return g.dependencies[id] }

// Dependents returns the direct successors of id.
func (g *DependencyGraph) Dependents(id string) []string { return g.dependents[id] }

// Node returns the node config for id.
func (g *DependencyGraph) Node(id string) (*enginetypes.NodeConfig, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Leaves returns nodes with no dependents (used to pick a final node id).
func (g *DependencyGraph) Leaves() []string {
	var leaves []string
	for _, id := range g.order {
		if len(g.dependents[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

// NodeCount / EdgeCount support ChainMetadata population.
func (g *DependencyGraph) NodeCount() int { return len(g.nodes) }

func (g *DependencyGraph) EdgeCount() int {
	n := 0
	for _, deps := range g.dependencies {
		n += len(deps)
	}
	return n
}

// TopologyHash returns a stable hash of node ids + edges, used to populate
// ChainMetadata.TopologyHash (SPEC_FULL.md §4.1 addition).
func (g *DependencyGraph) TopologyHash() string {
	h := fnv.New64a()
	ids := append([]string(nil), g.order...)
	sort.Strings(ids)
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
		deps := append([]string(nil), g.dependencies[id]...)
		sort.Strings(deps)
		for _, d := range deps {
			h.Write([]byte(d))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// SchemaAlignmentWarning is a non-fatal finding from ValidateSchemaAlignment.
type SchemaAlignmentWarning struct {
	NodeID      string
	Placeholder string
	Msg         string
}

// ValidateSchemaAlignment checks, for each input mapping, that the declared
// output schema of the source node (when present) is compatible with the
// consumer's expected placeholder type. Warnings are non-fatal unless strict
// is set, in which case the first incompatibility is returned as an error.
func (g *DependencyGraph) ValidateSchemaAlignment(strict bool) ([]SchemaAlignmentWarning, error) {
	var warnings []SchemaAlignmentWarning
	for _, id := range g.order {
		node := g.nodes[id]
		for placeholder, mapping := range node.InputMappings {
			if mapping.IsLiteral() {
				continue
			}
			expected, hasExpected := node.InputSchema[placeholder]
			src, ok := g.nodes[mapping.SourceNodeID]
			if !ok || !hasExpected || len(src.OutputSchema) == 0 {
				continue
			}
			// Compatibility is keyed by the leaf segment of the output path,
			// matching the last path segment against the source's declared
			// output schema field name.
			leaf := lastSegment(mapping.SourceOutputPath)
			declared, ok := src.OutputSchema[leaf]
			if !ok {
				continue
			}
			if declared != expected {
				w := SchemaAlignmentWarning{
					NodeID:      id,
					Placeholder: placeholder,
					Msg: fmt.Sprintf(
						"node %q placeholder %q expects %q but source %q declares %q for %q",
						id, placeholder, expected, mapping.SourceNodeID, declared, leaf),
				}
				if strict {
					return warnings, &enginetypes.ConfigError{Msg: w.Msg}
				}
				warnings = append(warnings, w)
			}
		}
	}
	return warnings, nil
}

func lastSegment(path string) string {
	last := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			last = path[i+1:]
			break
		}
	}
	return last
}
