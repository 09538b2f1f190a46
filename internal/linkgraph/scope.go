package linkgraph

import "fmt"

// Scope selects which documents a view renders.
type Scope string

const (
	// ScopeLocal renders exactly the focal collection.
	ScopeLocal Scope = "local"
	// ScopeGlobal renders the focal collection plus its one-hop neighbours
	// in any collection.
	ScopeGlobal Scope = "global"
)

// ParseScope converts s to a Scope. The empty string means ScopeLocal.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopeLocal:
		return ScopeLocal, nil
	case ScopeGlobal:
		return ScopeGlobal, nil
	default:
		return "", fmt.Errorf("linkgraph: unknown scope %q", s)
	}
}

// Edge is a link between two visible documents. A pair linking both ways is
// a single edge with Bidirectional set, oriented from the document that comes
// first in universe order.
type Edge struct {
	Source        string
	Target        string
	Bidirectional bool
}

// Subgraph is the part of an Adjacency selected for one view. Degrees are
// counted inside the subgraph only.
type Subgraph struct {
	Scope     Scope
	Focal     string
	Nodes     []string
	Edges     []Edge
	visible   set
	neighbors map[string]set
	adj       *Adjacency
}

// Filter selects the nodes and edges of focal's view. Edges are re-derived
// from the visible node set rather than inherited from the global graph.
func Filter(adj *Adjacency, focal string, scope Scope) *Subgraph {
	visible := set{}
	for _, id := range adj.order {
		if adj.collection[id] == focal {
			visible[id] = struct{}{}
		}
	}

	if scope == ScopeGlobal {
		seeds := make([]string, 0, len(visible))
		for _, id := range adj.order {
			if _, ok := visible[id]; ok {
				seeds = append(seeds, id)
			}
		}
		for _, id := range seeds {
			for n := range adj.out[id] {
				visible[n] = struct{}{}
			}
			for n := range adj.in[id] {
				visible[n] = struct{}{}
			}
		}
	}

	sub := &Subgraph{
		Scope:     scope,
		Focal:     focal,
		visible:   visible,
		neighbors: make(map[string]set, len(visible)),
		adj:       adj,
	}
	for _, id := range adj.order {
		if _, ok := visible[id]; !ok {
			continue
		}
		sub.Nodes = append(sub.Nodes, id)
		sub.neighbors[id] = set{}
	}

	for _, src := range sub.Nodes {
		for _, dst := range adj.Outgoing(src) {
			if _, ok := visible[dst]; !ok {
				continue
			}
			bidi := adj.IsBidirectional(src, dst)
			if bidi && adj.index[dst] < adj.index[src] {
				continue
			}
			sub.Edges = append(sub.Edges, Edge{Source: src, Target: dst, Bidirectional: bidi})
			sub.neighbors[src][dst] = struct{}{}
			sub.neighbors[dst][src] = struct{}{}
		}
	}
	return sub
}

// Contains reports whether id is visible.
func (s *Subgraph) Contains(id string) bool {
	_, ok := s.visible[id]
	return ok
}

// Degree returns the number of distinct visible neighbours of id.
func (s *Subgraph) Degree(id string) int {
	return len(s.neighbors[id])
}

// Neighbors returns the visible neighbours of id in universe order.
func (s *Subgraph) Neighbors(id string) []string {
	return s.adj.ordered(s.neighbors[id])
}
