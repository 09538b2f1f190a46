package linkgraph

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/notegraph/internal/models"
)

// Role is the structural category of a node in a view.
type Role string

const (
	RoleSovereign  Role = "sovereign"
	RoleSubject    Role = "subject"
	RoleNeutral    Role = "neutral"
	RoleCollection Role = "collection"
)

// SovereigntyStrategy decides whether hubs may sit next to each other.
type SovereigntyStrategy string

const (
	// SovereigntyExclusive skips a degree-2 candidate that already touches a
	// sovereign, so hubs spread out across the graph.
	SovereigntyExclusive SovereigntyStrategy = "exclusive"
	// SovereigntyInclusive promotes every node of degree 2 or more. It is
	// deprecated in favour of SovereigntyExclusive and only selected through
	// explicit configuration.
	SovereigntyInclusive SovereigntyStrategy = "inclusive"
)

// ParseSovereigntyStrategy converts s; the empty string means exclusive.
func ParseSovereigntyStrategy(s string) (SovereigntyStrategy, error) {
	switch SovereigntyStrategy(s) {
	case "", SovereigntyExclusive:
		return SovereigntyExclusive, nil
	case SovereigntyInclusive:
		return SovereigntyInclusive, nil
	default:
		return "", fmt.Errorf("linkgraph: unknown sovereignty strategy %q", s)
	}
}

const (
	readmeName      = "readme.md"
	minHubDegree    = 2
	maxSizingDegree = 15
)

// Classification is the category assigned to one visible node.
type Classification struct {
	Role      Role
	Color     string
	Important bool
}

// ClassifyOptions tunes the classifier.
type ClassifyOptions struct {
	Strategy SovereigntyStrategy
	// ImportanceThreshold is the degree a node must exceed to be important
	// in a collection-colored view.
	ImportanceThreshold int
	Palette             []string
}

// Classify assigns exactly one category per node of sub. Local views use
// sovereignty coloring, global views color by owning collection. collections
// must be in display order.
func Classify(sub *Subgraph, collections []models.Collection, opts ClassifyOptions) map[string]Classification {
	if sub.Scope == ScopeGlobal {
		return classifyByCollection(sub, collections, opts)
	}
	return classifyBySovereignty(sub, opts)
}

func classifyByCollection(sub *Subgraph, collections []models.Collection, opts ClassifyOptions) map[string]Classification {
	position := make(map[string]int, len(collections))
	for i, c := range collections {
		position[c.ID] = i
	}
	out := make(map[string]Classification, len(sub.Nodes))
	for _, id := range sub.Nodes {
		color := NeutralColor
		if i, ok := position[sub.adj.CollectionOf(id)]; ok {
			color = paletteColor(opts.Palette, i)
		}
		out[id] = Classification{
			Role:      RoleCollection,
			Color:     color,
			Important: sub.Degree(id) > opts.ImportanceThreshold,
		}
	}
	return out
}

func classifyBySovereignty(sub *Subgraph, opts ClassifyOptions) map[string]Classification {
	ranked := slices.Clone(sub.Nodes)
	slices.SortStableFunc(ranked, func(a, b string) int {
		ra, rb := isReadme(sub.adj.Name(a)), isReadme(sub.adj.Name(b))
		if ra != rb {
			if ra {
				return -1
			}
			return 1
		}
		return cmp.Compare(sub.Degree(b), sub.Degree(a))
	})

	sovereign := make(map[string]int)
	touchesSovereign := func(id string) bool {
		for n := range sub.neighbors[id] {
			if _, ok := sovereign[n]; ok {
				return true
			}
		}
		return false
	}
	for _, id := range ranked {
		switch {
		case isReadme(sub.adj.Name(id)):
		case sub.Degree(id) < minHubDegree:
			continue
		case opts.Strategy == SovereigntyExclusive && touchesSovereign(id):
			continue
		}
		sovereign[id] = len(sovereign)
	}

	out := make(map[string]Classification, len(sub.Nodes))
	for _, id := range sub.Nodes {
		if i, ok := sovereign[id]; ok {
			out[id] = Classification{Role: RoleSovereign, Color: paletteColor(opts.Palette, i), Important: true}
			continue
		}
		owner, owners := "", 0
		for _, n := range sub.Neighbors(id) {
			if _, ok := sovereign[n]; ok {
				owner = n
				owners++
			}
		}
		if owners == 1 {
			out[id] = Classification{Role: RoleSubject, Color: paletteColor(opts.Palette, sovereign[owner]), Important: true}
			continue
		}
		out[id] = Classification{Role: RoleNeutral, Color: NeutralColor}
	}
	return out
}

func isReadme(name string) bool {
	return strings.EqualFold(name, readmeName)
}

type sizing struct {
	base, step, height int
}

var sizes = map[Scope]sizing{
	ScopeLocal:  {base: 160, step: 8, height: 48},
	ScopeGlobal: {base: 120, step: 6, height: 40},
}

// NodeSize returns the rendered width and height of a node of the given
// in-view degree. Width grows linearly with degree up to 15.
func NodeSize(scope Scope, degree int) (width, height int) {
	s, ok := sizes[scope]
	if !ok {
		s = sizes[ScopeLocal]
	}
	return s.base + min(max(degree, 0), maxSizingDegree)*s.step, s.height
}
