package linkgraph

import (
	"slices"

	"github.com/starford/notegraph/internal/models"
	"github.com/starford/notegraph/internal/wikilink"
)

type set map[string]struct{}

type pair struct {
	from, to string
}

// Adjacency is the directed link graph of a document universe.
//
// Every document appears in both the forward and the reverse map, isolated
// ones with empty sets. Neighbour listings follow universe order.
type Adjacency struct {
	order      []string
	index      map[string]int
	name       map[string]string
	collection map[string]string
	out        map[string]set
	in         map[string]set
	bidi       map[pair]struct{}
	edges      int
	unresolved map[string][]string
	resolver   *Resolver
}

// BuildAdjacency parses every document and resolves its links against the
// whole universe. Self links are dropped; names that resolve to nothing are
// kept as diagnostics (see Unresolved).
func BuildAdjacency(docs []models.Document) *Adjacency {
	a := &Adjacency{
		index:      make(map[string]int, len(docs)),
		name:       make(map[string]string, len(docs)),
		collection: make(map[string]string, len(docs)),
		out:        make(map[string]set, len(docs)),
		in:         make(map[string]set, len(docs)),
		bidi:       make(map[pair]struct{}),
		unresolved: make(map[string][]string),
		resolver:   NewResolver(docs),
	}

	for _, d := range docs {
		if _, dup := a.index[d.ID]; dup {
			continue
		}
		a.index[d.ID] = len(a.order)
		a.order = append(a.order, d.ID)
		a.name[d.ID] = d.Name
		a.collection[d.ID] = d.CollectionID
		a.out[d.ID] = set{}
		a.in[d.ID] = set{}
	}

	for _, d := range docs {
		var missing []string
		for name := range wikilink.Links(d.Content) {
			target, ok := a.resolver.lookup(name)
			if !ok {
				if !slices.Contains(missing, name) {
					missing = append(missing, name)
				}
				continue
			}
			if target == d.ID {
				continue
			}
			a.addEdge(d.ID, target)
		}
		if len(missing) > 0 {
			a.unresolved[d.ID] = append(a.unresolved[d.ID], missing...)
		}
	}
	return a
}

func (a *Adjacency) addEdge(from, to string) {
	if _, ok := a.out[from][to]; ok {
		return
	}
	a.out[from][to] = struct{}{}
	a.in[to][from] = struct{}{}
	a.edges++
	if _, ok := a.out[to][from]; ok {
		a.bidi[pair{from, to}] = struct{}{}
		a.bidi[pair{to, from}] = struct{}{}
	}
}

// IDs returns the document IDs in universe order.
func (a *Adjacency) IDs() []string {
	return slices.Clone(a.order)
}

// Contains reports whether id is part of the universe.
func (a *Adjacency) Contains(id string) bool {
	_, ok := a.index[id]
	return ok
}

// Name returns the document name of id.
func (a *Adjacency) Name(id string) string {
	return a.name[id]
}

// CollectionOf returns the collection ID of id.
func (a *Adjacency) CollectionOf(id string) string {
	return a.collection[id]
}

// Outgoing returns the documents id links to.
func (a *Adjacency) Outgoing(id string) []string {
	return a.ordered(a.out[id])
}

// Incoming returns the documents linking to id.
func (a *Adjacency) Incoming(id string) []string {
	return a.ordered(a.in[id])
}

// HasEdge reports whether from links to to.
func (a *Adjacency) HasEdge(from, to string) bool {
	_, ok := a.out[from][to]
	return ok
}

// IsBidirectional reports whether x and y link to each other.
func (a *Adjacency) IsBidirectional(x, y string) bool {
	_, ok := a.bidi[pair{x, y}]
	return ok
}

// EdgeCount returns the number of directed links.
func (a *Adjacency) EdgeCount() int {
	return a.edges
}

// Unresolved returns the link names in id's content that match no document,
// in order of first appearance.
func (a *Adjacency) Unresolved(id string) []string {
	return slices.Clone(a.unresolved[id])
}

// Resolver returns the name resolver the graph was built with.
func (a *Adjacency) Resolver() *Resolver {
	return a.resolver
}

func (a *Adjacency) ordered(s set) []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.SortFunc(out, func(x, y string) int {
		return a.index[x] - a.index[y]
	})
	return out
}
