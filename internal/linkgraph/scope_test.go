package linkgraph

import (
	"slices"
	"testing"

	"github.com/starford/notegraph/internal/models"
)

// two collections: "home" links out to "work"; work has an internal edge
// between two documents that are both neighbours of home.
func scopeFixture() *Adjacency {
	return BuildAdjacency([]models.Document{
		doc("h1", "home", "Index.md", "[[Plan]]"),
		doc("h2", "home", "Diary.md", "[[Meeting]]"),
		doc("w1", "work", "Plan.md", "[[Meeting]] [[Deep]]"),
		doc("w2", "work", "Meeting.md", "[[Retro]]"),
		doc("w3", "work", "Deep.md", ""),
		doc("w4", "work", "Retro.md", "[[Diary]]"),
		doc("x1", "misc", "Unrelated.md", "[[Deep]]"),
	})
}

func TestFilter_Local(t *testing.T) {
	sub := Filter(scopeFixture(), "home", ScopeLocal)
	if !slices.Equal(sub.Nodes, []string{"h1", "h2"}) {
		t.Errorf("nodes = %q", sub.Nodes)
	}
	if len(sub.Edges) != 0 {
		t.Errorf("edges = %+v, want none", sub.Edges)
	}
	if sub.Degree("h1") != 0 {
		t.Errorf("degree(h1) = %d, want 0 in local scope", sub.Degree("h1"))
	}
}

func TestFilter_GlobalOneHop(t *testing.T) {
	sub := Filter(scopeFixture(), "home", ScopeGlobal)
	want := []string{"h1", "h2", "w1", "w2", "w4"}
	if !slices.Equal(sub.Nodes, want) {
		t.Errorf("nodes = %q, want %q", sub.Nodes, want)
	}
	if sub.Contains("w3") || sub.Contains("x1") {
		t.Error("expansion must not be transitive")
	}

	var got [][2]string
	for _, e := range sub.Edges {
		got = append(got, [2]string{e.Source, e.Target})
	}
	wantEdges := [][2]string{
		{"h1", "w1"},
		{"h2", "w2"},
		{"w1", "w2"},
		{"w2", "w4"},
		{"w4", "h2"},
	}
	if !slices.Equal(got, wantEdges) {
		t.Errorf("edges = %v, want %v", got, wantEdges)
	}
	if sub.Degree("w1") != 2 {
		t.Errorf("degree(w1) = %d, want 2 (edge to Deep is out of view)", sub.Degree("w1"))
	}
}

func TestFilter_ScopeMonotonic(t *testing.T) {
	adj := scopeFixture()
	for _, focal := range []string{"home", "work", "misc", "none"} {
		local := Filter(adj, focal, ScopeLocal)
		global := Filter(adj, focal, ScopeGlobal)
		for _, id := range local.Nodes {
			if !global.Contains(id) {
				t.Errorf("focal %s: local node %s missing from global view", focal, id)
			}
		}
	}
}

func TestFilter_BidirectionalSingleEdge(t *testing.T) {
	adj := BuildAdjacency([]models.Document{
		doc("a", "c", "A.md", "[[B]]"),
		doc("b", "c", "B.md", "[[A]]"),
	})
	sub := Filter(adj, "c", ScopeLocal)
	if len(sub.Edges) != 1 {
		t.Fatalf("edges = %+v, want one", sub.Edges)
	}
	e := sub.Edges[0]
	if e.Source != "a" || e.Target != "b" || !e.Bidirectional {
		t.Errorf("edge = %+v", e)
	}
	if sub.Degree("a") != 1 || sub.Degree("b") != 1 {
		t.Error("a bidirectional pair counts as one neighbour")
	}
}

func TestParseScope(t *testing.T) {
	if s, err := ParseScope(""); err != nil || s != ScopeLocal {
		t.Errorf("ParseScope(\"\") = %q, %v", s, err)
	}
	if s, err := ParseScope("global"); err != nil || s != ScopeGlobal {
		t.Errorf("ParseScope(global) = %q, %v", s, err)
	}
	if _, err := ParseScope("galaxy"); err == nil {
		t.Error("expected error")
	}
}
