package linkgraph

import (
	"slices"
	"testing"

	"github.com/starford/notegraph/internal/models"
)

func doc(id, collection, name, content string) models.Document {
	return models.Document{ID: id, CollectionID: collection, Name: name, Content: content}
}

func TestResolver_ExactThenSuffixed(t *testing.T) {
	r := NewResolver([]models.Document{
		doc("1", "c", "Todo.md", ""),
		doc("2", "c", "Plain", ""),
	})
	if id, ok := r.Resolve("Todo", "x"); !ok || id != "1" {
		t.Errorf("Resolve(Todo) = %q, %v", id, ok)
	}
	if id, ok := r.Resolve("Todo.md", "x"); !ok || id != "1" {
		t.Errorf("Resolve(Todo.md) = %q, %v", id, ok)
	}
	if id, ok := r.Resolve("Plain", "x"); !ok || id != "2" {
		t.Errorf("Resolve(Plain) = %q, %v", id, ok)
	}
	if _, ok := r.Resolve("todo", "x"); ok {
		t.Error("resolution should be case-sensitive")
	}
	if _, ok := r.Resolve("Todo", "1"); ok {
		t.Error("a document must not resolve to itself")
	}
}

func TestResolver_LastWriteWins(t *testing.T) {
	r := NewResolver([]models.Document{
		doc("1", "a", "Dup.md", ""),
		doc("2", "b", "Dup.md", ""),
	})
	if id, _ := r.Resolve("Dup", "x"); id != "2" {
		t.Errorf("Resolve(Dup) = %q, want 2", id)
	}
	if got := r.Ambiguous(); !slices.Equal(got, []string{"Dup"}) {
		t.Errorf("ambiguous = %q", got)
	}
}

func TestBuildAdjacency_ReadmeScenario(t *testing.T) {
	adj := BuildAdjacency([]models.Document{
		doc("readme", "c", "README.md", "[[Todo]]"),
		doc("todo", "c", "Todo.md", "no links"),
		doc("orphan", "c", "Orphan.md", "no links"),
	})
	if !slices.Equal(adj.Outgoing("readme"), []string{"todo"}) {
		t.Errorf("outgoing(readme) = %q", adj.Outgoing("readme"))
	}
	if !slices.Equal(adj.Incoming("todo"), []string{"readme"}) {
		t.Errorf("incoming(todo) = %q", adj.Incoming("todo"))
	}
	if !adj.Contains("orphan") {
		t.Fatal("isolated document missing from graph")
	}
	if len(adj.Outgoing("orphan")) != 0 || len(adj.Incoming("orphan")) != 0 {
		t.Error("orphan should have no links")
	}
	if adj.EdgeCount() != 1 {
		t.Errorf("edges = %d, want 1", adj.EdgeCount())
	}
}

func TestBuildAdjacency_SelfLinkExcluded(t *testing.T) {
	adj := BuildAdjacency([]models.Document{
		doc("a", "c", "A.md", "[[A]] [[A.md]] [[B]]"),
		doc("b", "c", "B.md", ""),
	})
	if adj.HasEdge("a", "a") {
		t.Error("self edge present")
	}
	if slices.Contains(adj.Incoming("a"), "a") {
		t.Error("self in reverse map")
	}
	if len(adj.Unresolved("a")) != 0 {
		t.Errorf("self links reported as broken: %q", adj.Unresolved("a"))
	}
}

func TestBuildAdjacency_DuplicateLinksCountOnce(t *testing.T) {
	adj := BuildAdjacency([]models.Document{
		doc("a", "c", "A.md", "[[B]] [[B.md]] [[B]]"),
		doc("b", "c", "B.md", ""),
	})
	if adj.EdgeCount() != 1 {
		t.Errorf("edges = %d, want 1", adj.EdgeCount())
	}
}

func TestBuildAdjacency_BidirectionalSymmetry(t *testing.T) {
	docs := []models.Document{
		doc("a", "c", "A.md", "[[B]] [[C]]"),
		doc("b", "c", "B.md", "[[A]]"),
		doc("c", "c", "C.md", "[[D]]"),
		doc("d", "x", "D.md", "[[C]] [[A]]"),
	}
	adj := BuildAdjacency(docs)
	for _, x := range docs {
		for _, y := range docs {
			if adj.IsBidirectional(x.ID, y.ID) != adj.IsBidirectional(y.ID, x.ID) {
				t.Errorf("asymmetric bidirectionality for %s,%s", x.ID, y.ID)
			}
			want := adj.HasEdge(x.ID, y.ID) && adj.HasEdge(y.ID, x.ID)
			if adj.IsBidirectional(x.ID, y.ID) != want {
				t.Errorf("IsBidirectional(%s,%s) = %v, want %v", x.ID, y.ID, !want, want)
			}
		}
	}
	if !adj.IsBidirectional("a", "b") || !adj.IsBidirectional("c", "d") {
		t.Error("expected a<->b and c<->d")
	}
	if adj.IsBidirectional("a", "c") {
		t.Error("a->c is one-way")
	}
}

func TestBuildAdjacency_CrossCollectionAndBroken(t *testing.T) {
	adj := BuildAdjacency([]models.Document{
		doc("a", "one", "A.md", "[[Far]] [[Missing]] [[Missing]] [[unterminated"),
		doc("f", "two", "Far.md", ""),
	})
	if !adj.HasEdge("a", "f") {
		t.Error("links resolve across collections")
	}
	if got := adj.Unresolved("a"); !slices.Equal(got, []string{"Missing"}) {
		t.Errorf("unresolved = %q", got)
	}
}
