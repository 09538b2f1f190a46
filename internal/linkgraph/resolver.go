// Package linkgraph builds the wiki-link graph of a document universe and
// projects it into classified, laid-out views.
//
// Everything here is pure: views are recomputed from document text and never
// persisted.
package linkgraph

import (
	"sort"

	"github.com/starford/notegraph/internal/models"
	"github.com/starford/notegraph/internal/wikilink"
)

// Resolver maps link names to document IDs.
//
// Lookup tries the exact name first and then the name with ".md" appended.
// When several documents share a name the one that comes last in the
// universe wins; callers that care can inspect Ambiguous.
type Resolver struct {
	byName map[string]string
	counts map[string]int
}

// NewResolver indexes docs by name. docs should be the full cross-collection
// universe even when the rendered scope is narrower.
func NewResolver(docs []models.Document) *Resolver {
	r := &Resolver{
		byName: make(map[string]string, len(docs)),
		counts: make(map[string]int, len(docs)),
	}
	for _, d := range docs {
		r.byName[d.Name] = d.ID
		r.counts[wikilink.Base(d.Name)]++
	}
	return r
}

// Resolve returns the ID of the document that name refers to. A match on
// sourceID itself is reported as not found.
func (r *Resolver) Resolve(name, sourceID string) (string, bool) {
	id, ok := r.lookup(name)
	if !ok || id == sourceID {
		return "", false
	}
	return id, true
}

func (r *Resolver) lookup(name string) (string, bool) {
	if id, ok := r.byName[name]; ok {
		return id, true
	}
	id, ok := r.byName[name+wikilink.Ext]
	return id, ok
}

// Ambiguous returns the sorted names (without .md) shared by more than one
// document.
func (r *Resolver) Ambiguous() []string {
	var out []string
	for name, n := range r.counts {
		if n > 1 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
