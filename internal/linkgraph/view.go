package linkgraph

import (
	"fmt"

	"github.com/starford/notegraph/internal/apperr"
	"github.com/starford/notegraph/internal/checksum"
	"github.com/starford/notegraph/internal/models"
	"github.com/starford/notegraph/internal/wikilink"
)

// Edge styles of a view.
const (
	StyleDirected      = "directed"
	StyleBidirectional = "bidirectional"
	StyleCrossing      = "cross-collection"
)

// Snapshot is the in-memory document universe a view is computed from.
// Collections are in display order; Documents span every collection.
type Snapshot struct {
	Collections []models.Collection
	Documents   []models.Document
}

// Hash returns a digest of everything a view depends on.
func (s Snapshot) Hash() string {
	parts := make([]string, 0, 2*len(s.Collections)+4*len(s.Documents))
	for _, c := range s.Collections {
		parts = append(parts, c.ID, c.Name)
	}
	for _, d := range s.Documents {
		parts = append(parts, d.ID, d.CollectionID, d.Name, d.Content)
	}
	return checksum.Strings(parts...)
}

// Request selects the focal collection and scope of a view.
type Request struct {
	CollectionID string
	Scope        Scope
}

// Options configures a Builder.
type Options struct {
	Strategy            SovereigntyStrategy
	ImportanceThreshold int
	Palette             []string
	Layout              LayoutOptions
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Strategy:            SovereigntyExclusive,
		ImportanceThreshold: 3,
		Palette:             DefaultPalette,
		Layout: LayoutOptions{
			NodeGap: DefaultNodeGap,
			RankGap: DefaultRankGap,
		},
	}
}

// ViewNode is a rendered document.
type ViewNode struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Name         string `json:"name"`
	CollectionID string `json:"collection_id"`
	Role         Role   `json:"role"`
	Color        string `json:"color"`
	Importance   bool   `json:"importance"`
	Degree       int    `json:"degree"`
	Size         int    `json:"size"`
	X            int    `json:"x"`
	Y            int    `json:"y"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// ViewEdge is a rendered link.
type ViewEdge struct {
	Source        string `json:"source"`
	Target        string `json:"target"`
	Bidirectional bool   `json:"bidirectional"`
	Style         string `json:"style"`
}

// View is the disposable projection handed to a renderer.
type View struct {
	CollectionID string     `json:"collection_id"`
	Scope        Scope      `json:"scope"`
	Nodes        []ViewNode `json:"nodes"`
	Edges        []ViewEdge `json:"edges"`
	Width        int        `json:"width"`
	Height       int        `json:"height"`
}

// Builder runs the graph pipeline: adjacency, scope filter, classification
// and layout.
type Builder struct {
	opts Options
}

// NewBuilder creates a Builder. Zero fields of opts are filled from
// DefaultOptions.
func NewBuilder(opts Options) *Builder {
	def := DefaultOptions()
	if opts.Strategy == "" {
		opts.Strategy = def.Strategy
	}
	if opts.ImportanceThreshold <= 0 {
		opts.ImportanceThreshold = def.ImportanceThreshold
	}
	if len(opts.Palette) == 0 {
		opts.Palette = def.Palette
	}
	if opts.Layout.NodeGap <= 0 {
		opts.Layout.NodeGap = def.Layout.NodeGap
	}
	if opts.Layout.RankGap <= 0 {
		opts.Layout.RankGap = def.Layout.RankGap
	}
	return &Builder{opts: opts}
}

// Options returns the effective options.
func (b *Builder) Options() Options {
	return b.opts
}

// View computes the view of req over snap. It fails only when the focal
// collection is not part of the snapshot.
func (b *Builder) View(snap Snapshot, req Request) (*View, error) {
	if !hasCollection(snap.Collections, req.CollectionID) {
		return nil, fmt.Errorf("linkgraph: collection %q: %w", req.CollectionID, apperr.ErrNotFound)
	}
	if req.Scope == "" {
		req.Scope = ScopeLocal
	}

	adj := BuildAdjacency(snap.Documents)
	sub := Filter(adj, req.CollectionID, req.Scope)
	classes := Classify(sub, snap.Collections, ClassifyOptions{
		Strategy:            b.opts.Strategy,
		ImportanceThreshold: b.opts.ImportanceThreshold,
		Palette:             b.opts.Palette,
	})

	layoutNodes := make([]LayoutNode, 0, len(sub.Nodes))
	for _, id := range sub.Nodes {
		w, h := NodeSize(req.Scope, sub.Degree(id))
		layoutNodes = append(layoutNodes, LayoutNode{ID: id, Width: w, Height: h})
	}
	boxes := Layout(layoutNodes, sub.Edges, b.opts.Layout)

	v := &View{
		CollectionID: req.CollectionID,
		Scope:        req.Scope,
		Nodes:        make([]ViewNode, 0, len(sub.Nodes)),
		Edges:        make([]ViewEdge, 0, len(sub.Edges)),
	}
	v.Width, v.Height = Extent(boxes)
	for _, id := range sub.Nodes {
		c := classes[id]
		box := boxes[id]
		v.Nodes = append(v.Nodes, ViewNode{
			ID:           id,
			Label:        wikilink.Base(adj.Name(id)),
			Name:         adj.Name(id),
			CollectionID: adj.CollectionOf(id),
			Role:         c.Role,
			Color:        c.Color,
			Importance:   c.Important,
			Degree:       sub.Degree(id),
			Size:         box.Width,
			X:            box.X,
			Y:            box.Y,
			Width:        box.Width,
			Height:       box.Height,
		})
	}
	for _, e := range sub.Edges {
		v.Edges = append(v.Edges, ViewEdge{
			Source:        e.Source,
			Target:        e.Target,
			Bidirectional: e.Bidirectional,
			Style:         edgeStyle(adj, e),
		})
	}
	return v, nil
}

func edgeStyle(adj *Adjacency, e Edge) string {
	switch {
	case e.Bidirectional:
		return StyleBidirectional
	case adj.CollectionOf(e.Source) != adj.CollectionOf(e.Target):
		return StyleCrossing
	default:
		return StyleDirected
	}
}

func hasCollection(cs []models.Collection, id string) bool {
	for _, c := range cs {
		if c.ID == id {
			return true
		}
	}
	return false
}

// BrokenLink is a link name that resolves to no document.
type BrokenLink struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Target     string `json:"target"`
}

// BrokenLinks lists the unresolved links of collectionID's documents,
// resolved against the whole snapshot.
func BrokenLinks(snap Snapshot, collectionID string) []BrokenLink {
	adj := BuildAdjacency(snap.Documents)
	var out []BrokenLink
	for _, d := range snap.Documents {
		if d.CollectionID != collectionID {
			continue
		}
		for _, target := range adj.Unresolved(d.ID) {
			out = append(out, BrokenLink{DocumentID: d.ID, Name: d.Name, Target: target})
		}
	}
	return out
}
