package linkgraph

import (
	"fmt"
	"log/slog"

	graphlayout "github.com/gverger/go-graph-layout/layout"
)

// Default spacing of the layered layout.
const (
	DefaultNodeGap = 60
	DefaultRankGap = 100
)

// LayoutOptions holds the separation parameters of the layered layout.
type LayoutOptions struct {
	NodeGap int // between nodes of the same rank
	RankGap int // between consecutive ranks
}

// LayoutNode is a node with its declared size.
type LayoutNode struct {
	ID     string
	Width  int
	Height int
}

// Box is a positioned node. X and Y are the top-left corner.
type Box struct {
	X, Y          int
	Width, Height int
}

// Center returns the center point of the box.
func (b Box) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Layout ranks nodes left to right along edges with a Sugiyama-style layered
// layout. The underlying engine stacks ranks top to bottom, so node sizes are
// transposed on the way in and coordinates on the way out.
//
// Graphs the engine cannot lay out fall back to a single column, with a
// warning logged.
func Layout(nodes []LayoutNode, edges []Edge, opts LayoutOptions) map[string]Box {
	if len(nodes) == 0 {
		return map[string]Box{}
	}
	if opts.NodeGap <= 0 {
		opts.NodeGap = DefaultNodeGap
	}
	if opts.RankGap <= 0 {
		opts.RankGap = DefaultRankGap
	}

	boxes, err := layered(nodes, edges, opts)
	if err != nil {
		slog.Warn("linkgraph: layered layout failed, using a single column",
			slog.Int("nodes", len(nodes)),
			slog.Int("edges", len(edges)),
			slog.String("error", err.Error()))
		return columnLayout(nodes, opts)
	}
	return boxes
}

// layered runs the Sugiyama engine. The engine reports invalid layerings by
// panicking; those come back as errors.
func layered(nodes []LayoutNode, edges []Edge, opts LayoutOptions) (boxes map[string]Box, err error) {
	defer func() {
		if r := recover(); r != nil {
			boxes, err = nil, fmt.Errorf("linkgraph: layout: %v", r)
		}
	}()

	g := graphlayout.Graph{
		Nodes: make(map[uint64]graphlayout.Node, len(nodes)),
		Edges: make(map[[2]uint64]graphlayout.Edge, len(edges)),
	}
	ids := make(map[string]uint64, len(nodes))
	crossExtent := 0
	for i, n := range nodes {
		ids[n.ID] = uint64(i)
		g.Nodes[uint64(i)] = graphlayout.Node{W: n.Height, H: n.Width}
		crossExtent = max(crossExtent, n.Height)
	}
	for _, e := range edges {
		from, okFrom := ids[e.Source]
		to, okTo := ids[e.Target]
		if !okFrom || !okTo || from == to {
			continue
		}
		if _, reverse := g.Edges[[2]uint64{to, from}]; reverse {
			continue
		}
		g.Edges[[2]uint64{from, to}] = graphlayout.Edge{}
	}

	engine := graphlayout.SugiyamaLayersStrategyGraphLayout{
		CycleRemover:   graphlayout.NewSimpleCycleRemover(),
		LevelsAssigner: graphlayout.NewLayeredGraph,
		OrderingAssigner: graphlayout.WarfieldOrderingOptimizer{
			Epochs:                   100,
			LayerOrderingInitializer: graphlayout.BFSOrderingInitializer{},
			LayerOrderingOptimizer: graphlayout.CompositeLayerOrderingOptimizer{
				Optimizers: []graphlayout.LayerOrderingOptimizer{
					graphlayout.WMedianOrderingOptimizer{},
					graphlayout.SwitchAdjacentOrderingOptimizer{},
				},
			},
		}.Optimize,
		NodesHorizontalCoordinatesAssigner: graphlayout.BrandesKopfLayersNodesHorizontalAssigner{
			Delta: crossExtent + opts.NodeGap,
		},
		NodesVerticalCoordinatesAssigner: graphlayout.BasicNodesVerticalCoordinatesAssigner{
			MarginLayers:   opts.RankGap,
			FakeNodeHeight: crossExtent,
		},
		EdgePathAssigner: graphlayout.StraightEdgePathAssigner{}.UpdateGraphLayout,
	}
	engine.UpdateGraphLayout(g)

	boxes = make(map[string]Box, len(nodes))
	for _, n := range nodes {
		placed := g.Nodes[ids[n.ID]]
		boxes[n.ID] = Box{
			X:      placed.Position.Y,
			Y:      placed.Position.X,
			Width:  n.Width,
			Height: n.Height,
		}
	}
	return normalize(boxes), nil
}

// normalize shifts boxes so the top-left-most corner sits at the origin.
func normalize(boxes map[string]Box) map[string]Box {
	minX, minY := 0, 0
	first := true
	for _, b := range boxes {
		if first || b.X < minX {
			minX = b.X
		}
		if first || b.Y < minY {
			minY = b.Y
		}
		first = false
	}
	for id, b := range boxes {
		b.X -= minX
		b.Y -= minY
		boxes[id] = b
	}
	return boxes
}

func columnLayout(nodes []LayoutNode, opts LayoutOptions) map[string]Box {
	boxes := make(map[string]Box, len(nodes))
	y := 0
	for _, n := range nodes {
		boxes[n.ID] = Box{X: 0, Y: y, Width: n.Width, Height: n.Height}
		y += n.Height + opts.NodeGap
	}
	return boxes
}

// Extent returns the width and height of the area covered by boxes.
func Extent(boxes map[string]Box) (width, height int) {
	for _, b := range boxes {
		width = max(width, b.X+b.Width)
		height = max(height, b.Y+b.Height)
	}
	return width, height
}
