package graph

import (
	"github.com/kitchenlens/relgraph/pkg/common"
)

// Graph is the assembled, renderable entity-relationship graph.
//
// A Graph is built fresh by every assembly and is not modified afterwards.
// It guarantees that:
//   - no two nodes share an id (the first record with an id wins)
//   - every edge endpoint is the id of a node in the graph
//   - every node's Category indexes Categories, which mirrors the kind list
//     of the mode that produced the graph
type Graph struct {
	Mode       common.Mode `json:"mode"`
	Nodes      []Node      `json:"nodes"`
	Edges      []Edge      `json:"edges"`
	Categories []Category  `json:"categories"`

	index map[NodeID]int
}

// Node is one materialized record.
type Node struct {
	ID            NodeID           `json:"id"`
	Name          string           `json:"name"`
	Kind          EntityKind       `json:"kind"`
	CategoryIndex int              `json:"category"`
	VisualWeight  float64          `json:"symbol_size"`
	Style         NodeStyle        `json:"item_style"`
	Attributes    common.RawRecord `json:"attributes"`
}

// NodeStyle carries the rendering color of a node.
type NodeStyle struct {
	Color string `json:"color"`
}

// Edge connects two nodes. The label may carry an inline annotation such as
// "similar_to (0.87)"; edges have no other weight. Relational is set for
// edges derived from the relations map rather than from a parent field.
type Edge struct {
	Source     NodeID `json:"source"`
	Target     NodeID `json:"target"`
	Label      string `json:"label"`
	Relational bool   `json:"relational,omitempty"`
}

// Category is one legend entry; Categories[i] describes nodes whose
// CategoryIndex is i.
type Category struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	if g == nil {
		return Node{}, false
	}
	if g.index != nil {
		i, ok := g.index[id]
		if !ok {
			return Node{}, false
		}
		return g.Nodes[i], true
	}
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Attributes returns the original record of the node with the given id, as
// shown by the detail inspection panel.
func (g *Graph) Attributes(id NodeID) (common.RawRecord, bool) {
	n, ok := g.Node(id)
	if !ok {
		return nil, false
	}
	return n.Attributes, true
}

// Has reports whether a node with the given id exists.
func (g *Graph) Has(id NodeID) bool {
	_, ok := g.Node(id)
	return ok
}

// EdgesOf returns the edges that start or end at id, in graph order.
func (g *Graph) EdgesOf(id NodeID) []Edge {
	edges := []Edge{}
	if g == nil {
		return edges
	}
	for _, e := range g.Edges {
		if e.Source == id || e.Target == id {
			edges = append(edges, e)
		}
	}
	return edges
}
