package graph

import "strings"

// Summary is the aggregate view dashboards show next to the graph.
type Summary struct {
	NodeCount       int            `json:"node_count"`
	EdgeCount       int            `json:"edge_count"`
	RelationalEdges int            `json:"relational_edges"`
	ByKind          map[string]int `json:"by_kind"`
	ByRelation      map[string]int `json:"by_relation"`
}

// Summarize counts the nodes and edges of g. Edge labels are grouped by
// their relation name, without the inline annotation.
func Summarize(g *Graph) Summary {
	s := Summary{
		ByKind:     map[string]int{},
		ByRelation: map[string]int{},
	}
	if g == nil {
		return s
	}

	s.NodeCount = len(g.Nodes)
	s.EdgeCount = len(g.Edges)
	for _, n := range g.Nodes {
		s.ByKind[string(n.Kind)]++
	}
	for _, e := range g.Edges {
		if e.Relational {
			s.RelationalEdges++
		}
		s.ByRelation[relationName(e.Label)]++
	}
	return s
}

func relationName(label string) string {
	name, _, _ := strings.Cut(label, " (")
	return name
}
