package graph

import (
	"encoding/json"
	"fmt"
)

type wireGraph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// MarshalJSON encodes the graph as {"nodes": [...], "edges": [...]}
// preserving insertion order.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireGraph{Nodes: g.nodes, Edges: g.edges})
}

// UnmarshalJSON decodes a graph, rebuilding the id index and validating
// edge endpoints.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var w wireGraph
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decoding graph: %w", err)
	}
	g.nodes = nil
	g.edges = nil
	g.index = make(map[string]int, len(w.Nodes))
	for _, n := range w.Nodes {
		if err := g.AddNode(n); err != nil {
			return err
		}
	}
	for _, e := range w.Edges {
		if err := g.AddEdge(e); err != nil {
			return err
		}
	}
	return nil
}
