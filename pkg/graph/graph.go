package graph

import (
	"fmt"
	"sort"
)

// Node is a graph vertex. NodeType separates row-backed nodes from
// nodes extracted out of cell values; EntityType carries the source
// column for extracted nodes.
type Node struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	NodeType   string         `json:"node_type"`
	EntityType string         `json:"entity_type,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Edge is a directed connection between two node ids. Weight is nil
// when the edge carries no numeric strength.
type Edge struct {
	Source       string   `json:"source"`
	Target       string   `json:"target"`
	Relationship string   `json:"relationship"`
	SourceColumn string   `json:"source_column,omitempty"`
	Weight       *float64 `json:"weight,omitempty"`
}

// Graph holds nodes in insertion order with an id index, and edges by
// value. Edges reference nodes purely by id, so a graph survives JSON
// round trips without pointer fixups.
type Graph struct {
	nodes []Node
	index map[string]int
	edges []Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// AddNode inserts a node. Adding an id that already exists is an error,
// node ids are the identity of the graph.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return fmt.Errorf("node id must not be empty")
	}
	if _, exists := g.index[n.ID]; exists {
		return fmt.Errorf("node %q already exists", n.ID)
	}
	g.index[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	return nil
}

// AddEdge inserts an edge. Both endpoints must already be present.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.index[e.Source]; !ok {
		return fmt.Errorf("edge source %q not in graph", e.Source)
	}
	if _, ok := g.index[e.Target]; !ok {
		return fmt.Errorf("edge target %q not in graph", e.Target)
	}
	g.edges = append(g.edges, e)
	return nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	return g.nodes
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Orphans returns the ids of nodes with no incident edge, in node
// insertion order. Runs in O(V+E).
func (g *Graph) Orphans() []string {
	connected := make(map[string]struct{}, len(g.nodes))
	for _, e := range g.edges {
		connected[e.Source] = struct{}{}
		connected[e.Target] = struct{}{}
	}
	var orphans []string
	for _, n := range g.nodes {
		if _, ok := connected[n.ID]; !ok {
			orphans = append(orphans, n.ID)
		}
	}
	return orphans
}

// RemoveOrphans drops every node with no incident edge and returns the
// ids that were removed.
func (g *Graph) RemoveOrphans() []string {
	orphans := g.Orphans()
	if len(orphans) == 0 {
		return nil
	}
	gone := make(map[string]struct{}, len(orphans))
	for _, id := range orphans {
		gone[id] = struct{}{}
	}
	kept := g.nodes[:0:0]
	for _, n := range g.nodes {
		if _, drop := gone[n.ID]; !drop {
			kept = append(kept, n)
		}
	}
	g.nodes = kept
	g.index = make(map[string]int, len(kept))
	for i, n := range g.nodes {
		g.index[n.ID] = i
	}
	return orphans
}

// Degree returns the number of edges incident to the node id.
func (g *Graph) Degree(id string) int {
	d := 0
	for _, e := range g.edges {
		if e.Source == id {
			d++
		}
		if e.Target == id {
			d++
		}
	}
	return d
}

// Stats summarizes a graph for quick inspection.
type Stats struct {
	NodeCount   int            `json:"node_count"`
	EdgeCount   int            `json:"edge_count"`
	OrphanCount int            `json:"orphan_count"`
	NodeTypes   map[string]int `json:"node_types"`
	EntityTypes map[string]int `json:"entity_types"`
}

// Stats computes node, edge and orphan counts plus per-type histograms.
func (g *Graph) Stats() Stats {
	s := Stats{
		NodeCount:   len(g.nodes),
		EdgeCount:   len(g.edges),
		OrphanCount: len(g.Orphans()),
		NodeTypes:   make(map[string]int),
		EntityTypes: make(map[string]int),
	}
	for _, n := range g.nodes {
		s.NodeTypes[n.NodeType]++
		if n.EntityType != "" {
			s.EntityTypes[n.EntityType]++
		}
	}
	return s
}

// NeighborsOf returns the ids adjacent to the node, sorted for
// deterministic output.
func (g *Graph) NeighborsOf(id string) []string {
	seen := make(map[string]struct{})
	for _, e := range g.edges {
		if e.Source == id {
			seen[e.Target] = struct{}{}
		}
		if e.Target == id {
			seen[e.Source] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
