package transition

import (
	"fmt"

	"github.com/intuitive-data/redesign/pkg/graph"
	"github.com/intuitive-data/redesign/pkg/level"
	"github.com/intuitive-data/redesign/pkg/table"
)

// BuildGraphParams configures the table-to-graph transition.
type BuildGraphParams struct {
	// EntityColumn names the column whose values become extracted
	// nodes. Required.
	EntityColumn string

	// Relationship labels every row-to-entity edge. Defaults to
	// "belongs_to".
	Relationship string

	// ValueColumn optionally names a numeric column whose cell becomes
	// the edge weight.
	ValueColumn string

	// ValidateOrphans rejects graphs containing unconnected nodes.
	// Nil means true; pass an explicit false to skip validation.
	ValidateOrphans *bool
}

// BuildGraph lifts a table into a bipartite graph: one node per row,
// one node per distinct entity value, one edge per row that has an
// entity. Rows with a missing entity value still get a node, which
// makes them orphans; by default the whole graph is rejected when any
// orphan exists, and trimming is a separate explicit step.
func BuildGraph(td *level.TableData, params BuildGraphParams) (*level.GraphData, error) {
	if td == nil || td.Table == nil || td.Table.Rows() == 0 {
		return nil, &ValidationError{Operation: "build_graph", Reason: "input table is empty"}
	}
	entityCol, ok := td.Table.Column(params.EntityColumn)
	if !ok {
		return nil, &ValidationError{
			Operation: "build_graph",
			Reason:    fmt.Sprintf("entity column %q not found", params.EntityColumn),
		}
	}
	if params.Relationship == "" {
		params.Relationship = "belongs_to"
	}

	var valueCol *table.Column
	if params.ValueColumn != "" {
		vc, ok := td.Table.Column(params.ValueColumn)
		if !ok {
			return nil, &ValidationError{
				Operation: "build_graph",
				Reason:    fmt.Sprintf("value column %q not found", params.ValueColumn),
			}
		}
		if vc.Kind != table.Numeric {
			return nil, &ValidationError{
				Operation: "build_graph",
				Reason:    fmt.Sprintf("value column %q is not numeric", params.ValueColumn),
			}
		}
		valueCol = vc
	}

	g := graph.New()
	cols := td.Table.Columns()

	for i := 0; i < td.Table.Rows(); i++ {
		props := make(map[string]any, len(cols))
		for j := range cols {
			props[cols[j].Name] = cols[j].CellString(i)
		}
		node := graph.Node{
			ID:         fmt.Sprintf("row_%d", i),
			Label:      fmt.Sprintf("row %d", i),
			NodeType:   "original",
			Properties: props,
		}
		if err := g.AddNode(node); err != nil {
			return nil, err
		}
	}

	entityIDs := make(map[string]string)
	for i := 0; i < entityCol.Len(); i++ {
		if entityCol.IsMissing(i) {
			continue
		}
		value := entityCol.CellString(i)
		if _, exists := entityIDs[value]; exists {
			continue
		}
		id := fmt.Sprintf("ent_%s", value)
		entityIDs[value] = id
		node := graph.Node{
			ID:         id,
			Label:      value,
			NodeType:   "extracted",
			EntityType: params.EntityColumn,
		}
		if err := g.AddNode(node); err != nil {
			return nil, err
		}
	}

	for i := 0; i < entityCol.Len(); i++ {
		if entityCol.IsMissing(i) {
			continue
		}
		edge := graph.Edge{
			Source:       fmt.Sprintf("row_%d", i),
			Target:       entityIDs[entityCol.CellString(i)],
			Relationship: params.Relationship,
			SourceColumn: params.EntityColumn,
		}
		if valueCol != nil && !valueCol.IsMissing(i) {
			w := valueCol.Floats[i]
			edge.Weight = &w
		}
		if err := g.AddEdge(edge); err != nil {
			return nil, err
		}
	}

	if params.ValidateOrphans == nil || *params.ValidateOrphans {
		if orphans := g.Orphans(); len(orphans) > 0 {
			return nil, &OrphanNodeError{
				Orphans: orphans,
				Suggestions: []string{
					fmt.Sprintf("fill or drop missing values in column %q before building", params.EntityColumn),
					"disable orphan validation and remove orphans explicitly",
				},
			}
		}
	}

	return &level.GraphData{
		Graph: g,
		Meta: map[string]any{
			"entity_column":     params.EntityColumn,
			"relationship_type": params.Relationship,
			"node_count":        g.NodeCount(),
			"edge_count":        g.EdgeCount(),
			"bipartite":         true,
		},
	}, nil
}

// RemoveOrphans drops unconnected nodes from a built graph and updates
// its counts. It is never invoked implicitly.
func RemoveOrphans(gd *level.GraphData) []string {
	if gd == nil || gd.Graph == nil {
		return nil
	}
	removed := gd.Graph.RemoveOrphans()
	if gd.Meta != nil {
		gd.Meta["node_count"] = gd.Graph.NodeCount()
		gd.Meta["edge_count"] = gd.Graph.EdgeCount()
	}
	return removed
}
