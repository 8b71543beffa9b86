package transition

import (
	"fmt"
	"math"

	"github.com/intuitive-data/redesign/pkg/graph"
	"github.com/intuitive-data/redesign/pkg/ingest"
	"github.com/intuitive-data/redesign/pkg/level"
	"github.com/intuitive-data/redesign/pkg/table"
)

// Aggregate collapses a vector into a single scalar. Supported methods
// are mean, sum, count, min and max; count is the only method defined
// for categorical vectors. Missing elements are skipped. A vector with
// no usable elements yields a datum with a nil value.
func Aggregate(v *level.Vector, method string) (*level.Datum, error) {
	if v == nil || v.Len() == 0 {
		return nil, &ValidationError{Operation: "aggregate", Reason: "input vector is empty"}
	}

	meta := map[string]any{
		"aggregated_from":    v.Name,
		"aggregation_method": method,
		"original_length":    v.Len(),
	}
	// The datum keeps its own copy of the vector it came from, so a
	// session can move on to other vectors without losing the one an
	// unfold has to reconstruct.
	parent := copyVector(v)

	if !v.IsNumeric() {
		if method != "count" {
			return nil, &ValidationError{
				Operation: "aggregate",
				Reason:    fmt.Sprintf("method %q not defined for categorical vectors", method),
			}
		}
		n := 0.0
		for _, s := range v.Strings {
			if s != "" {
				n++
			}
		}
		return &level.Datum{Value: &n, Label: v.Name, Parent: parent, Meta: meta}, nil
	}

	present := make([]float64, 0, len(v.Values))
	for _, f := range v.Values {
		if !math.IsNaN(f) {
			present = append(present, f)
		}
	}

	if method == "count" {
		n := float64(len(present))
		return &level.Datum{Value: &n, Label: v.Name, Parent: parent, Meta: meta}, nil
	}
	if len(present) == 0 {
		return &level.Datum{Value: nil, Label: v.Name, Parent: parent, Meta: meta}, nil
	}

	var out float64
	switch method {
	case "mean":
		for _, f := range present {
			out += f
		}
		out /= float64(len(present))
	case "sum":
		for _, f := range present {
			out += f
		}
	case "min":
		out = present[0]
		for _, f := range present[1:] {
			if f < out {
				out = f
			}
		}
	case "max":
		out = present[0]
		for _, f := range present[1:] {
			if f > out {
				out = f
			}
		}
	default:
		return nil, &ValidationError{
			Operation: "aggregate",
			Reason:    fmt.Sprintf("unknown aggregation method %q", method),
		}
	}
	return &level.Datum{Value: &out, Label: v.Name, Parent: parent, Meta: meta}, nil
}

// copyVector snapshots a vector so the copy cannot be changed through
// the original.
func copyVector(v *level.Vector) *level.Vector {
	out := &level.Vector{Name: v.Name}
	if v.Values != nil {
		out.Values = append([]float64(nil), v.Values...)
	}
	if v.Strings != nil {
		out.Strings = append([]string(nil), v.Strings...)
	}
	if v.Meta != nil {
		out.Meta = make(map[string]any, len(v.Meta))
		for k, val := range v.Meta {
			out.Meta[k] = val
		}
	}
	return out
}

// ExtractVector pulls a single column out of a table. Numeric columns
// become numeric vectors; everything else is rendered to strings with
// the empty string marking missing cells.
func ExtractVector(td *level.TableData, column string) (*level.Vector, error) {
	if td == nil || td.Table == nil {
		return nil, &ValidationError{Operation: "extract_vector", Reason: "input table is empty"}
	}
	col, ok := td.Table.Column(column)
	if !ok {
		return nil, &ValidationError{
			Operation: "extract_vector",
			Reason:    fmt.Sprintf("column %q not found", column),
		}
	}

	out := &level.Vector{
		Name: column,
		Meta: map[string]any{
			"extracted_from": td.Name,
			"column":         column,
			"column_kind":    col.Kind.String(),
		},
	}
	if col.Kind == table.Numeric {
		out.Values = append([]float64(nil), col.Floats...)
		return out, nil
	}
	out.Strings = make([]string, col.Len())
	for i := 0; i < col.Len(); i++ {
		out.Strings[i] = col.CellString(i)
	}
	return out, nil
}

// FlattenGraph projects a graph onto an edge table. Each edge becomes
// one row carrying the endpoint labels, the relationship and the
// weight, which loses topology but keeps every recorded connection.
func FlattenGraph(gd *level.GraphData) (*level.TableData, error) {
	if gd == nil || gd.Graph == nil {
		return nil, &ValidationError{Operation: "flatten_graph", Reason: "input graph is empty"}
	}
	g := gd.Graph
	edges := g.Edges()

	sources := make([]string, len(edges))
	targets := make([]string, len(edges))
	relationships := make([]string, len(edges))
	weights := make([]float64, len(edges))
	for i, e := range edges {
		sources[i] = nodeLabel(g, e.Source)
		targets[i] = nodeLabel(g, e.Target)
		relationships[i] = e.Relationship
		if e.Weight != nil {
			weights[i] = *e.Weight
		} else {
			weights[i] = math.NaN()
		}
	}

	tbl, err := table.New(
		table.NewCategorical("source", sources, nil),
		table.NewCategorical("target", targets, nil),
		table.NewCategorical("relationship", relationships, nil),
		table.NewNumeric("weight", weights),
	)
	if err != nil {
		return nil, err
	}
	return &level.TableData{
		Table: tbl,
		Meta: map[string]any{
			"flattened_from": level.L3.String(),
			"node_count":     g.NodeCount(),
			"edge_count":     g.EdgeCount(),
		},
	}, nil
}

func nodeLabel(g *graph.Graph, id string) string {
	if n, ok := g.Node(id); ok && n.Label != "" {
		return n.Label
	}
	return id
}

// JoinSuggestion proposes joining two files on a shared column.
// JoinSuggestion names a pair of columns two files could be joined on.
// RightColumn is set only when the columns matched under different
// names; for exact matches Column covers both sides.
type JoinSuggestion struct {
	LeftFile    string `json:"left_file"`
	RightFile   string `json:"right_file"`
	Column      string `json:"column"`
	RightColumn string `json:"right_column,omitempty"`
}

// BuildFileGraph descends a file set into a relationship graph over
// its files and columns. Every file and every column becomes a node,
// files connect to their columns, and columns shared across files get
// joinable edges mirroring SuggestJoins.
func BuildFileGraph(fs *level.FileSet, loader *ingest.Loader) (*level.GraphData, error) {
	if fs == nil || len(fs.Files) == 0 {
		return nil, &ValidationError{Operation: "build_file_graph", Reason: "file set is empty"}
	}
	if loader == nil {
		loader = ingest.NewLoader()
	}

	tables := make(map[string]*table.Table, len(fs.Files))
	order := make([]string, 0, len(fs.Files))
	for _, f := range fs.Files {
		t, err := loader.Load(f)
		if err != nil {
			return nil, err
		}
		tables[f.Name] = t
		order = append(order, f.Name)
	}

	g := graph.New()
	for _, name := range order {
		if err := g.AddNode(graph.Node{
			ID:       "file_" + name,
			Label:    name,
			NodeType: "file",
		}); err != nil {
			return nil, err
		}
		for _, col := range tables[name].ColumnNames() {
			id := fmt.Sprintf("col_%s_%s", name, col)
			if err := g.AddNode(graph.Node{
				ID:         id,
				Label:      col,
				NodeType:   "column",
				EntityType: name,
			}); err != nil {
				return nil, err
			}
			if err := g.AddEdge(graph.Edge{
				Source:       "file_" + name,
				Target:       id,
				Relationship: "has_column",
			}); err != nil {
				return nil, err
			}
		}
	}

	suggestions := SuggestJoins(order, tables)
	for _, s := range suggestions {
		if err := g.AddEdge(graph.Edge{
			Source:       fmt.Sprintf("col_%s_%s", s.LeftFile, s.Column),
			Target:       fmt.Sprintf("col_%s_%s", s.RightFile, s.Column),
			Relationship: "joinable",
			SourceColumn: s.Column,
		}); err != nil {
			return nil, err
		}
	}

	return &level.GraphData{
		Graph: g,
		Meta: map[string]any{
			"file_count":       len(order),
			"join_suggestions": len(suggestions),
			"node_count":       g.NodeCount(),
			"edge_count":       g.EdgeCount(),
		},
	}, nil
}

// SuggestJoins finds columns that appear in more than one file with a
// matching kind. Files are compared in the given order so output is
// deterministic.
func SuggestJoins(order []string, tables map[string]*table.Table) []JoinSuggestion {
	var out []JoinSuggestion
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			left, right := tables[order[i]], tables[order[j]]
			for _, name := range left.ColumnNames() {
				lc, _ := left.Column(name)
				rc, ok := right.Column(name)
				if !ok || lc.Kind != rc.Kind {
					continue
				}
				out = append(out, JoinSuggestion{
					LeftFile:  order[i],
					RightFile: order[j],
					Column:    name,
				})
			}
		}
	}
	return out
}

// JoinTables inner-joins two tables on a shared key column, comparing
// key cells by their rendered string value. Columns from the right
// table keep their names unless they clash, in which case they get the
// right table's name as a prefix.
func JoinTables(left, right *level.TableData, key string) (*level.TableData, error) {
	if left == nil || left.Table == nil || right == nil || right.Table == nil {
		return nil, &ValidationError{Operation: "join_tables", Reason: "both tables are required"}
	}
	lk, ok := left.Table.Column(key)
	if !ok {
		return nil, &ValidationError{Operation: "join_tables", Reason: fmt.Sprintf("key column %q not in left table", key)}
	}
	rk, ok := right.Table.Column(key)
	if !ok {
		return nil, &ValidationError{Operation: "join_tables", Reason: fmt.Sprintf("key column %q not in right table", key)}
	}

	rightRows := make(map[string][]int)
	for i := 0; i < rk.Len(); i++ {
		if rk.IsMissing(i) {
			continue
		}
		v := rk.CellString(i)
		rightRows[v] = append(rightRows[v], i)
	}

	var leftIdx, rightIdx []int
	for i := 0; i < lk.Len(); i++ {
		if lk.IsMissing(i) {
			continue
		}
		for _, j := range rightRows[lk.CellString(i)] {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, j)
		}
	}

	joined, err := table.New()
	if err != nil {
		return nil, err
	}
	for _, c := range left.Table.Columns() {
		if err := joined.AddColumn(pickRows(&c, leftIdx)); err != nil {
			return nil, err
		}
	}
	for _, c := range right.Table.Columns() {
		if c.Name == key {
			continue
		}
		picked := pickRows(&c, rightIdx)
		if joined.HasColumn(picked.Name) {
			picked.Name = right.Name + "_" + picked.Name
		}
		if err := joined.AddColumn(picked); err != nil {
			return nil, err
		}
	}

	return &level.TableData{
		Table: joined,
		Name:  left.Name,
		Meta: map[string]any{
			"joined_on":   key,
			"left_rows":   left.Table.Rows(),
			"right_rows":  right.Table.Rows(),
			"result_rows": joined.Rows(),
		},
	}, nil
}

// pickRows gathers cells by index, allowing duplicates, which a
// boolean row filter cannot express.
func pickRows(c *table.Column, idx []int) table.Column {
	out := table.Column{Name: c.Name, Kind: c.Kind}
	for _, i := range idx {
		switch c.Kind {
		case table.Numeric:
			out.Floats = append(out.Floats, c.Floats[i])
		case table.Categorical:
			out.Strings = append(out.Strings, c.Strings[i])
			out.Missing = append(out.Missing, c.Missing[i])
		case table.Boolean:
			out.Bools = append(out.Bools, c.Bools[i])
			out.Missing = append(out.Missing, c.Missing[i])
		case table.Datetime:
			out.Times = append(out.Times, c.Times[i])
			out.Missing = append(out.Missing, c.Missing[i])
		}
	}
	return out
}
