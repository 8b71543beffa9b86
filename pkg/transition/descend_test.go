package transition

import (
	"math"
	"reflect"
	"testing"

	"github.com/intuitive-data/redesign/pkg/level"
	"github.com/intuitive-data/redesign/pkg/table"
)

func TestAggregateMethods(t *testing.T) {
	v := &level.Vector{Name: "price", Values: []float64{1, 2, math.NaN(), 3}}

	tests := []struct {
		method string
		want   float64
	}{
		{"mean", 2},
		{"sum", 6},
		{"count", 3},
		{"min", 1},
		{"max", 3},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			d, err := Aggregate(v, tt.method)
			if err != nil {
				t.Fatalf("Aggregate(%s): %v", tt.method, err)
			}
			if d.Value == nil || *d.Value != tt.want {
				t.Fatalf("Aggregate(%s) = %v, want %v", tt.method, d.Value, tt.want)
			}
			if d.Meta["aggregation_method"] != tt.method || d.Meta["original_length"] != 4 {
				t.Fatalf("meta = %v", d.Meta)
			}
		})
	}
}

func TestAggregateEdgeCases(t *testing.T) {
	if _, err := Aggregate(&level.Vector{}, "mean"); err == nil {
		t.Fatalf("expected error for empty vector")
	}
	if _, err := Aggregate(&level.Vector{Values: []float64{1}}, "median"); err == nil {
		t.Fatalf("expected error for unknown method")
	}

	allMissing := &level.Vector{Name: "v", Values: []float64{math.NaN(), math.NaN()}}
	d, err := Aggregate(allMissing, "mean")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if d.Value != nil {
		t.Fatalf("mean of all-missing vector = %v, want nil", *d.Value)
	}

	cat := &level.Vector{Name: "c", Strings: []string{"a", "", "b"}}
	d, err = Aggregate(cat, "count")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if d.Value == nil || *d.Value != 2 {
		t.Fatalf("categorical count = %v, want 2", d.Value)
	}
	if _, err := Aggregate(cat, "mean"); err == nil {
		t.Fatalf("expected error for mean over categorical vector")
	}
}

func TestExtractVector(t *testing.T) {
	td := &level.TableData{
		Name: "sales",
		Table: table.MustNew(
			table.NewNumeric("amount", []float64{1, math.NaN(), 3}),
			table.NewCategorical("region", []string{"north", "", "south"}, []bool{false, true, false}),
		),
	}

	num, err := ExtractVector(td, "amount")
	if err != nil {
		t.Fatalf("ExtractVector: %v", err)
	}
	if !num.IsNumeric() || num.Len() != 3 || !math.IsNaN(num.Values[1]) {
		t.Fatalf("numeric vector = %+v", num)
	}
	if num.Meta["extracted_from"] != "sales" || num.Meta["column_kind"] != "numeric" {
		t.Fatalf("meta = %v", num.Meta)
	}

	cat, err := ExtractVector(td, "region")
	if err != nil {
		t.Fatalf("ExtractVector: %v", err)
	}
	if cat.IsNumeric() {
		t.Fatalf("expected categorical vector")
	}
	if !reflect.DeepEqual(cat.Strings, []string{"north", "", "south"}) {
		t.Fatalf("strings = %v", cat.Strings)
	}

	if _, err := ExtractVector(td, "ghost"); err == nil {
		t.Fatalf("expected error for unknown column")
	}
}

func TestFlattenGraph(t *testing.T) {
	gd, err := BuildGraph(regionTable(t), BuildGraphParams{
		EntityColumn: "region",
		ValueColumn:  "amount",
	})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	td, err := FlattenGraph(gd)
	if err != nil {
		t.Fatalf("FlattenGraph: %v", err)
	}
	if td.Table.Rows() != 3 {
		t.Fatalf("rows = %d, want 3", td.Table.Rows())
	}
	target, _ := td.Table.Column("target")
	if target.Strings[0] != "north" {
		t.Fatalf("target[0] = %q", target.Strings[0])
	}
	weight, _ := td.Table.Column("weight")
	if weight.Floats[1] != 20 {
		t.Fatalf("weight[1] = %v", weight.Floats[1])
	}
	if td.Meta["edge_count"] != 3 {
		t.Fatalf("meta = %v", td.Meta)
	}
}

func filePair() *level.FileSet {
	return &level.FileSet{
		Files: []level.File{
			{Name: "orders.csv", Format: "csv", Content: []byte("order_id,customer_id,total\n1,c1,10\n2,c2,20\n")},
			{Name: "customers.csv", Format: "csv", Content: []byte("customer_id,name\nc1,alice\nc2,bob\n")},
		},
	}
}

func TestBuildFileGraph(t *testing.T) {
	gd, err := BuildFileGraph(filePair(), nil)
	if err != nil {
		t.Fatalf("BuildFileGraph: %v", err)
	}
	g := gd.Graph
	// 2 file nodes + 5 column nodes
	if g.NodeCount() != 7 {
		t.Fatalf("node count = %d, want 7", g.NodeCount())
	}
	// 5 has_column edges + 1 joinable edge on customer_id
	if g.EdgeCount() != 6 {
		t.Fatalf("edge count = %d, want 6", g.EdgeCount())
	}
	if gd.Meta["join_suggestions"] != 1 {
		t.Fatalf("join_suggestions = %v", gd.Meta["join_suggestions"])
	}

	joinable := 0
	for _, e := range g.Edges() {
		if e.Relationship == "joinable" {
			joinable++
			if e.SourceColumn != "customer_id" {
				t.Fatalf("joinable column = %q", e.SourceColumn)
			}
		}
	}
	if joinable != 1 {
		t.Fatalf("joinable edges = %d, want 1", joinable)
	}
}

func TestJoinTables(t *testing.T) {
	ordersTbl := table.MustNew(
		table.NewCategorical("customer_id", []string{"c1", "c2", "c1"}, nil),
		table.NewNumeric("total", []float64{10, 20, 5}),
	)
	customersTbl := table.MustNew(
		table.NewCategorical("customer_id", []string{"c1", "c2"}, nil),
		table.NewCategorical("name", []string{"alice", "bob"}, nil),
	)

	joined, err := JoinTables(
		&level.TableData{Table: ordersTbl, Name: "orders"},
		&level.TableData{Table: customersTbl, Name: "customers"},
		"customer_id",
	)
	if err != nil {
		t.Fatalf("JoinTables: %v", err)
	}
	if joined.Table.Rows() != 3 {
		t.Fatalf("rows = %d, want 3", joined.Table.Rows())
	}
	name, ok := joined.Table.Column("name")
	if !ok {
		t.Fatalf("joined table missing name column")
	}
	if !reflect.DeepEqual(name.Strings, []string{"alice", "bob", "alice"}) {
		t.Fatalf("names = %v", name.Strings)
	}
	if joined.Meta["result_rows"] != 3 {
		t.Fatalf("meta = %v", joined.Meta)
	}

	if _, err := JoinTables(&level.TableData{Table: ordersTbl}, &level.TableData{Table: customersTbl}, "ghost"); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}
