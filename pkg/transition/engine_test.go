package transition

import (
	"context"
	"reflect"
	"testing"

	"github.com/intuitive-data/redesign/pkg/level"
	"github.com/intuitive-data/redesign/pkg/session"
)

func newSession(t *testing.T) *session.Session {
	t.Helper()
	sess, err := session.New()
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return sess
}

func TestEngineFullDescentAndAscent(t *testing.T) {
	eng := NewEngine()
	sess := newSession(t)
	sess.SetFileSet(filePair())

	if _, err := eng.DescendToGraph(sess); err != nil {
		t.Fatalf("DescendToGraph: %v", err)
	}
	if _, err := eng.DescendToTable(sess); err != nil {
		t.Fatalf("DescendToTable: %v", err)
	}
	if cur, _ := sess.Current(); cur != level.L2 {
		t.Fatalf("current level = %v, want L2", cur)
	}

	v, err := eng.DescendToVector(sess, "weight")
	if err != nil {
		t.Fatalf("DescendToVector: %v", err)
	}
	if v.Len() == 0 {
		t.Fatalf("extracted vector is empty")
	}

	d, err := eng.DescendToScalar(sess, "count")
	if err != nil {
		t.Fatalf("DescendToScalar: %v", err)
	}
	if d.Value == nil {
		t.Fatalf("scalar has no value")
	}

	back, err := eng.AscendToVector(sess)
	if err != nil {
		t.Fatalf("AscendToVector: %v", err)
	}
	if back.Len() != v.Len() {
		t.Fatalf("unfolded length = %d, want %d", back.Len(), v.Len())
	}
	if back.Meta["aggregation_method"] != "count" {
		t.Fatalf("aggregation_method = %v", back.Meta["aggregation_method"])
	}

	history := eng.Lineage().History()
	wantOps := []string{"build_file_graph", "flatten_graph", "extract_vector", "aggregate", "unfold"}
	if len(history) != len(wantOps) {
		t.Fatalf("lineage has %d records, want %d", len(history), len(wantOps))
	}
	for i, op := range wantOps {
		if history[i].OperationType != op {
			t.Fatalf("lineage[%d] = %q, want %q", i, history[i].OperationType, op)
		}
	}
}

func TestEngineRequiresSessionPayload(t *testing.T) {
	eng := NewEngine()
	sess := newSession(t)

	if _, err := eng.DescendToGraph(sess); err == nil {
		t.Fatalf("expected error without file set")
	}
	if _, err := eng.DescendToVector(sess, "x"); err == nil {
		t.Fatalf("expected error without table")
	}
	if _, err := eng.AscendToVector(sess); err == nil {
		t.Fatalf("expected error without scalar")
	}
}

func TestEngineEnrichCaching(t *testing.T) {
	eng := NewEngine()
	sess := newSession(t)
	sess.SetVector(&level.Vector{Name: "price", Values: []float64{10, 10, 10, 100}})

	params := EnrichParams{Domains: []string{"low", "medium", "high"}, Threshold: 0.5}
	ctx := context.Background()

	first, err := eng.AscendToTable(ctx, sess, params)
	if err != nil {
		t.Fatalf("AscendToTable: %v", err)
	}

	// same vector and parameters must hit the cache
	sess.SetVector(&level.Vector{Name: "price", Values: []float64{10, 10, 10, 100}})
	second, err := eng.AscendToTable(ctx, sess, params)
	if err != nil {
		t.Fatalf("AscendToTable: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached table on identical inputs")
	}
	if stats := eng.CacheStats(); stats.Hits != 1 {
		t.Fatalf("cache hits = %d, want 1", stats.Hits)
	}

	// changed threshold must miss
	sess.SetVector(&level.Vector{Name: "price", Values: []float64{10, 10, 10, 100}})
	third, err := eng.AscendToTable(ctx, sess, EnrichParams{Domains: params.Domains, Threshold: 0.9})
	if err != nil {
		t.Fatalf("AscendToTable: %v", err)
	}
	if third == first {
		t.Fatalf("different parameters served from cache")
	}

	history := eng.Lineage().History()
	if len(history) != 3 {
		t.Fatalf("lineage records = %d, want 3", len(history))
	}
	if history[1].Parameters["cached"] != true {
		t.Fatalf("second enrich not marked cached: %v", history[1].Parameters)
	}
}

func TestEngineAscendToGraphRecordsLineage(t *testing.T) {
	eng := NewEngine()
	sess := newSession(t)
	sess.SetTable(regionTable(t))

	gd, err := eng.AscendToGraph(sess, BuildGraphParams{EntityColumn: "region"})
	if err != nil {
		t.Fatalf("AscendToGraph: %v", err)
	}
	if cur, _ := sess.Current(); cur != level.L3 {
		t.Fatalf("current level = %v, want L3", cur)
	}
	if sess.Graph() != gd {
		t.Fatalf("graph not stored in session")
	}

	history := eng.Lineage().History()
	if len(history) != 1 || history[0].OperationType != "build_graph" {
		t.Fatalf("lineage = %+v", history)
	}
	if history[0].InputLevel != level.L2 || history[0].OutputLevel != level.L3 {
		t.Fatalf("lineage levels = %v -> %v", history[0].InputLevel, history[0].OutputLevel)
	}
	if history[0].RowsBefore != 3 {
		t.Fatalf("rows before = %d, want 3", history[0].RowsBefore)
	}
}

func TestEngineJoinFilesMemoizes(t *testing.T) {
	eng := NewEngine()
	sess := newSession(t)
	sess.SetFileSet(filePair())

	first, err := eng.JoinFiles(sess, "orders.csv", "customers.csv", "customer_id")
	if err != nil {
		t.Fatalf("JoinFiles: %v", err)
	}
	if first.Table.Rows() != 2 {
		t.Fatalf("joined rows = %d, want 2", first.Table.Rows())
	}
	if cur, _ := sess.Current(); cur != level.L2 {
		t.Fatalf("current level = %v, want L2", cur)
	}

	second, err := eng.JoinFiles(sess, "orders.csv", "customers.csv", "customer_id")
	if err != nil {
		t.Fatalf("JoinFiles: %v", err)
	}
	if second != first {
		t.Fatalf("expected memoized join on identical inputs")
	}

	history := eng.Lineage().History()
	if len(history) != 2 {
		t.Fatalf("lineage records = %d, want 2", len(history))
	}
	if history[0].Parameters["cached"] != false || history[1].Parameters["cached"] != true {
		t.Fatalf("cached flags = %v, %v", history[0].Parameters["cached"], history[1].Parameters["cached"])
	}

	if _, err := eng.JoinFiles(sess, "orders.csv", "missing.csv", "customer_id"); err == nil {
		t.Fatalf("expected error for file outside the set")
	}
}

func TestEngineUnfoldSurvivesVectorSwitch(t *testing.T) {
	eng := NewEngine()
	sess := newSession(t)
	sess.SetTable(regionTable(t))

	if _, err := eng.DescendToVector(sess, "amount"); err != nil {
		t.Fatalf("DescendToVector: %v", err)
	}
	if _, err := eng.DescendToScalar(sess, "mean"); err != nil {
		t.Fatalf("DescendToScalar: %v", err)
	}

	// moving to another column must not change what the scalar unfolds to
	if _, err := eng.DescendToVector(sess, "region"); err != nil {
		t.Fatalf("DescendToVector: %v", err)
	}

	v, err := eng.AscendToVector(sess)
	if err != nil {
		t.Fatalf("AscendToVector: %v", err)
	}
	if v.Name != "amount" {
		t.Fatalf("unfolded vector = %q, want %q", v.Name, "amount")
	}
	if !reflect.DeepEqual(v.Values, []float64{10, 20, 30}) {
		t.Fatalf("unfolded values = %v, want [10 20 30]", v.Values)
	}
}

func TestEngineSuggestJoinsExact(t *testing.T) {
	eng := NewEngine()
	sess := newSession(t)
	sess.SetFileSet(filePair())

	sugg, err := eng.SuggestJoins(context.Background(), sess)
	if err != nil {
		t.Fatalf("SuggestJoins: %v", err)
	}
	want := []JoinSuggestion{{LeftFile: "orders.csv", RightFile: "customers.csv", Column: "customer_id"}}
	if !reflect.DeepEqual(sugg, want) {
		t.Fatalf("suggestions = %+v, want %+v", sugg, want)
	}
}

func TestEngineSuggestJoinsSemantic(t *testing.T) {
	emb := &fakeEmbedder{
		available: true,
		vectors: map[string][]float32{
			"sale_id,customer,total\n1,c1,10\n2,c2,20": {1, 0},
			"client_id,name\nc1,alice\nc2,bob":         {1, 0.1},
			"customer":  {0, 1},
			"client_id": {0, 1},
			"name":      {1, 0},
		},
	}
	eng := NewEngine(WithEmbedder(emb))
	sess := newSession(t)
	sess.SetFileSet(&level.FileSet{
		Files: []level.File{
			{Name: "sales.csv", Format: "csv", Content: []byte("sale_id,customer,total\n1,c1,10\n2,c2,20\n")},
			{Name: "clients.csv", Format: "csv", Content: []byte("client_id,name\nc1,alice\nc2,bob\n")},
		},
	})

	sugg, err := eng.SuggestJoins(context.Background(), sess)
	if err != nil {
		t.Fatalf("SuggestJoins: %v", err)
	}
	want := []JoinSuggestion{{
		LeftFile:    "sales.csv",
		RightFile:   "clients.csv",
		Column:      "customer",
		RightColumn: "client_id",
	}}
	if !reflect.DeepEqual(sugg, want) {
		t.Fatalf("suggestions = %+v, want %+v", sugg, want)
	}

	// the second call is served from the cache, no new embeddings
	again, err := eng.SuggestJoins(context.Background(), sess)
	if err != nil {
		t.Fatalf("SuggestJoins: %v", err)
	}
	if !reflect.DeepEqual(again, want) {
		t.Fatalf("cached suggestions = %+v", again)
	}
	if emb.calls != 1 {
		t.Fatalf("embedder called %d times, want 1", emb.calls)
	}
	if stats := eng.CacheStats(); stats.Hits != 1 {
		t.Fatalf("cache hits = %d, want 1", stats.Hits)
	}
}
