package export

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/intuitive-data/redesign/pkg/table"
)

type fakeScorer struct {
	score      float64
	fitErr     error
	fitCalls   int
	scoreCalls int
	trainRows  int
	testRows   int
}

func (f *fakeScorer) Fit(_ context.Context, features [][]float64, _ []float64) error {
	f.fitCalls++
	f.trainRows = len(features)
	return f.fitErr
}

func (f *fakeScorer) Score(_ context.Context, features [][]float64, _ []float64) (float64, error) {
	f.scoreCalls++
	f.testRows = len(features)
	return f.score, nil
}

// readyTable builds a complete numeric table that needs no cleaning.
func readyTable(rows int) *table.Table {
	target := make([]float64, rows)
	a := make([]float64, rows)
	b := make([]float64, rows)
	for i := 0; i < rows; i++ {
		target[i] = float64(i % 2)
		a[i] = float64(i)
		b[i] = float64(i * 2)
	}
	return table.MustNew(
		table.NewNumeric("label", target),
		table.NewNumeric("a", a),
		table.NewNumeric("b", b),
	)
}

func TestExportReadyDataset(t *testing.T) {
	e := New(Options{})
	res, err := e.Export(context.Background(), readyTable(60), "label")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !res.IsReady {
		t.Fatalf("clean dataset not ready: %+v", res)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	if res.CleanedRowCount != 60 || res.RowsRemoved != 0 {
		t.Fatalf("rows = %d removed = %d", res.CleanedRowCount, res.RowsRemoved)
	}
	if res.APICallsUsed != 0 {
		t.Fatalf("api calls = %d without a scorer", res.APICallsUsed)
	}
	if res.Score != nil {
		t.Fatalf("score set without a scorer: %v", *res.Score)
	}
	if res.Summary != PlainSummaries["ready"] {
		t.Fatalf("summary = %q", res.Summary)
	}
}

func TestExportValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		table   *table.Table
		target  string
		warning string
	}{
		{
			"missing target column",
			readyTable(20), "ghost",
			PlainWarnings["no_target"],
		},
		{
			"too few rows",
			readyTable(5), "label",
			PlainWarnings["not_enough_rows"],
		},
		{
			"single target value",
			table.MustNew(
				table.NewNumeric("label", make([]float64, 20)),
				table.NewNumeric("a", make([]float64, 20)),
			), "label",
			PlainWarnings["single_class"],
		},
		{
			"no feature columns",
			table.MustNew(table.NewNumeric("label", []float64{0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1})),
			"label",
			PlainWarnings["no_features"],
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(Options{})
			res, err := e.Export(context.Background(), tt.table, tt.target)
			if err != nil {
				t.Fatalf("Export: %v", err)
			}
			if res.IsReady {
				t.Fatalf("invalid dataset reported ready")
			}
			if len(res.Warnings) != 1 || res.Warnings[0] != tt.warning {
				t.Fatalf("warnings = %v, want [%q]", res.Warnings, tt.warning)
			}
			// the summary names the problem, not a generic verdict
			if res.Summary != tt.warning {
				t.Fatalf("summary = %q, want %q", res.Summary, tt.warning)
			}
			if len(res.Actions) != 0 {
				t.Fatalf("validation failure still cleaned: %v", res.Actions)
			}
		})
	}
}

func TestExportDropsMissingTargetRows(t *testing.T) {
	rows := 100
	target := make([]float64, rows)
	a := make([]float64, rows)
	b := make([]float64, rows)
	for i := 0; i < rows; i++ {
		target[i] = float64(i % 2)
		a[i] = float64(i)
		b[i] = float64(i) / 2
	}
	for i := 0; i < 10; i++ {
		target[i*7] = math.NaN()
	}
	tbl := table.MustNew(
		table.NewNumeric("label", target),
		table.NewNumeric("a", a),
		table.NewNumeric("b", b),
	)

	e := New(Options{})
	res, err := e.Export(context.Background(), tbl, "label")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.CleanedRowCount != 90 {
		t.Fatalf("cleaned rows = %d, want 90", res.CleanedRowCount)
	}
	if res.OriginalRowCount != 100 {
		t.Fatalf("original rows = %d, want 100", res.OriginalRowCount)
	}
	if res.OriginalColCount != 3 || res.CleanedColCount != 3 {
		t.Fatalf("columns = %d -> %d, want 3 -> 3", res.OriginalColCount, res.CleanedColCount)
	}
	if res.RowsRemoved != 10 {
		t.Fatalf("rows removed = %d, want 10", res.RowsRemoved)
	}
	if res.APICallsUsed != 0 {
		t.Fatalf("api calls = %d, want 0", res.APICallsUsed)
	}

	var removeAction *CleaningAction
	for i := range res.Actions {
		if res.Actions[i].Type == "remove_rows" {
			removeAction = &res.Actions[i]
		}
	}
	if removeAction == nil || removeAction.RowsAffected != 10 {
		t.Fatalf("remove_rows action = %+v", removeAction)
	}

	// exactly 10% removed does not cross the warning threshold
	for _, w := range res.Warnings {
		if w == PlainWarnings["rows_removed"] {
			t.Fatalf("rows_removed warning at exactly the threshold")
		}
	}
	if !res.IsReady {
		t.Fatalf("dataset should be ready, warnings = %v", res.Warnings)
	}
}

func TestExportWarnsOnHeavyTargetLoss(t *testing.T) {
	rows := 40
	target := make([]float64, rows)
	a := make([]float64, rows)
	b := make([]float64, rows)
	for i := 0; i < rows; i++ {
		target[i] = float64(i % 2)
		a[i] = float64(i)
		b[i] = float64(i)
	}
	for i := 0; i < 8; i++ {
		target[i] = math.NaN()
	}
	tbl := table.MustNew(
		table.NewNumeric("label", target),
		table.NewNumeric("a", a),
		table.NewNumeric("b", b),
	)

	e := New(Options{})
	res, _ := e.Export(context.Background(), tbl, "label")
	found := false
	for _, w := range res.Warnings {
		if w == PlainWarnings["rows_removed"] {
			found = true
		}
	}
	if !found {
		t.Fatalf("20%% target loss produced no warning: %v", res.Warnings)
	}
}

func TestExportRemovesUselessColumns(t *testing.T) {
	rows := 60
	target := make([]float64, rows)
	good := make([]float64, rows)
	constant := make([]float64, rows)
	empty := make([]float64, rows)
	for i := 0; i < rows; i++ {
		target[i] = float64(i % 2)
		good[i] = float64(i)
		constant[i] = 7
		empty[i] = math.NaN()
	}
	empty[0] = 1 // a lone value keeps it above one distinct, still 98% missing
	tbl := table.MustNew(
		table.NewNumeric("label", target),
		table.NewNumeric("good", good),
		table.NewNumeric("constant", constant),
		table.NewNumeric("empty", empty),
	)

	e := New(Options{})
	res, _ := e.Export(context.Background(), tbl, "label")

	if res.Cleaned.HasColumn("constant") || res.Cleaned.HasColumn("empty") {
		t.Fatalf("useless columns survived: %v", res.Cleaned.ColumnNames())
	}
	removals := 0
	for _, a := range res.Actions {
		if a.Type == "remove_column" {
			removals++
		}
	}
	if removals != 2 {
		t.Fatalf("remove_column actions = %d, want 2", removals)
	}

	found := false
	for _, w := range res.Warnings {
		if w == PlainWarnings["column_removed"] {
			found = true
		}
	}
	if !found {
		t.Fatalf("two removals produced no column warning: %v", res.Warnings)
	}
	// that warning is critical, so the result cannot be ready
	if res.IsReady {
		t.Fatalf("result ready despite removed columns")
	}
}

func TestExportFillsAndEncodes(t *testing.T) {
	rows := 60
	target := make([]float64, rows)
	nums := make([]float64, rows)
	cats := make([]string, rows)
	catMissing := make([]bool, rows)
	other := make([]float64, rows)
	for i := 0; i < rows; i++ {
		target[i] = float64(i % 2)
		nums[i] = float64(i)
		cats[i] = fmt.Sprintf("kind_%d", i%3)
		other[i] = float64(i * 3)
	}
	nums[5] = math.NaN()
	cats[7] = ""
	catMissing[7] = true

	tbl := table.MustNew(
		table.NewNumeric("label", target),
		table.NewNumeric("num", nums),
		table.NewCategorical("cat", cats, catMissing),
		table.NewNumeric("other", other),
	)

	e := New(Options{})
	res, _ := e.Export(context.Background(), tbl, "label")

	// the filled-cells warning always leads
	if len(res.Warnings) == 0 || res.Warnings[0] != PlainWarnings["missing_values"] {
		t.Fatalf("warnings = %v, want missing_values first", res.Warnings)
	}
	foundEncoded := false
	for _, w := range res.Warnings {
		if w == PlainWarnings["text_encoded"] {
			foundEncoded = true
		}
	}
	if !foundEncoded {
		t.Fatalf("encoding produced no warning: %v", res.Warnings)
	}

	cat, _ := res.Cleaned.Column("cat")
	if cat.Kind != table.Numeric {
		t.Fatalf("cat column not encoded, kind = %v", cat.Kind)
	}
	// codes follow first appearance: kind_0=0, kind_1=1, kind_2=2
	if cat.Floats[0] != 0 || cat.Floats[1] != 1 || cat.Floats[2] != 2 {
		t.Fatalf("codes = %v %v %v", cat.Floats[0], cat.Floats[1], cat.Floats[2])
	}

	num, _ := res.Cleaned.Column("num")
	if math.IsNaN(num.Floats[5]) {
		t.Fatalf("numeric gap not filled")
	}
	if !res.IsReady {
		t.Fatalf("result not ready: %v", res.Warnings)
	}
}

func TestExportCapsHighCardinality(t *testing.T) {
	rows := 150
	target := make([]float64, rows)
	other := make([]float64, rows)
	cats := make([]string, rows)
	for i := 0; i < rows; i++ {
		target[i] = float64(i % 2)
		other[i] = float64(i)
		cats[i] = fmt.Sprintf("id_%d", i)
	}
	tbl := table.MustNew(
		table.NewNumeric("label", target),
		table.NewCategorical("cat", cats, nil),
		table.NewNumeric("other", other),
	)

	e := New(Options{})
	res, _ := e.Export(context.Background(), tbl, "label")

	found := false
	for _, w := range res.Warnings {
		if w == PlainWarnings["high_cardinality"] {
			found = true
		}
	}
	if !found {
		t.Fatalf("150 distinct values produced no warning: %v", res.Warnings)
	}

	cat, _ := res.Cleaned.Column("cat")
	if cat.Kind != table.Numeric {
		t.Fatalf("capped column not encoded")
	}
	// 99 survivors plus one shared bucket
	if got := cat.DistinctCount(); got != 100 {
		t.Fatalf("distinct codes = %d, want 100", got)
	}
}

func TestExportInfinityHandling(t *testing.T) {
	rows := 60
	target := make([]float64, rows)
	vals := make([]float64, rows)
	other := make([]float64, rows)
	for i := 0; i < rows; i++ {
		target[i] = float64(i % 2)
		vals[i] = float64(i)
		other[i] = float64(i)
	}
	vals[3] = math.Inf(1)
	vals[4] = math.Inf(-1)
	tbl := table.MustNew(
		table.NewNumeric("label", target),
		table.NewNumeric("vals", vals),
		table.NewNumeric("other", other),
	)

	e := New(Options{})
	res, _ := e.Export(context.Background(), tbl, "label")

	var convert *CleaningAction
	for i := range res.Actions {
		if res.Actions[i].Type == "convert_type" && res.Actions[i].Column == "vals" {
			convert = &res.Actions[i]
			break
		}
	}
	if convert == nil || convert.RowsAffected != 2 {
		t.Fatalf("convert_type action = %+v", convert)
	}
	// the infinities became gaps and were then filled
	v, _ := res.Cleaned.Column("vals")
	if math.IsInf(v.Floats[3], 0) || math.IsNaN(v.Floats[3]) {
		t.Fatalf("infinity survived cleaning: %v", v.Floats[3])
	}
}

func TestExportSmallDatasetWarning(t *testing.T) {
	e := New(Options{})
	res, _ := e.Export(context.Background(), readyTable(30), "label")
	found := false
	for _, w := range res.Warnings {
		if w == PlainWarnings["small_dataset"] {
			found = true
		}
	}
	if !found {
		t.Fatalf("30 rows produced no size warning: %v", res.Warnings)
	}
	// the size warning is advice, not a blocker
	if !res.IsReady {
		t.Fatalf("small dataset wrongly blocked: %v", res.Warnings)
	}
}

func TestExportExternalCheck(t *testing.T) {
	scorer := &fakeScorer{score: 0.8}
	e := New(Options{Scorer: scorer, APIBudget: 10})
	res, err := e.Export(context.Background(), readyTable(100), "label")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Score == nil || *res.Score != 80 {
		t.Fatalf("score = %v, want 80", res.Score)
	}
	if res.APICallsUsed != 2 {
		t.Fatalf("api calls = %d, want 2", res.APICallsUsed)
	}
	if scorer.fitCalls != 1 || scorer.scoreCalls != 1 {
		t.Fatalf("fit/score calls = %d/%d", scorer.fitCalls, scorer.scoreCalls)
	}
	// stratified 80/20 over 100 rows
	if scorer.trainRows != 80 || scorer.testRows != 20 {
		t.Fatalf("split = %d/%d, want 80/20", scorer.trainRows, scorer.testRows)
	}
	if !res.IsReady {
		t.Fatalf("high score not ready: %v", res.Warnings)
	}
}

func TestExportLowScoreBlocksReadiness(t *testing.T) {
	e := New(Options{Scorer: &fakeScorer{score: 0.3}, APIBudget: 10})
	res, _ := e.Export(context.Background(), readyTable(100), "label")
	if res.Score == nil || *res.Score != 30 {
		t.Fatalf("score = %v, want 30", res.Score)
	}
	if res.IsReady {
		t.Fatalf("score below the floor still ready")
	}
}

func TestExportBudgetIsPerRun(t *testing.T) {
	scorer := &fakeScorer{score: 0.9}
	e := New(Options{Scorer: scorer, APIBudget: 2})

	first, _ := e.Export(context.Background(), readyTable(100), "label")
	if first.APICallsUsed != 2 {
		t.Fatalf("first export used %d calls", first.APICallsUsed)
	}

	// the next run starts with its own budget, nothing carries over
	second, _ := e.Export(context.Background(), readyTable(100), "label")
	if second.APICallsUsed != 2 {
		t.Fatalf("second export used %d calls, want a fresh budget of 2", second.APICallsUsed)
	}
	if second.Score == nil {
		t.Fatalf("second export has no score")
	}
}

func TestExportBudgetBelowOneCheck(t *testing.T) {
	e := New(Options{Scorer: &fakeScorer{score: 0.9}, APIBudget: 1})
	res, _ := e.Export(context.Background(), readyTable(100), "label")
	if res.APICallsUsed != 0 {
		t.Fatalf("api calls = %d, want 0 when the budget cannot cover a check", res.APICallsUsed)
	}
	if res.Score != nil {
		t.Fatalf("score set without calls")
	}
	// skipping the test never blocks readiness
	if !res.IsReady {
		t.Fatalf("skipped quick test blocked readiness: %v", res.Warnings)
	}
}

func TestExportFitFailureLeavesScoreUnset(t *testing.T) {
	e := New(Options{Scorer: &fakeScorer{fitErr: fmt.Errorf("service down")}, APIBudget: 10})
	res, _ := e.Export(context.Background(), readyTable(100), "label")
	if res.Score != nil {
		t.Fatalf("score set after failed fit")
	}
	if res.APICallsUsed != 1 {
		t.Fatalf("api calls = %d, want 1 for the failed fit", res.APICallsUsed)
	}
	if !res.IsReady {
		t.Fatalf("failed quick test blocked readiness: %v", res.Warnings)
	}
}

func TestExportCleaningIsIdempotent(t *testing.T) {
	rows := 60
	target := make([]float64, rows)
	nums := make([]float64, rows)
	cats := make([]string, rows)
	for i := 0; i < rows; i++ {
		target[i] = float64(i % 2)
		nums[i] = float64(i)
		cats[i] = fmt.Sprintf("kind_%d", i%3)
	}
	nums[5] = math.NaN()
	nums[9] = math.Inf(1)
	tbl := table.MustNew(
		table.NewNumeric("label", target),
		table.NewNumeric("num", nums),
		table.NewCategorical("cat", cats, nil),
	)

	e := New(Options{})
	first, err := e.Export(context.Background(), tbl, "label")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(first.Actions) == 0 {
		t.Fatalf("messy table needed no cleaning")
	}

	second, err := e.Export(context.Background(), first.Cleaned, "label")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(second.Actions) != 0 {
		t.Fatalf("cleaning its own output produced new actions: %+v", second.Actions)
	}
}

func TestExportCSVOutput(t *testing.T) {
	e := New(Options{})
	res, _ := e.Export(context.Background(), readyTable(20), "label")
	raw, err := res.CSV()
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("empty csv output")
	}
}

type progressEvent struct {
	fraction float64
	message  string
}

func collectProgress(t *testing.T, tbl *table.Table, target string) []progressEvent {
	t.Helper()
	var events []progressEvent
	e := New(Options{Progress: func(f float64, msg string) {
		events = append(events, progressEvent{f, msg})
	}})
	if _, err := e.Export(context.Background(), tbl, target); err != nil {
		t.Fatalf("Export: %v", err)
	}
	return events
}

func TestProgressReporting(t *testing.T) {
	events := collectProgress(t, readyTable(60), "label")
	if len(events) < 2 {
		t.Fatalf("too few progress events: %d", len(events))
	}
	if events[0].fraction != 0 {
		t.Fatalf("first fraction = %v, want 0", events[0].fraction)
	}
	if events[len(events)-1].fraction != 1 {
		t.Fatalf("last fraction = %v, want 1", events[len(events)-1].fraction)
	}
	last := -1.0
	for i, ev := range events {
		if ev.fraction < last {
			t.Fatalf("fraction decreased at event %d: %v -> %v", i, last, ev.fraction)
		}
		last = ev.fraction
		if ev.message == "" {
			t.Fatalf("event %d has no message", i)
		}
		assertPlainLanguage(t, ev.message)
	}
}

func TestProgressOnValidationFailure(t *testing.T) {
	events := collectProgress(t, readyTable(5), "label")
	if events[0].fraction != 0 || events[len(events)-1].fraction != 1 {
		t.Fatalf("failed validation still needs full progress: %+v", events)
	}
}
