package export

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/intuitive-data/redesign/pkg/logger"
	"github.com/intuitive-data/redesign/pkg/table"
)

// Exporter runs the one-shot readiness pipeline: validate, clean,
// optionally test against a prediction model, decide. One exporter can
// serve many exports; every run starts with a fresh API-call budget of
// its own, counted on that run's Result.
type Exporter struct {
	scorer      Scorer
	progress    ProgressFunc
	maxAPICalls int
}

// Options configures an Exporter.
type Options struct {
	// Scorer enables the external quick test. Nil disables it.
	Scorer Scorer

	// APIBudget caps model calls per export run. Zero means no
	// external calls at all.
	APIBudget int

	// Progress receives pipeline updates. Nil means no reporting.
	Progress ProgressFunc
}

// New creates an exporter.
func New(opts Options) *Exporter {
	return &Exporter{
		scorer:      opts.Scorer,
		progress:    opts.Progress,
		maxAPICalls: opts.APIBudget,
	}
}

// Export runs the full pipeline on a table and never returns a Go
// error for data problems: they surface as warnings on a not-ready
// result. Only broken inputs (nil table) fail outright.
func (e *Exporter) Export(ctx context.Context, tbl *table.Table, target string) (*Result, error) {
	if tbl == nil {
		return nil, fmt.Errorf("export requires a table")
	}

	start := time.Now()
	report := newProgressReporter(e.progress)
	report(0.0, "Checking your data...")

	res := &Result{
		Warnings:         []string{},
		Actions:          []CleaningAction{},
		OriginalRowCount: tbl.Rows(),
		OriginalColCount: tbl.ColumnCount(),
	}

	if msg, ok := validate(tbl, target); !ok {
		res.IsReady = false
		res.Summary = msg
		res.Warnings = append(res.Warnings, msg)
		res.Cleaned = tbl.Clone()
		res.CleanedRowCount = tbl.Rows()
		res.CleanedColCount = tbl.ColumnCount()
		res.ProcessingTimeSecs = time.Since(start).Seconds()
		report(1.0, "Done - see the results below.")
		return res, nil
	}

	work := tbl.Clone()

	report(0.25, "Tidying things up...")
	e.clean(work, target, res)

	report(0.6, "Running a quick test...")
	e.externalCheck(ctx, work, target, res)

	report(0.9, "Wrapping up...")
	e.decide(work, res)

	res.ProcessingTimeSecs = time.Since(start).Seconds()
	report(1.0, "Done - see the results below.")
	return res, nil
}

// validate is the cheap gate before any mutation. It returns a plain
// message and false when the table cannot be exported at all.
func validate(tbl *table.Table, target string) (string, bool) {
	targetCol, ok := tbl.Column(target)
	if !ok {
		return PlainWarnings["no_target"], false
	}
	if tbl.Rows() < MinRowsForExport {
		return PlainWarnings["not_enough_rows"], false
	}
	if targetCol.DistinctCount() < 2 {
		return PlainWarnings["single_class"], false
	}
	if tbl.ColumnCount() < 2 {
		return PlainWarnings["no_features"], false
	}
	return "", true
}

// clean applies the automatic fixes in a fixed order and records every
// one of them. The order matters: infinities must become missing
// before missing-value handling, and rows must be dropped before
// per-column statistics are computed.
func (e *Exporter) clean(work *table.Table, target string, res *Result) {
	e.convertInfinities(work, res)
	e.dropMissingTargets(work, target, res)

	filled := false
	encoded := false
	droppedColumns := 0

	for _, name := range work.ColumnNames() {
		if name == target {
			continue
		}
		col, _ := work.Column(name)

		if col.DistinctCount() <= 1 {
			work.DropColumns(name)
			droppedColumns++
			res.Actions = append(res.Actions, CleaningAction{
				Type:         "remove_column",
				Column:       name,
				RowsAffected: work.Rows(),
				Description:  fmt.Sprintf("The column %q was always the same, so it was removed.", name),
			})
			continue
		}

		missingRatio := float64(col.MissingCount()) / float64(col.Len())
		if missingRatio > columnMissingDropRatio {
			work.DropColumns(name)
			droppedColumns++
			res.Actions = append(res.Actions, CleaningAction{
				Type:         "remove_column",
				Column:       name,
				RowsAffected: work.Rows(),
				Description:  fmt.Sprintf("The column %q was mostly empty, so it was removed.", name),
			})
			continue
		}

		switch col.Kind {
		case table.Numeric:
			if e.fillNumeric(work, name, res) {
				filled = true
			}
		case table.Boolean, table.Datetime:
			e.convertToNumeric(work, name, res)
			if e.fillNumeric(work, name, res) {
				filled = true
			}
		case table.Categorical:
			if e.fillCategorical(work, name, res) {
				filled = true
			}
			e.capCardinality(work, name, res)
			e.encodeCategorical(work, name, res)
			encoded = true
		}
	}

	// the model needs numbers everywhere, the target included
	if tc, ok := work.Column(target); ok && tc.Kind == table.Categorical {
		e.encodeCategorical(work, target, res)
	}

	if droppedColumns > 1 {
		res.Warnings = append(res.Warnings, PlainWarnings["column_removed"])
	}
	if encoded {
		res.Warnings = append(res.Warnings, PlainWarnings["text_encoded"])
	}
	if work.Rows() < MinRowsForAssessment {
		res.Warnings = append(res.Warnings, PlainWarnings["small_dataset"])
	}
	if filled {
		res.Warnings = prependUnique(res.Warnings, PlainWarnings["missing_values"])
	}
}

func (e *Exporter) convertInfinities(work *table.Table, res *Result) {
	for _, name := range work.ColumnNames() {
		col, _ := work.Column(name)
		if col.Kind != table.Numeric {
			continue
		}
		converted := 0
		for i, v := range col.Floats {
			if math.IsInf(v, 0) {
				col.Floats[i] = math.NaN()
				converted++
			}
		}
		if converted > 0 {
			res.Actions = append(res.Actions, CleaningAction{
				Type:         "convert_type",
				Column:       name,
				RowsAffected: converted,
				Description:  fmt.Sprintf("Impossible values in %q were cleared.", name),
			})
		}
	}
}

func (e *Exporter) dropMissingTargets(work *table.Table, target string, res *Result) {
	col, _ := work.Column(target)
	before := work.Rows()
	keep := make([]bool, before)
	dropped := 0
	for i := 0; i < before; i++ {
		keep[i] = !col.IsMissing(i)
		if !keep[i] {
			dropped++
		}
	}
	if dropped == 0 {
		return
	}
	filtered := work.FilterRows(keep)
	*work = *filtered
	res.RowsRemoved = dropped
	res.Actions = append(res.Actions, CleaningAction{
		Type:         "remove_rows",
		Column:       target,
		RowsAffected: dropped,
		Description:  fmt.Sprintf("%d rows had no value to predict and were removed.", dropped),
	})
	if float64(dropped)/float64(before) > missingTargetWarnRatio {
		res.Warnings = append(res.Warnings, PlainWarnings["rows_removed"])
	}
}

func (e *Exporter) fillNumeric(work *table.Table, name string, res *Result) bool {
	col, _ := work.Column(name)
	missing := col.MissingCount()
	if missing == 0 {
		return false
	}
	median := col.Median()
	for i, v := range col.Floats {
		if math.IsNaN(v) {
			col.Floats[i] = median
		}
	}
	res.Actions = append(res.Actions, CleaningAction{
		Type:         "fill_missing",
		Column:       name,
		RowsAffected: missing,
		Description:  fmt.Sprintf("Empty cells in %q were filled with a typical value.", name),
	})
	return true
}

func (e *Exporter) fillCategorical(work *table.Table, name string, res *Result) bool {
	col, _ := work.Column(name)
	missing := col.MissingCount()
	if missing == 0 {
		return false
	}
	fill, ok := col.Mode()
	if !ok {
		fill = "unknown"
	}
	for i := range col.Strings {
		if col.Missing[i] {
			col.Strings[i] = fill
			col.Missing[i] = false
		}
	}
	res.Actions = append(res.Actions, CleaningAction{
		Type:         "fill_missing",
		Column:       name,
		RowsAffected: missing,
		Description:  fmt.Sprintf("Empty cells in %q were filled with the most common value.", name),
	})
	return true
}

// convertToNumeric rewrites boolean and datetime columns as numbers in
// place, keeping the missing mask as NaN.
func (e *Exporter) convertToNumeric(work *table.Table, name string, res *Result) {
	col, _ := work.Column(name)
	values := make([]float64, col.Len())
	for i := 0; i < col.Len(); i++ {
		if col.IsMissing(i) {
			values[i] = math.NaN()
			continue
		}
		switch col.Kind {
		case table.Boolean:
			if col.Bools[i] {
				values[i] = 1
			}
		case table.Datetime:
			values[i] = float64(col.Times[i].Unix())
		}
	}
	_ = work.ReplaceColumn(name, table.NewNumeric(name, values))
	res.Actions = append(res.Actions, CleaningAction{
		Type:         "convert_type",
		Column:       name,
		RowsAffected: len(values),
		Description:  fmt.Sprintf("The column %q was turned into numbers.", name),
	})
}

// capCardinality keeps the most frequent values of a text column and
// folds everything else into one shared bucket.
func (e *Exporter) capCardinality(work *table.Table, name string, res *Result) {
	col, _ := work.Column(name)
	if col.DistinctCount() <= HighCardinalityThreshold {
		return
	}
	counts, order := col.ValueCounts()
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	kept := make(map[string]struct{}, topCategories)
	for i := 0; i < topCategories && i < len(order); i++ {
		kept[order[i]] = struct{}{}
	}
	folded := 0
	for i, v := range col.Strings {
		if col.Missing[i] {
			continue
		}
		if _, keep := kept[v]; !keep {
			col.Strings[i] = otherCategory
			folded++
		}
	}
	res.Actions = append(res.Actions, CleaningAction{
		Type:         "encode_category",
		Column:       name,
		RowsAffected: folded,
		Description:  fmt.Sprintf("Rare values in %q were grouped together.", name),
	})
	res.Warnings = append(res.Warnings, PlainWarnings["high_cardinality"])
}

// encodeCategorical replaces a text column with integer codes assigned
// in order of first appearance.
func (e *Exporter) encodeCategorical(work *table.Table, name string, res *Result) {
	col, _ := work.Column(name)
	codes := make(map[string]float64)
	values := make([]float64, col.Len())
	for i, v := range col.Strings {
		if col.Missing[i] {
			values[i] = math.NaN()
			continue
		}
		code, ok := codes[v]
		if !ok {
			code = float64(len(codes))
			codes[v] = code
		}
		values[i] = code
	}
	_ = work.ReplaceColumn(name, table.NewNumeric(name, values))
	res.Actions = append(res.Actions, CleaningAction{
		Type:         "encode_category",
		Column:       name,
		RowsAffected: col.Len(),
		Description:  fmt.Sprintf("Text in %q was converted to numbers.", name),
	})
}

func (e *Exporter) decide(work *table.Table, res *Result) {
	res.Cleaned = work
	res.CleanedRowCount = work.Rows()
	res.CleanedColCount = work.ColumnCount()

	ready := work.Rows() >= MinRowsForExport &&
		work.ColumnCount() >= MinColumns &&
		!hasCriticalWarning(res.Warnings)
	if res.Score != nil && *res.Score < MinScore {
		ready = false
	}

	res.IsReady = ready
	if ready {
		res.Summary = PlainSummaries["ready"]
	} else {
		res.Summary = PlainSummaries["not_ready"]
	}
	logger.Info("export assessed",
		"ready", res.IsReady,
		"rows", res.CleanedRowCount,
		"warnings", len(res.Warnings),
		"api_calls", res.APICallsUsed)
}

func prependUnique(warnings []string, w string) []string {
	for _, existing := range warnings {
		if existing == w {
			return warnings
		}
	}
	return append([]string{w}, warnings...)
}

// newProgressReporter wraps the callback so reported fractions never
// decrease even if stages overlap.
func newProgressReporter(fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return func(float64, string) {}
	}
	last := -1.0
	return func(fraction float64, message string) {
		if fraction < last {
			fraction = last
		}
		last = fraction
		fn(fraction, message)
	}
}
