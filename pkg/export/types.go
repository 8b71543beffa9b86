package export

import (
	"context"

	"github.com/intuitive-data/redesign/pkg/table"
)

const (
	// MinRowsForExport is the hard floor below which nothing useful
	// can be said about the data.
	MinRowsForExport = 10

	// MinRowsForAssessment is where results start being trustworthy;
	// below it the user gets a gentle size warning.
	MinRowsForAssessment = 50

	// HighCardinalityThreshold caps how many distinct values a text
	// column may carry before rare values are grouped.
	HighCardinalityThreshold = 100

	// topCategories is how many of the most frequent values survive a
	// high cardinality cap; everything else folds into one bucket.
	topCategories = 99

	// otherCategory is the bucket rare values fold into.
	otherCategory = "_other_"

	// MaxRowsForCheck bounds how many rows are sent to the external
	// model.
	MaxRowsForCheck = 10000

	// MinScore is the quick-test score below which the data is not
	// considered ready.
	MinScore = 50.0

	// MinColumns is the minimum cleaned column count, target included.
	MinColumns = 3

	missingTargetWarnRatio = 0.10
	columnMissingDropRatio = 0.90

	// callsPerCheck is the API budget one external check consumes:
	// one call to fit, one to score.
	callsPerCheck = 2
)

// CleaningAction records one automatic fix applied to the data.
type CleaningAction struct {
	Type         string `json:"type"`
	Column       string `json:"column,omitempty"`
	RowsAffected int    `json:"rows_affected"`
	Description  string `json:"description"`
}

// Result is the outcome of one export run.
type Result struct {
	IsReady            bool             `json:"is_ready"`
	Summary            string           `json:"summary"`
	Score              *float64         `json:"score,omitempty"`
	Warnings           []string         `json:"warnings"`
	Actions            []CleaningAction `json:"actions"`
	OriginalRowCount   int              `json:"original_row_count"`
	OriginalColCount   int              `json:"original_col_count"`
	CleanedRowCount    int              `json:"cleaned_row_count"`
	CleanedColCount    int              `json:"cleaned_col_count"`
	RowsRemoved        int              `json:"rows_removed"`
	APICallsUsed       int              `json:"api_calls_used"`
	ProcessingTimeSecs float64          `json:"processing_time_seconds"`

	Cleaned *table.Table `json:"-"`
}

// CSV renders the cleaned table as a CSV document.
func (r *Result) CSV() ([]byte, error) {
	return r.Cleaned.CSVBytes()
}

// Scorer is the slice of the prediction model the exporter needs for
// its quick test.
type Scorer interface {
	Fit(ctx context.Context, features [][]float64, target []float64) error
	Score(ctx context.Context, features [][]float64, target []float64) (float64, error)
}

// ProgressFunc receives pipeline progress. Fraction starts at 0,
// finishes at 1 and never decreases; messages use the same plain
// register as the warnings.
type ProgressFunc func(fraction float64, message string)
