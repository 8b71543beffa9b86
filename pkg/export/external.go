package export

import (
	"context"
	"math"

	"github.com/intuitive-data/redesign/pkg/logger"
	"github.com/intuitive-data/redesign/pkg/table"
)

// externalCheck fits the prediction model on a sample of the cleaned
// data and scores it on a held-out split. It is strictly best-effort:
// a disabled model, an exhausted budget or a failed call all leave the
// score unset and the pipeline moves on.
func (e *Exporter) externalCheck(ctx context.Context, work *table.Table, target string, res *Result) {
	if e.scorer == nil {
		return
	}
	if e.maxAPICalls-res.APICallsUsed < callsPerCheck {
		logger.Warn("skipping quick test, api budget too small",
			"budget", e.maxAPICalls, "used", res.APICallsUsed)
		return
	}

	features, targets, ok := matrix(work, target)
	if !ok {
		return
	}

	if len(targets) > MaxRowsForCheck {
		features = features[:MaxRowsForCheck]
		targets = targets[:MaxRowsForCheck]
	}

	trainIdx, testIdx := splitIndices(targets)
	if len(trainIdx) == 0 || len(testIdx) == 0 {
		return
	}
	trainX, trainY := gather(features, targets, trainIdx)
	testX, testY := gather(features, targets, testIdx)

	if err := e.scorer.Fit(ctx, trainX, trainY); err != nil {
		res.APICallsUsed++
		logger.Warn("quick test fit failed", "error", err)
		return
	}
	res.APICallsUsed++

	score, err := e.scorer.Score(ctx, testX, testY)
	if err != nil {
		res.APICallsUsed++
		logger.Warn("quick test score failed", "error", err)
		return
	}
	res.APICallsUsed++

	scaled := score * 100
	res.Score = &scaled
}

// matrix renders the cleaned table as a feature matrix and target
// slice. Cleaning has already made every column numeric; anything else
// is skipped defensively.
func matrix(work *table.Table, target string) ([][]float64, []float64, bool) {
	targetCol, ok := work.Column(target)
	if !ok || targetCol.Kind != table.Numeric {
		return nil, nil, false
	}

	var featureCols []*table.Column
	for _, name := range work.ColumnNames() {
		if name == target {
			continue
		}
		col, _ := work.Column(name)
		if col.Kind == table.Numeric {
			featureCols = append(featureCols, col)
		}
	}
	if len(featureCols) == 0 {
		return nil, nil, false
	}

	rows := work.Rows()
	features := make([][]float64, rows)
	targets := make([]float64, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, len(featureCols))
		for j, col := range featureCols {
			row[j] = col.Floats[i]
		}
		features[i] = row
		targets[i] = targetCol.Floats[i]
	}
	return features, targets, true
}

// splitIndices produces an 80/20 train/test split, stratified by
// target value when every class has at least two members. When
// stratification is impossible the split falls back to a plain cut,
// which gets logged because it can skew the quick test.
func splitIndices(targets []float64) (train, test []int) {
	classes := make(map[float64][]int)
	stratifiable := true
	for i, y := range targets {
		if math.IsNaN(y) {
			continue
		}
		classes[y] = append(classes[y], i)
	}
	if len(classes) == 0 {
		return nil, nil
	}
	if len(classes) > 20 {
		// continuous-looking target, stratification is meaningless
		stratifiable = false
	}
	for _, members := range classes {
		if len(members) < 2 {
			stratifiable = false
			break
		}
	}

	if !stratifiable {
		logger.Warn("quick test split is not stratified")
		n := len(targets)
		cut := n * 4 / 5
		if cut == 0 {
			cut = 1
		}
		if cut == n {
			cut = n - 1
		}
		for i := 0; i < n; i++ {
			if i < cut {
				train = append(train, i)
			} else {
				test = append(test, i)
			}
		}
		return train, test
	}

	for _, members := range classes {
		cut := len(members) * 4 / 5
		if cut == 0 {
			cut = 1
		}
		if cut == len(members) {
			cut = len(members) - 1
		}
		train = append(train, members[:cut]...)
		test = append(test, members[cut:]...)
	}
	return train, test
}

func gather(features [][]float64, targets []float64, idx []int) ([][]float64, []float64) {
	x := make([][]float64, len(idx))
	y := make([]float64, len(idx))
	for k, i := range idx {
		x[k] = features[i]
		y[k] = targets[i]
	}
	return x, y
}
