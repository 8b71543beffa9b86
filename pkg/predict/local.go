package predict

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// localBackend is the offline baseline: a nearest-centroid classifier
// or a mean regressor. It exists so predictions degrade instead of
// failing when the remote service cannot be reached.
type localBackend struct {
	task Task

	classes   []float64
	centroids map[float64][]float64
	mean      float64
}

func newLocalBackend(task Task) *localBackend {
	return &localBackend{task: task}
}

func (b *localBackend) Name() string {
	return "local"
}

func (b *localBackend) Fit(_ context.Context, features [][]float64, target []float64) error {
	if b.task == Regression {
		sum := 0.0
		for _, y := range target {
			sum += y
		}
		b.mean = sum / float64(len(target))
		return nil
	}

	dims := len(features[0])
	sums := make(map[float64][]float64)
	counts := make(map[float64]int)
	for i, row := range features {
		if len(row) != dims {
			return fmt.Errorf("feature row %d has %d values, want %d", i, len(row), dims)
		}
		y := target[i]
		if sums[y] == nil {
			sums[y] = make([]float64, dims)
		}
		for j, v := range row {
			sums[y][j] += v
		}
		counts[y]++
	}

	b.centroids = make(map[float64][]float64, len(sums))
	b.classes = b.classes[:0]
	for y, sum := range sums {
		centroid := make([]float64, dims)
		for j := range sum {
			centroid[j] = sum[j] / float64(counts[y])
		}
		b.centroids[y] = centroid
		b.classes = append(b.classes, y)
	}
	sort.Float64s(b.classes)
	return nil
}

func (b *localBackend) Predict(_ context.Context, features [][]float64) ([]float64, error) {
	out := make([]float64, len(features))
	if b.task == Regression {
		for i := range out {
			out[i] = b.mean
		}
		return out, nil
	}
	for i, row := range features {
		out[i] = b.nearestClass(row)
	}
	return out, nil
}

func (b *localBackend) PredictProba(_ context.Context, features [][]float64) ([][]float64, error) {
	if b.task != Classification {
		return nil, fmt.Errorf("probabilities are only defined for classification models")
	}
	out := make([][]float64, len(features))
	for i, row := range features {
		out[i] = b.classProbabilities(row)
	}
	return out, nil
}

func (b *localBackend) nearestClass(row []float64) float64 {
	best := b.classes[0]
	bestDist := math.Inf(1)
	for _, class := range b.classes {
		d := squaredDistance(row, b.centroids[class])
		if d < bestDist {
			bestDist = d
			best = class
		}
	}
	return best
}

// classProbabilities converts centroid distances into a distribution
// with inverse-distance weighting. An exact centroid hit gets all the
// mass.
func (b *localBackend) classProbabilities(row []float64) []float64 {
	weights := make([]float64, len(b.classes))
	total := 0.0
	for i, class := range b.classes {
		d := squaredDistance(row, b.centroids[class])
		if d == 0 {
			probs := make([]float64, len(b.classes))
			probs[i] = 1
			return probs
		}
		weights[i] = 1 / d
		total += weights[i]
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}

func squaredDistance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
