package table

import (
	"math"
	"sort"
)

// Median returns the median of the column's non-missing values. It
// returns NaN for non-numeric columns and for columns with no values.
func (c *Column) Median() float64 {
	if c.Kind != Numeric {
		return math.NaN()
	}
	vals := c.presentFloats()
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}

// Mean returns the arithmetic mean of the non-missing values, or NaN
// when there are none.
func (c *Column) Mean() float64 {
	if c.Kind != Numeric {
		return math.NaN()
	}
	vals := c.presentFloats()
	if len(vals) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// Stddev returns the sample standard deviation of the non-missing
// values, or NaN when there are fewer than two.
func (c *Column) Stddev() float64 {
	if c.Kind != Numeric {
		return math.NaN()
	}
	vals := c.presentFloats()
	if len(vals) < 2 {
		return math.NaN()
	}
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	ss := 0.0
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)-1))
}

// Mode returns the most frequent non-missing value rendered as a
// string, and false when the column is empty or entirely missing. Ties
// break toward the value seen first.
func (c *Column) Mode() (string, bool) {
	counts := make(map[string]int)
	order := make([]string, 0)
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			continue
		}
		s := c.CellString(i)
		if counts[s] == 0 {
			order = append(order, s)
		}
		counts[s]++
	}
	if len(order) == 0 {
		return "", false
	}
	best := order[0]
	for _, s := range order[1:] {
		if counts[s] > counts[best] {
			best = s
		}
	}
	return best, true
}

// DistinctCount returns the number of distinct non-missing values.
func (c *Column) DistinctCount() int {
	seen := make(map[string]struct{})
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			continue
		}
		seen[c.CellString(i)] = struct{}{}
	}
	return len(seen)
}

// ValueCounts returns the frequency of each distinct non-missing value,
// rendered as strings, plus the insertion order of first appearance.
func (c *Column) ValueCounts() (map[string]int, []string) {
	counts := make(map[string]int)
	order := make([]string, 0)
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			continue
		}
		s := c.CellString(i)
		if counts[s] == 0 {
			order = append(order, s)
		}
		counts[s]++
	}
	return counts, order
}

func (c *Column) presentFloats() []float64 {
	vals := make([]float64, 0, len(c.Floats))
	for _, v := range c.Floats {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	return vals
}
