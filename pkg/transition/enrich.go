package transition

import (
	"context"
	"math"
	"strings"

	"github.com/intuitive-data/redesign/pkg/ai"
	"github.com/intuitive-data/redesign/pkg/level"
	"github.com/intuitive-data/redesign/pkg/logger"
	"github.com/intuitive-data/redesign/pkg/table"
)

// DefaultEnrichThreshold is used when a caller does not pick one.
const DefaultEnrichThreshold = 0.7

// EnrichParams configures the vector-to-table enrichment.
type EnrichParams struct {
	// Domains are the candidate labels; must not be empty.
	Domains []string

	// Threshold steers both paths: for numeric vectors it scales the
	// stddev band around the median, for categorical vectors it is the
	// minimum cosine similarity for a semantic match. Must be in [0,1].
	Threshold float64

	// Vocabulary optionally maps a domain to keywords for the
	// non-semantic categorical path.
	Vocabulary map[string][]string

	// Embedder enables semantic matching for categorical vectors.
	// When nil or unavailable the keyword and positional fallbacks
	// apply.
	Embedder ai.Embedder
}

// Enrich assigns every vector element to a domain, producing a
// two-column table of the original value and its domain label.
func Enrich(ctx context.Context, v *level.Vector, params EnrichParams) (*level.TableData, error) {
	if v == nil || v.Len() == 0 {
		return nil, &ValidationError{Operation: "enrich", Reason: "input vector is empty"}
	}
	if len(params.Domains) == 0 {
		return nil, &ValidationError{Operation: "enrich", Reason: "domains must not be empty"}
	}
	if params.Threshold < 0 || params.Threshold > 1 {
		return nil, &ValidationError{Operation: "enrich", Reason: "threshold must be in [0, 1]"}
	}

	var (
		labels   []string
		strategy string
		valueCol table.Column
	)

	if v.IsNumeric() {
		labels = enrichNumeric(v.Values, params)
		strategy = "statistical"
		valueCol = table.NewNumeric("value", append([]float64(nil), v.Values...))
	} else {
		labels, strategy = enrichCategorical(ctx, v.Strings, params)
		missing := make([]bool, len(v.Strings))
		for i, s := range v.Strings {
			missing[i] = s == ""
		}
		valueCol = table.NewCategorical("value", append([]string(nil), v.Strings...), missing)
	}

	domainCol := table.NewCategorical("domain", labels, nil)
	tbl, err := table.New(valueCol, domainCol)
	if err != nil {
		return nil, err
	}

	return &level.TableData{
		Table: tbl,
		Name:  v.Name,
		Meta: map[string]any{
			"enriched_from":     level.L1.String(),
			"domains":           append([]string(nil), params.Domains...),
			"threshold":         params.Threshold,
			"matching_strategy": strategy,
		},
	}, nil
}

// enrichNumeric buckets each value against a stddev band around the
// median. Band edges prefer domains named like the bucket and fall
// back to positional picks.
func enrichNumeric(values []float64, params EnrichParams) []string {
	col := table.NewNumeric("v", values)
	median := col.Median()
	stddev := col.Stddev()
	band := params.Threshold * stddev

	high := domainContaining(params.Domains, "high")
	if high == "" {
		high = params.Domains[0]
	}
	low := domainContaining(params.Domains, "low")
	if low == "" {
		low = params.Domains[len(params.Domains)-1]
	}
	mid := domainContaining(params.Domains, "mid", "medium")
	if mid == "" {
		if len(params.Domains) > 2 {
			mid = params.Domains[len(params.Domains)/2]
		} else {
			mid = "medium"
		}
	}

	labels := make([]string, len(values))
	for i, val := range values {
		switch {
		case math.IsNaN(val):
			labels[i] = "unknown"
		case val >= median+band:
			labels[i] = high
		case val <= median-band:
			labels[i] = low
		default:
			labels[i] = mid
		}
	}
	return labels
}

func enrichCategorical(ctx context.Context, values []string, params EnrichParams) ([]string, string) {
	if params.Embedder != nil && params.Embedder.Available(ctx) {
		labels, err := enrichSemantic(ctx, values, params)
		if err == nil {
			return labels, "semantic"
		}
		logger.Warn("semantic matching failed, falling back", "error", err)
	}
	if len(params.Vocabulary) > 0 {
		return enrichKeyword(values, params), "keyword"
	}
	// No signal to match on. Positional assignment keeps the output
	// total but carries no meaning; callers should prefer a vocabulary
	// or an embedder.
	labels := make([]string, len(values))
	for i := range values {
		labels[i] = params.Domains[i%len(params.Domains)]
	}
	return labels, "positional"
}

// enrichSemantic embeds each distinct value once and picks the domain
// with the highest cosine similarity, requiring it to clear the
// threshold.
func enrichSemantic(ctx context.Context, values []string, params EnrichParams) ([]string, error) {
	domainVecs, err := params.Embedder.Embed(ctx, params.Domains)
	if err != nil {
		return nil, err
	}

	distinct := make([]string, 0)
	seen := make(map[string]int)
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = len(distinct)
			distinct = append(distinct, v)
		}
	}

	valueVecs, err := params.Embedder.Embed(ctx, distinct)
	if err != nil {
		return nil, err
	}

	assigned := make([]string, len(distinct))
	for i, vec := range valueVecs {
		best := -1
		bestSim := 0.0
		for j, dv := range domainVecs {
			sim := ai.Cosine(vec, dv)
			if best == -1 || sim > bestSim {
				best = j
				bestSim = sim
			}
		}
		if best >= 0 && bestSim >= params.Threshold {
			assigned[i] = params.Domains[best]
		} else {
			assigned[i] = "uncategorized"
		}
	}

	labels := make([]string, len(values))
	for i, v := range values {
		if v == "" {
			labels[i] = "unknown"
			continue
		}
		labels[i] = assigned[seen[v]]
	}
	return labels, nil
}

// enrichKeyword matches each value against the vocabulary, first
// matching domain in declaration order wins.
func enrichKeyword(values []string, params EnrichParams) []string {
	labels := make([]string, len(values))
	for i, v := range values {
		if v == "" {
			labels[i] = "unknown"
			continue
		}
		labels[i] = "uncategorized"
		lower := strings.ToLower(v)
		for _, domain := range params.Domains {
			if matchesVocabulary(lower, domain, params.Vocabulary[domain]) {
				labels[i] = domain
				break
			}
		}
	}
	return labels
}

func matchesVocabulary(value, domain string, keywords []string) bool {
	if strings.Contains(value, strings.ToLower(domain)) {
		return true
	}
	for _, kw := range keywords {
		if strings.Contains(value, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func domainContaining(domains []string, substrings ...string) string {
	for _, d := range domains {
		lower := strings.ToLower(d)
		for _, sub := range substrings {
			if strings.Contains(lower, sub) {
				return d
			}
		}
	}
	return ""
}
