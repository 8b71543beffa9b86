package transition

import (
	"context"
	"fmt"

	"github.com/intuitive-data/redesign/pkg/ai"
	"github.com/intuitive-data/redesign/pkg/ingest"
	"github.com/intuitive-data/redesign/pkg/table"
)

const (
	// semanticJoinThreshold is the minimum cosine similarity for two
	// differently named columns to be suggested as a join.
	semanticJoinThreshold = 0.7

	joinProfileEncoding = "cl100k_base"
	joinProfileTokens   = 256
)

// suggestSemanticJoins finds join candidates between columns whose
// names differ but mean the same thing. Each file is summarized by its
// first token-budgeted row unit; only file pairs whose summaries look
// related get their columns compared, which keeps the embedding volume
// down on large file sets.
func suggestSemanticJoins(ctx context.Context, emb ai.Embedder, order []string, tables map[string]*table.Table) ([]JoinSuggestion, error) {
	profiles := make([]string, len(order))
	index := map[string]int{}
	var texts []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := index[s]; !ok {
			index[s] = len(texts)
			texts = append(texts, s)
		}
	}
	for i, name := range order {
		units, err := ingest.RowUnits(tables[name], joinProfileEncoding, joinProfileTokens)
		if err != nil {
			return nil, err
		}
		if len(units) == 0 {
			continue
		}
		profiles[i] = units[0].Text
		add(profiles[i])
		for _, col := range tables[name].ColumnNames() {
			add(col)
		}
	}
	if len(texts) == 0 {
		return nil, nil
	}

	vecs, err := emb.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding %d texts returned %d vectors", len(texts), len(vecs))
	}
	vecOf := func(s string) []float32 {
		if i, ok := index[s]; ok {
			return vecs[i]
		}
		return nil
	}

	var out []JoinSuggestion
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			if ai.Cosine(vecOf(profiles[i]), vecOf(profiles[j])) < semanticJoinThreshold {
				continue
			}
			left, right := tables[order[i]], tables[order[j]]
			for _, ln := range left.ColumnNames() {
				lc, _ := left.Column(ln)
				for _, rn := range right.ColumnNames() {
					if rn == ln {
						// identical names are the exact matcher's job
						continue
					}
					rc, _ := right.Column(rn)
					if lc.Kind != rc.Kind {
						continue
					}
					if ai.Cosine(vecOf(ln), vecOf(rn)) >= semanticJoinThreshold {
						out = append(out, JoinSuggestion{
							LeftFile:    order[i],
							RightFile:   order[j],
							Column:      ln,
							RightColumn: rn,
						})
					}
				}
			}
		}
	}
	return out, nil
}
