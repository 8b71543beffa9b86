package transition

import (
	"github.com/intuitive-data/redesign/pkg/level"
)

// Unfold reconstructs the vector a scalar was aggregated from. The
// scalar itself carries no structure, so it reads the parent vector
// captured on the datum at aggregation time; a datum without one
// cannot be reconstructed and the operation fails with NoParentError.
func Unfold(d *level.Datum) (*level.Vector, error) {
	if d == nil {
		return nil, &ValidationError{Operation: "unfold", Reason: "input datum is nil"}
	}
	parent := d.Parent
	if parent == nil || (parent.Values == nil && parent.Strings == nil) {
		return nil, &NoParentError{Level: level.L1}
	}

	method := "unknown"
	if d.Meta != nil {
		if m, ok := d.Meta["aggregation_method"].(string); ok && m != "" {
			method = m
		}
	}

	out := &level.Vector{
		Name: parent.Name,
		Meta: map[string]any{
			"unfolded_from":      level.L0.String(),
			"aggregation_method": method,
			"original_length":    parent.Len(),
		},
	}
	if parent.Strings != nil {
		out.Strings = append([]string(nil), parent.Strings...)
	} else {
		out.Values = append([]float64(nil), parent.Values...)
	}
	return out, nil
}
