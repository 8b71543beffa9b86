package level

import (
	"fmt"

	"github.com/intuitive-data/redesign/pkg/graph"
	"github.com/intuitive-data/redesign/pkg/table"
)

// Level is a rung on the abstraction ladder. Lower numbers are more
// abstract: a single scalar sits at L0, raw source files at L4.
type Level int

const (
	L0 Level = iota // scalar
	L1              // vector
	L2              // table
	L3              // graph
	L4              // files
)

func (l Level) String() string {
	switch l {
	case L0:
		return "L0"
	case L1:
		return "L1"
	case L2:
		return "L2"
	case L3:
		return "L3"
	case L4:
		return "L4"
	}
	return fmt.Sprintf("L%d", int(l))
}

// Valid reports whether l is one of the five defined levels.
func (l Level) Valid() bool {
	return l >= L0 && l <= L4
}

// Datum is the L0 payload, a single scalar with provenance metadata.
// Value is nil when the scalar is missing. Parent is the exact vector
// the scalar was aggregated from, captured at aggregation time; it is
// what makes unfolding possible and must never be reassigned.
type Datum struct {
	Value  *float64       `json:"value"`
	Label  string         `json:"label,omitempty"`
	Parent *Vector        `json:"parent,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Vector is the L1 payload, an ordered series extracted from a single
// column. Numeric vectors fill Values with NaN marking missing
// elements; categorical vectors fill Strings instead, with the empty
// string marking missing.
type Vector struct {
	Name    string         `json:"name"`
	Values  []float64      `json:"values,omitempty"`
	Strings []string       `json:"strings,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// IsNumeric reports whether the vector carries numeric values.
func (v *Vector) IsNumeric() bool {
	return v.Strings == nil
}

// Len returns the number of elements.
func (v *Vector) Len() int {
	if v.Strings != nil {
		return len(v.Strings)
	}
	return len(v.Values)
}

// TableData is the L2 payload.
type TableData struct {
	Table *table.Table   `json:"-"`
	Name  string         `json:"name,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// GraphData is the L3 payload.
type GraphData struct {
	Graph *graph.Graph   `json:"graph"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// File is one raw source inside a FileSet.
type File struct {
	Name    string `json:"name"`
	Format  string `json:"format"`
	Content []byte `json:"content"`
}

// FileSet is the L4 payload, the raw files a dataset was loaded from.
type FileSet struct {
	Files []File         `json:"files"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// Find returns the file with the given name, or nil.
func (fs *FileSet) Find(name string) *File {
	for i := range fs.Files {
		if fs.Files[i].Name == name {
			return &fs.Files[i]
		}
	}
	return nil
}
