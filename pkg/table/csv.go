package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ReadCSV parses a CSV document with a header row into a table,
// inferring each column's kind from its values. A column where every
// non-empty cell parses as a number becomes numeric, then boolean, then
// datetime; anything else is categorical. Empty cells are missing.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv document has no header row")
	}
	header := records[0]
	rows := records[1:]

	t := &Table{index: make(map[string]int, len(header))}
	for col, name := range header {
		cells := make([]string, len(rows))
		for i, rec := range rows {
			if col < len(rec) {
				cells[i] = rec[col]
			}
		}
		c := inferColumn(strings.TrimSpace(name), cells)
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func inferColumn(name string, cells []string) Column {
	kind := inferKind(cells)
	switch kind {
	case Numeric:
		vals := make([]float64, len(cells))
		for i, s := range cells {
			s = strings.TrimSpace(s)
			if s == "" {
				vals[i] = math.NaN()
				continue
			}
			vals[i], _ = strconv.ParseFloat(s, 64)
		}
		return NewNumeric(name, vals)
	case Boolean:
		vals := make([]bool, len(cells))
		missing := make([]bool, len(cells))
		for i, s := range cells {
			s = strings.TrimSpace(s)
			if s == "" {
				missing[i] = true
				continue
			}
			vals[i] = strings.EqualFold(s, "true")
		}
		return NewBoolean(name, vals, missing)
	case Datetime:
		vals := make([]time.Time, len(cells))
		missing := make([]bool, len(cells))
		for i, s := range cells {
			s = strings.TrimSpace(s)
			if s == "" {
				missing[i] = true
				continue
			}
			vals[i] = parseDatetime(s)
		}
		return NewDatetime(name, vals, missing)
	default:
		vals := make([]string, len(cells))
		missing := make([]bool, len(cells))
		for i, s := range cells {
			s = strings.TrimSpace(s)
			if s == "" {
				missing[i] = true
				continue
			}
			vals[i] = s
		}
		return NewCategorical(name, vals, missing)
	}
}

func inferKind(cells []string) Kind {
	numeric, boolean, datetime := true, true, true
	seen := false
	for _, s := range cells {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		seen = true
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			numeric = false
		}
		if !strings.EqualFold(s, "true") && !strings.EqualFold(s, "false") {
			boolean = false
		}
		if parseDatetime(s).IsZero() {
			datetime = false
		}
		if !numeric && !boolean && !datetime {
			return Categorical
		}
	}
	if !seen {
		return Categorical
	}
	if numeric {
		return Numeric
	}
	if boolean {
		return Boolean
	}
	if datetime {
		return Datetime
	}
	return Categorical
}

func parseDatetime(s string) time.Time {
	for _, layout := range datetimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// WriteCSV encodes the table as CSV with a header row. Missing cells
// are written as empty strings.
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	record := make([]string, len(t.cols))
	for i := 0; i < t.Rows(); i++ {
		for j := range t.cols {
			record[j] = t.cols[j].CellString(i)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing csv row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// CSVBytes renders the table as an in-memory CSV document.
func (t *Table) CSVBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
