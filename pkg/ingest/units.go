package ingest

import (
	"strings"

	"github.com/intuitive-data/redesign/pkg/table"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkoukk/tiktoken-go"
)

// Unit is a token-bounded slice of a table rendered as text. Each unit
// repeats the header so it stays self-describing when handed to an
// embedding model on its own.
type Unit struct {
	ID       string
	StartRow int
	EndRow   int
	Text     string
}

// RowUnits splits a table into units whose token count stays under
// maxTokens, measured with the named tiktoken encoding. Rows are never
// split; a single row over budget gets a unit of its own.
func RowUnits(t *table.Table, encoder string, maxTokens int) ([]Unit, error) {
	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, err
	}

	header := strings.Join(t.ColumnNames(), ",")
	headerTokens := len(enc.Encode(header, nil, nil)) + 1

	var units []Unit
	var rows []string
	startRow := 0
	currentTokens := headerTokens

	flush := func(endRow int) error {
		if len(rows) == 0 {
			return nil
		}
		uID, err := gonanoid.New()
		if err != nil {
			return err
		}
		units = append(units, Unit{
			ID:       uID,
			StartRow: startRow,
			EndRow:   endRow,
			Text:     header + "\n" + strings.Join(rows, "\n"),
		})
		rows = nil
		currentTokens = headerTokens
		return nil
	}

	cols := t.Columns()
	cells := make([]string, len(cols))
	for i := 0; i < t.Rows(); i++ {
		for j := range cols {
			cells[j] = cols[j].CellString(i)
		}
		row := strings.Join(cells, ",")
		rowTokens := len(enc.Encode(row, nil, nil)) + 1

		if currentTokens+rowTokens > maxTokens && len(rows) > 0 {
			if err := flush(i); err != nil {
				return nil, err
			}
			startRow = i
		}
		rows = append(rows, row)
		currentTokens += rowTokens
	}
	if err := flush(t.Rows()); err != nil {
		return nil, err
	}
	return units, nil
}
