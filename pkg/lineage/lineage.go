package lineage

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/intuitive-data/redesign/pkg/level"
)

// Record is one logged transformation. Counts of -1 mean the
// transformation had no tabular row notion on that side.
type Record struct {
	OperationType string         `json:"operation_type"`
	InputLevel    level.Level    `json:"input_level"`
	OutputLevel   level.Level    `json:"output_level"`
	Timestamp     time.Time      `json:"timestamp"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	DurationMS    int64          `json:"duration_ms"`
	RowsBefore    int            `json:"row_count_before"`
	RowsAfter     int            `json:"row_count_after"`
}

// Tracker is an append-only log of transformations. Appending is O(1);
// reads copy so callers can hold results across later appends.
type Tracker struct {
	mu      sync.Mutex
	records []Record
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Record appends an entry, stamping it with the current time.
// Parameters are normalized to their JSON representation immediately,
// so a history that went through Export and Import compares equal to
// one that never left the process.
func (t *Tracker) Record(r Record) {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	r.Parameters = normalizeParameters(r.Parameters)
	t.mu.Lock()
	t.records = append(t.records, r)
	t.mu.Unlock()
}

func normalizeParameters(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return params
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return params
	}
	return out
}

// History returns all records in append order.
func (t *Tracker) History() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Record(nil), t.records...)
}

// FilterByLevel returns records whose input or output level matches,
// preserving append order.
func (t *Tracker) FilterByLevel(l level.Level) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Record
	for _, r := range t.records {
		if r.InputLevel == l || r.OutputLevel == l {
			out = append(out, r)
		}
	}
	return out
}

// TotalDuration sums the recorded durations in milliseconds.
func (t *Tracker) TotalDuration() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total int64
	for _, r := range t.records {
		total += r.DurationMS
	}
	return total
}

// Len returns the number of records.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Reset drops all records.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.records = nil
	t.mu.Unlock()
}

type export struct {
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	TotalOperations int            `json:"total_operations"`
	TotalDurationMS int64          `json:"total_duration_ms"`
	Operations      []Record       `json:"operations"`
}

// Export serializes the full history as a JSON document with summary
// totals. The metadata map is embedded verbatim.
func (t *Tracker) Export(metadata map[string]any) ([]byte, error) {
	t.mu.Lock()
	records := append([]Record(nil), t.records...)
	t.mu.Unlock()

	var total int64
	for _, r := range records {
		total += r.DurationMS
	}
	doc := export{
		Metadata:        metadata,
		CreatedAt:       time.Now().UTC(),
		TotalOperations: len(records),
		TotalDurationMS: total,
		Operations:      records,
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("exporting lineage: %w", err)
	}
	return out, nil
}

// Import replaces the tracker's history with the operations in a
// previously exported document.
func (t *Tracker) Import(data []byte) error {
	var doc export
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("importing lineage: %w", err)
	}
	t.mu.Lock()
	t.records = doc.Operations
	t.mu.Unlock()
	return nil
}
