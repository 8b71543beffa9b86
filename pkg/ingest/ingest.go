package ingest

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"

	"github.com/intuitive-data/redesign/pkg/level"
	"github.com/intuitive-data/redesign/pkg/logger"
	"github.com/intuitive-data/redesign/pkg/table"

	"golang.org/x/sync/singleflight"
)

// Loader parses raw files into tables. Parsed tables are memoized by
// content hash, and concurrent loads of the same content share one
// parse via singleflight.
type Loader struct {
	group  singleflight.Group
	mu     sync.Mutex
	parsed map[string]*table.Table
}

// NewLoader returns an empty loader.
func NewLoader() *Loader {
	return &Loader{parsed: make(map[string]*table.Table)}
}

// Load parses a single file into a table. Only CSV content is
// supported; other formats are rejected.
func (l *Loader) Load(file level.File) (*table.Table, error) {
	format := strings.ToLower(file.Format)
	if format != "csv" {
		return nil, fmt.Errorf("unsupported file format %q for %s", file.Format, file.Name)
	}

	key := fmt.Sprintf("%x", sha256.Sum256(file.Content))
	v, err, shared := l.group.Do(key, func() (any, error) {
		l.mu.Lock()
		t, ok := l.parsed[key]
		l.mu.Unlock()
		if ok {
			return t, nil
		}
		t, perr := table.ReadCSV(bytes.NewReader(file.Content))
		if perr != nil {
			return nil, fmt.Errorf("loading %s: %w", file.Name, perr)
		}
		l.mu.Lock()
		l.parsed[key] = t
		l.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("shared csv parse", "file", file.Name)
	}
	return v.(*table.Table), nil
}
