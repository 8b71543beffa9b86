package session

import (
	"fmt"
	"sync"

	"github.com/intuitive-data/redesign/pkg/level"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Session holds the payloads a dataset has taken on while moving
// between levels. Reaching a level stores a snapshot, so later ascents
// can reconstruct structure a descent collapsed. A session tracks one
// dataset; nothing is shared globally.
type Session struct {
	mu      sync.Mutex
	id      string
	current level.Level
	visited bool

	fileSet   *level.FileSet
	graphData *level.GraphData
	tableData *level.TableData
	vector    *level.Vector
	datum     *level.Datum
}

// New creates an empty session with a fresh id.
func New() (*Session, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("creating session id: %w", err)
	}
	return &Session{id: id}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Current returns the most recently stored level and whether any level
// has been stored yet.
func (s *Session) Current() (level.Level, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.visited
}

// SetFileSet stores the L4 payload and marks L4 current.
func (s *Session) SetFileSet(fs *level.FileSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileSet = fs
	s.current = level.L4
	s.visited = true
}

// SetGraph stores the L3 payload and marks L3 current.
func (s *Session) SetGraph(gd *level.GraphData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphData = gd
	s.current = level.L3
	s.visited = true
}

// SetTable stores the L2 payload and marks L2 current.
func (s *Session) SetTable(td *level.TableData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tableData = td
	s.current = level.L2
	s.visited = true
}

// SetVector stores the L1 payload and marks L1 current.
func (s *Session) SetVector(v *level.Vector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vector = v
	s.current = level.L1
	s.visited = true
}

// SetDatum stores the L0 payload and marks L0 current.
func (s *Session) SetDatum(d *level.Datum) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datum = d
	s.current = level.L0
	s.visited = true
}

// FileSet returns the stored L4 payload, which may be nil.
func (s *Session) FileSet() *level.FileSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileSet
}

// Graph returns the stored L3 payload, which may be nil.
func (s *Session) Graph() *level.GraphData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graphData
}

// Table returns the stored L2 payload, which may be nil.
func (s *Session) Table() *level.TableData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tableData
}

// Vector returns the stored L1 payload, which may be nil.
func (s *Session) Vector() *level.Vector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vector
}

// Datum returns the stored L0 payload, which may be nil.
func (s *Session) Datum() *level.Datum {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.datum
}
