package transition

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/intuitive-data/redesign/pkg/ai"
	"github.com/intuitive-data/redesign/pkg/cache"
	"github.com/intuitive-data/redesign/pkg/ingest"
	"github.com/intuitive-data/redesign/pkg/level"
	"github.com/intuitive-data/redesign/pkg/lineage"
	"github.com/intuitive-data/redesign/pkg/logger"
	"github.com/intuitive-data/redesign/pkg/session"
	"github.com/intuitive-data/redesign/pkg/table"
)

// Engine runs level transitions against a session, recording every
// operation in the lineage tracker and caching the expensive ascents.
type Engine struct {
	lineage  *lineage.Tracker
	cache    *cache.Cache
	loader   *ingest.Loader
	embedder ai.Embedder
}

// Option configures an Engine.
type Option func(*Engine)

// WithEmbedder sets the embedding backend used for semantic matching.
func WithEmbedder(e ai.Embedder) Option {
	return func(eng *Engine) { eng.embedder = e }
}

// WithCache replaces the default transition cache.
func WithCache(c *cache.Cache) Option {
	return func(eng *Engine) { eng.cache = c }
}

// WithLineage replaces the default lineage tracker.
func WithLineage(t *lineage.Tracker) Option {
	return func(eng *Engine) { eng.lineage = t }
}

// WithLoader replaces the default file loader.
func WithLoader(l *ingest.Loader) Option {
	return func(eng *Engine) { eng.loader = l }
}

// NewEngine creates an engine with a one-hour transition cache and a
// fresh lineage tracker unless options override them.
func NewEngine(opts ...Option) *Engine {
	eng := &Engine{
		lineage: lineage.NewTracker(),
		cache:   cache.New(time.Hour),
		loader:  ingest.NewLoader(),
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// Lineage returns the engine's lineage tracker.
func (e *Engine) Lineage() *lineage.Tracker {
	return e.lineage
}

// CacheStats returns counters for the transition cache.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

func (e *Engine) record(op string, in, out level.Level, params map[string]any, start time.Time, before, after int) {
	e.lineage.Record(lineage.Record{
		OperationType: op,
		InputLevel:    in,
		OutputLevel:   out,
		Parameters:    params,
		DurationMS:    time.Since(start).Milliseconds(),
		RowsBefore:    before,
		RowsAfter:     after,
	})
}

// recordFailure logs an operation that ran and failed. Rejections for
// missing payloads are caller errors and are not recorded.
func (e *Engine) recordFailure(op string, in, out level.Level, err error, start time.Time, before int) {
	e.record(op, in, out, map[string]any{"error": err.Error()}, start, before, -1)
}

// DescendToGraph builds the file relationship graph from the session's
// file set and stores it as the current L3 payload.
func (e *Engine) DescendToGraph(sess *session.Session) (*level.GraphData, error) {
	start := time.Now()
	fs := sess.FileSet()
	if fs == nil {
		return nil, &ValidationError{Operation: "build_file_graph", Reason: "session has no file set"}
	}
	gd, err := BuildFileGraph(fs, e.loader)
	if err != nil {
		e.recordFailure("build_file_graph", level.L4, level.L3, err, start, -1)
		return nil, err
	}
	sess.SetGraph(gd)
	e.record("build_file_graph", level.L4, level.L3,
		map[string]any{"file_count": len(fs.Files)}, start, -1, -1)
	return gd, nil
}

// DescendToTable flattens the session's graph into an edge table and
// stores it as the current L2 payload.
func (e *Engine) DescendToTable(sess *session.Session) (*level.TableData, error) {
	start := time.Now()
	gd := sess.Graph()
	if gd == nil {
		return nil, &ValidationError{Operation: "flatten_graph", Reason: "session has no graph"}
	}
	td, err := FlattenGraph(gd)
	if err != nil {
		e.recordFailure("flatten_graph", level.L3, level.L2, err, start, -1)
		return nil, err
	}
	sess.SetTable(td)
	e.record("flatten_graph", level.L3, level.L2, nil, start, -1, td.Table.Rows())
	return td, nil
}

// DescendToVector extracts a column from the session's table and
// stores it as the current L1 payload.
func (e *Engine) DescendToVector(sess *session.Session, column string) (*level.Vector, error) {
	start := time.Now()
	td := sess.Table()
	if td == nil {
		return nil, &ValidationError{Operation: "extract_vector", Reason: "session has no table"}
	}
	v, err := ExtractVector(td, column)
	if err != nil {
		e.recordFailure("extract_vector", level.L2, level.L1, err, start, td.Table.Rows())
		return nil, err
	}
	sess.SetVector(v)
	e.record("extract_vector", level.L2, level.L1,
		map[string]any{"column": column}, start, td.Table.Rows(), v.Len())
	return v, nil
}

// DescendToScalar aggregates the session's vector into a scalar and
// stores it as the current L0 payload. The scalar carries its own copy
// of the vector, which is what makes a later unfold possible.
func (e *Engine) DescendToScalar(sess *session.Session, method string) (*level.Datum, error) {
	start := time.Now()
	v := sess.Vector()
	if v == nil {
		return nil, &ValidationError{Operation: "aggregate", Reason: "session has no vector"}
	}
	d, err := Aggregate(v, method)
	if err != nil {
		e.recordFailure("aggregate", level.L1, level.L0, err, start, v.Len())
		return nil, err
	}
	sess.SetDatum(d)
	e.record("aggregate", level.L1, level.L0,
		map[string]any{"method": method}, start, v.Len(), 1)
	return d, nil
}

// AscendToVector unfolds the session's scalar back into its parent
// vector and marks L1 current.
func (e *Engine) AscendToVector(sess *session.Session) (*level.Vector, error) {
	start := time.Now()
	d := sess.Datum()
	if d == nil {
		return nil, &ValidationError{Operation: "unfold", Reason: "session has no scalar"}
	}
	v, err := Unfold(d)
	if err != nil {
		e.recordFailure("unfold", level.L0, level.L1, err, start, 1)
		return nil, err
	}
	sess.SetVector(v)
	e.record("unfold", level.L0, level.L1, nil, start, 1, v.Len())
	return v, nil
}

// AscendToTable enriches the session's vector into a domain table and
// marks L2 current. Results are cached on the vector contents and
// parameters, a repeat enrichment with identical inputs skips the
// matching work entirely.
func (e *Engine) AscendToTable(ctx context.Context, sess *session.Session, params EnrichParams) (*level.TableData, error) {
	start := time.Now()
	v := sess.Vector()
	if v == nil {
		return nil, &ValidationError{Operation: "enrich", Reason: "session has no vector"}
	}
	if params.Embedder == nil {
		params.Embedder = e.embedder
	}

	key := cache.Key("enrich", map[string]any{
		"name":      v.Name,
		"values":    v.Values,
		"strings":   v.Strings,
		"domains":   params.Domains,
		"threshold": params.Threshold,
	})
	if hit, ok := e.cache.Get(key); ok {
		td := hit.(*level.TableData)
		sess.SetTable(td)
		logger.Debug("enrich served from cache", "vector", v.Name)
		e.record("enrich", level.L1, level.L2, enrichLineageParams(params, true), start, v.Len(), td.Table.Rows())
		return td, nil
	}

	td, err := Enrich(ctx, v, params)
	if err != nil {
		e.recordFailure("enrich", level.L1, level.L2, err, start, v.Len())
		return nil, err
	}
	e.cache.Set(key, td, int64(td.Table.Rows()))
	sess.SetTable(td)
	e.record("enrich", level.L1, level.L2, enrichLineageParams(params, false), start, v.Len(), td.Table.Rows())
	return td, nil
}

func enrichLineageParams(params EnrichParams, cached bool) map[string]any {
	return map[string]any{
		"domains":   params.Domains,
		"threshold": params.Threshold,
		"cached":    cached,
	}
}

// AscendToGraph lifts the session's table into a bipartite graph and
// marks L3 current.
func (e *Engine) AscendToGraph(sess *session.Session, params BuildGraphParams) (*level.GraphData, error) {
	start := time.Now()
	td := sess.Table()
	if td == nil {
		return nil, &ValidationError{Operation: "build_graph", Reason: "session has no table"}
	}
	gd, err := BuildGraph(td, params)
	if err != nil {
		e.recordFailure("build_graph", level.L2, level.L3, err, start, td.Table.Rows())
		return nil, err
	}
	sess.SetGraph(gd)
	e.record("build_graph", level.L2, level.L3, map[string]any{
		"entity_column":     params.EntityColumn,
		"relationship_type": params.Relationship,
	}, start, td.Table.Rows(), -1)
	return gd, nil
}

// JoinFiles inner-joins two files from the session's file set on a
// shared key column and stores the result as the current L2 payload.
// Joins are memoized on the file contents and key, so re-running the
// same join serves the previous result.
func (e *Engine) JoinFiles(sess *session.Session, leftName, rightName, key string) (*level.TableData, error) {
	start := time.Now()
	fs := sess.FileSet()
	if fs == nil {
		return nil, &ValidationError{Operation: "join_tables", Reason: "session has no file set"}
	}
	left, right := fs.Find(leftName), fs.Find(rightName)
	if left == nil || right == nil {
		return nil, &ValidationError{Operation: "join_tables", Reason: "both files must be in the session file set"}
	}

	cacheKey := cache.Key("join_tables", map[string]any{
		"left":  fmt.Sprintf("%x", sha256.Sum256(left.Content)),
		"right": fmt.Sprintf("%x", sha256.Sum256(right.Content)),
		"key":   key,
	})
	if hit, ok := e.cache.Get(cacheKey); ok {
		td := hit.(*level.TableData)
		sess.SetTable(td)
		logger.Debug("join served from cache", "left", leftName, "right", rightName)
		e.record("join_tables", level.L4, level.L2, joinLineageParams(leftName, rightName, key, true), start, -1, td.Table.Rows())
		return td, nil
	}

	lt, err := e.loader.Load(*left)
	if err != nil {
		return nil, err
	}
	rt, err := e.loader.Load(*right)
	if err != nil {
		return nil, err
	}
	td, err := JoinTables(
		&level.TableData{Table: lt, Name: leftName},
		&level.TableData{Table: rt, Name: rightName},
		key,
	)
	if err != nil {
		e.recordFailure("join_tables", level.L4, level.L2, err, start, lt.Rows())
		return nil, err
	}
	e.cache.Set(cacheKey, td, int64(td.Table.Rows()))
	sess.SetTable(td)
	e.record("join_tables", level.L4, level.L2, joinLineageParams(leftName, rightName, key, false), start, lt.Rows(), td.Table.Rows())
	return td, nil
}

// SuggestJoins lists the joinable column pairs across the session's
// files. Exact name matches are always found; when an embedder is
// available, differently named columns are matched by embedding
// similarity as well. Results are memoized on the file contents.
func (e *Engine) SuggestJoins(ctx context.Context, sess *session.Session) ([]JoinSuggestion, error) {
	start := time.Now()
	fs := sess.FileSet()
	if fs == nil || len(fs.Files) == 0 {
		return nil, &ValidationError{Operation: "suggest_joins", Reason: "session has no file set"}
	}

	hashes := make(map[string]any, len(fs.Files))
	for _, f := range fs.Files {
		hashes[f.Name] = fmt.Sprintf("%x", sha256.Sum256(f.Content))
	}
	key := cache.Key("suggest_joins", hashes)
	if hit, ok := e.cache.Get(key); ok {
		sugg := hit.([]JoinSuggestion)
		logger.Debug("join suggestions served from cache", "files", len(fs.Files))
		e.record("suggest_joins", level.L4, level.L4,
			map[string]any{"cached": true, "count": len(sugg)}, start, -1, -1)
		return sugg, nil
	}

	tables := make(map[string]*table.Table, len(fs.Files))
	order := make([]string, 0, len(fs.Files))
	for _, f := range fs.Files {
		t, err := e.loader.Load(f)
		if err != nil {
			return nil, err
		}
		tables[f.Name] = t
		order = append(order, f.Name)
	}

	sugg := SuggestJoins(order, tables)
	if e.embedder != nil && e.embedder.Available(ctx) {
		extra, err := suggestSemanticJoins(ctx, e.embedder, order, tables)
		if err != nil {
			logger.Warn("semantic join matching failed", "error", err)
		} else {
			sugg = append(sugg, extra...)
		}
	}

	e.cache.Set(key, sugg, int64(len(sugg)))
	e.record("suggest_joins", level.L4, level.L4,
		map[string]any{"cached": false, "count": len(sugg)}, start, -1, -1)
	return sugg, nil
}

func joinLineageParams(left, right, key string, cached bool) map[string]any {
	return map[string]any{
		"left":   left,
		"right":  right,
		"key":    key,
		"cached": cached,
	}
}
