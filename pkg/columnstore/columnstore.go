// Package columnstore materializes raw source columns into cleaned, dense
// float64 arrays and caches them for the lifetime of a project.
package columnstore

import (
	"log/slog"
	"math"
	"strconv"

	"github.com/traceframe-dev/traceframe/pkg/cache"
	"github.com/traceframe-dev/traceframe/pkg/model"
)

// bytesPerFloat64 sizes a cached column for the LRU's byte-budget accounting.
const bytesPerFloat64 = 8

// Source supplies raw column data by name. Implementations wrap whatever
// on-disk or in-memory table backs a loaded project.
type Source interface {
	ColumnNames() []string
	RowCount() int
	ColumnType(name string) (model.ColumnType, bool)
	RawColumn(name string) ([]any, bool)
}

// Store materializes and caches numeric columns on first access. It
// implements the "materialize once, cache forever" discipline up to a
// memory budget: a column is converted and cleaned on first access and kept
// in an LRU bounded by cacheBudgetBytes, so a project with more signals than
// fit in the budget evicts the coldest columns instead of growing unbounded.
// An evicted column is converted and cleaned again on its next access.
type Store struct {
	source Source
	cols   *cache.Cache[string, []float64]
	log    *slog.Logger
}

// New builds a Store over the given source, bounding cached columns to
// cacheBudgetBytes (0 selects cache.DefaultCacheSize).
func New(source Source, cacheBudgetBytes int64, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}

	sizeFn := func(col []float64) int64 { return int64(len(col)) * bytesPerFloat64 }
	cloneFn := func(col []float64) []float64 {
		out := make([]float64, len(col))
		copy(out, col)

		return out
	}

	return &Store{
		source: source,
		cols:   cache.New[string, []float64](cacheBudgetBytes, sizeFn, cloneFn),
		log:    log,
	}
}

// Get returns the cleaned, densified numeric column, computing it on first
// call and serving the cached array on every subsequent call, until the
// cache evicts it under memory pressure.
func (s *Store) Get(name string) ([]float64, error) {
	if col, ok := s.cols.Get(name); ok {
		return col, nil
	}

	raw, ok := s.source.RawColumn(name)
	if !ok {
		return nil, model.ErrUnknownColumn
	}

	col, coercible := materialize(raw)
	if !coercible && len(raw) > 0 {
		s.log.Warn("column entirely non-coercible, returning zero array", "column", name)
	}

	s.cols.Put(name, col)

	return col, nil
}

// Clear drops every cached column. Callers invoke this on project unload.
func (s *Store) Clear() {
	s.cols.Clear()
}

func materialize(raw []any) ([]float64, bool) {
	out := make([]float64, len(raw))
	anyCoerced := false

	for i, v := range raw {
		f, ok := coerce(v)
		if !ok || math.IsInf(f, 0) {
			out[i] = math.NaN()

			continue
		}

		anyCoerced = true
		out[i] = f
	}

	forwardFill(out)

	return out, anyCoerced || len(raw) == 0
}

func coerce(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case bool:
		if t {
			return 1.0, true
		}

		return 0.0, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}

		return f, true
	default:
		return 0, false
	}
}

// forwardFill replaces NaN with the most recent prior finite value;
// leading NaN (no prior value exists) becomes 0.0.
func forwardFill(col []float64) {
	last := 0.0
	haveLast := false

	for i, v := range col {
		if math.IsNaN(v) {
			if haveLast {
				col[i] = last
			} else {
				col[i] = 0.0
			}

			continue
		}

		last = v
		haveLast = true
	}
}
