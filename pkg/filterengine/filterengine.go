// Package filterengine evaluates FilterSpecs against the Signal Registry,
// producing the ordered, non-overlapping Segments that satisfy every
// condition, and enforces the segmented/concatenated mode semantics
// (including the global mutual-exclusion rule on concatenated filters).
package filterengine

import (
	"sync"

	"github.com/traceframe-dev/traceframe/pkg/alg/interval"
	"github.com/traceframe-dev/traceframe/pkg/model"
)

// SignalSource is the subset of the Signal Registry the engine needs: a
// way to look up a signal's x/y series by name.
type SignalSource interface {
	Get(name string) (*model.Signal, error)
}

// Result is the outcome of one filter evaluation: the derived segments
// plus an interval tree over the same runs, keyed by row index, for
// O(log n) point/overlap lookups.
type Result struct {
	Segments []model.Segment
	Index    *interval.Tree[int, int]
}

// Engine evaluates FilterSpecs and tracks the single globally exclusive
// concatenated filter, if any.
type Engine struct {
	mu            sync.Mutex
	registry      SignalSource
	concatenating string // tab_id holding the active concatenated filter, or "".
}

// New builds an Engine reading signals from the given source.
func New(registry SignalSource) *Engine {
	return &Engine{registry: registry}
}

// Evaluate runs one FilterSpec's conditions (AND across conditions, OR
// within a condition's ranges) against the common time axis and returns
// the matching Segments.
func (e *Engine) Evaluate(spec *model.FilterSpec) (*Result, error) {
	if spec.Mode == model.DisplayConcatenated {
		if err := e.acquireConcatenation(spec.TabID); err != nil {
			return nil, err
		}
	} else {
		e.mu.Lock()
		active := e.concatenating
		e.mu.Unlock()

		if active != "" && active != spec.TabID {
			return nil, &model.FilterModeConflict{ActiveTab: active}
		}
	}

	if len(spec.Conditions) == 0 {
		return &Result{Index: interval.New[int, int]()}, nil
	}

	x, mask, usable, err := e.evaluateMask(spec.Conditions)
	if err != nil {
		return nil, err
	}

	if !usable {
		return &Result{Index: interval.New[int, int]()}, nil
	}

	segs, idx := segmentsFromMask(x, mask)

	return &Result{Segments: segs, Index: idx}, nil
}

// ClearConcatenation releases the global concatenated-filter lock if held
// by the given tab.
func (e *Engine) ClearConcatenation(tabID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.concatenating == tabID {
		e.concatenating = ""
	}
}

func (e *Engine) acquireConcatenation(tabID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.concatenating != "" && e.concatenating != tabID {
		return &model.FilterModeConflict{ActiveTab: e.concatenating}
	}

	e.concatenating = tabID

	return nil
}

// evaluateMask builds the AND-across-conditions boolean vector. usable is
// false when every condition referenced an unknown parameter (treated as
// an empty filter).
func (e *Engine) evaluateMask(conditions []model.FilterCondition) (x []float64, all []bool, usable bool, err error) {
	var n int

	for _, cond := range conditions {
		sig, getErr := e.registry.Get(cond.Parameter)
		if getErr != nil {
			continue // Unknown parameter: condition skipped; no warning is emitted.
		}

		if x == nil {
			x = sig.XData
			n = len(x)
			all = make([]bool, n)

			for i := range all {
				all[i] = true
			}
		}

		usable = true

		any := make([]bool, n)
		for _, r := range cond.Ranges {
			for i, v := range sig.YData {
				if r.Operator.Apply(v, r.Value) {
					any[i] = true
				}
			}
		}

		for i := range all {
			all[i] = all[i] && any[i]
		}
	}

	return x, all, usable, nil
}

// segmentsFromMask walks the boolean vector and emits one Segment per
// maximal run of true values, plus an interval tree keyed by row index
// over the same runs.
func segmentsFromMask(x []float64, mask []bool) ([]model.Segment, *interval.Tree[int, int]) {
	idx := interval.New[int, int]()

	var segs []model.Segment

	i := 0
	segID := 0

	for i < len(mask) {
		if !mask[i] {
			i++

			continue
		}

		j := i
		for j+1 < len(mask) && mask[j+1] {
			j++
		}

		segs = append(segs, model.Segment{Start: x[i], End: x[j]})
		idx.Insert(i, j, segID)
		segID++

		i = j + 1
	}

	return segs, idx
}
