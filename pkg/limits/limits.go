// Package limits computes per-signal warning-threshold violations: index
// intervals where a signal's value falls outside its configured band.
package limits

import (
	"github.com/traceframe-dev/traceframe/pkg/alg/interval"
	"github.com/traceframe-dev/traceframe/pkg/model"
)

// Violation is one maximal run of out-of-band samples, given as both
// sample indices and the corresponding x-axis bounds.
type Violation struct {
	StartIndex, EndIndex int
	StartX, EndX         float64
}

// Compute returns the violation intervals for y against cfg's thresholds.
// A value strictly below warning_min or strictly above warning_max is a
// violation; a value exactly at a threshold is not (strict inequality). A
// limit value of 0 is a valid threshold — disabling requires
// cfg.Enabled == false.
func Compute(x, y []float64, cfg model.LimitConfig) []Violation {
	if !cfg.Enabled || len(y) == 0 {
		return nil
	}

	violates := make([]bool, len(y))
	for i, v := range y {
		if v < cfg.WarningMin || v > cfg.WarningMax {
			violates[i] = true
		}
	}

	return collapseRuns(x, violates)
}

func collapseRuns(x []float64, violates []bool) []Violation {
	var out []Violation

	i := 0

	for i < len(violates) {
		if !violates[i] {
			i++

			continue
		}

		j := i
		for j+1 < len(violates) && violates[j+1] {
			j++
		}

		out = append(out, Violation{
			StartIndex: i, EndIndex: j,
			StartX: x[i], EndX: x[j],
		})

		i = j + 1
	}

	return out
}

// Index builds an interval tree over violations, keyed by sample index,
// so a caller can answer "is sample i inside a violation?" in O(log n)
// instead of scanning the violation list.
func Index(violations []Violation) *interval.Tree[int, int] {
	tree := interval.New[int, int]()

	for i, v := range violations {
		tree.Insert(v.StartIndex, v.EndIndex, i)
	}

	return tree
}
