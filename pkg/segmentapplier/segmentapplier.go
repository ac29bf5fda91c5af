// Package segmentapplier turns filter evaluation results into what the
// rendering collaborator actually draws: per-signal index-range views in
// segmented mode, or a compacted, concatenated series published back
// through the Signal Registry in concatenated mode.
package segmentapplier

import (
	"sort"

	"github.com/traceframe-dev/traceframe/pkg/eventbus"
	"github.com/traceframe-dev/traceframe/pkg/model"
)

// SignalSource is the subset of the Signal Registry the applier needs.
type SignalSource interface {
	Get(name string) (*model.Signal, error)
	SetFiltered(name string, x, y []float64) error
	RestoreOriginals(name string, x, y []float64) error
}

// DrawItem is one signal's view for segmented-mode rendering. X and Y are
// new slices holding copies of the samples covered by the segments, joined
// in segment order; they do not alias the signal's own backing arrays.
type DrawItem struct {
	SignalName    string
	X             []float64
	Y             []float64
	LegendVisible bool
}

// ApplyResult is the outcome of Apply.
type ApplyResult struct {
	DrawList []DrawItem // Populated in segmented mode.
}

// Applier realizes segmented and concatenated filter output.
type Applier struct {
	registry SignalSource
	bus      *eventbus.Bus
}

// New builds an Applier over the given registry, publishing lifecycle
// events to bus.
func New(registry SignalSource, bus *eventbus.Bus) *Applier {
	return &Applier{registry: registry, bus: bus}
}

// Apply realizes segments for the given signals under the requested mode.
func (a *Applier) Apply(tabID, graphID string, mode model.DisplayMode, signalNames []string, segments []model.Segment) (*ApplyResult, error) {
	if mode == model.DisplayConcatenated {
		return nil, a.applyConcatenated(tabID, signalNames, segments)
	}

	return a.applySegmented(signalNames, segments)
}

func (a *Applier) applySegmented(signalNames []string, segments []model.Segment) (*ApplyResult, error) {
	drawList := make([]DrawItem, 0, len(signalNames))

	for i, name := range signalNames {
		sig, err := a.registry.Get(name)
		if err != nil {
			return nil, err
		}

		x, y := sliceForSegments(sig.XData, sig.YData, segments)

		drawList = append(drawList, DrawItem{
			SignalName:    name,
			X:             x,
			Y:             y,
			LegendVisible: i == 0,
		})
	}

	return &ApplyResult{DrawList: drawList}, nil
}

func (a *Applier) applyConcatenated(tabID string, signalNames []string, segments []model.Segment) error {
	applied := false

	for _, name := range signalNames {
		sig, err := a.registry.Get(name)
		if err != nil {
			return err
		}

		x, y := sliceForSegments(sig.XData, sig.YData, segments)
		if len(x) == 0 {
			continue
		}

		if err := a.registry.SetFiltered(name, x, y); err != nil {
			return err
		}

		applied = true
	}

	if !applied {
		return model.ErrEmptyResult
	}

	if a.bus != nil {
		a.bus.Publish(eventbus.TopicConcatenationApplied, eventbus.ConcatenationPayload{TabID: tabID})
	}

	return nil
}

// Clear reverts every named signal to its load-time originals and
// publishes ConcatenationCleared.
func (a *Applier) Clear(tabID string, signalNames []string, originalsX map[string][]float64, originalsY map[string][]float64) error {
	for _, name := range signalNames {
		if err := a.registry.RestoreOriginals(name, originalsX[name], originalsY[name]); err != nil {
			return err
		}
	}

	if a.bus != nil {
		a.bus.Publish(eventbus.TopicConcatenationCleared, eventbus.ConcatenationPayload{TabID: tabID})
	}

	return nil
}

// sliceForSegments concatenates the x/y slices covered by segments, in
// segment order, preserving original time values (no remapping).
func sliceForSegments(x, y []float64, segments []model.Segment) ([]float64, []float64) {
	var outX, outY []float64

	for _, seg := range segments {
		lo := sort.SearchFloat64s(x, seg.Start)
		hi := sort.SearchFloat64s(x, seg.End)

		for hi < len(x) && x[hi] <= seg.End {
			hi++
		}

		outX = append(outX, x[lo:hi]...)
		outY = append(outY, y[lo:hi]...)
	}

	return outX, outY
}
