// Package cursor implements the dual-cursor controller: mode transitions,
// click/drag handling, snap-to-sample, and zoom-to-cursors range
// computation.
package cursor

import (
	"sort"
	"sync"

	"github.com/traceframe-dev/traceframe/pkg/eventbus"
	"github.com/traceframe-dev/traceframe/pkg/model"
)

// zoomExpansionFraction is the fractional expansion applied to each side
// of the [min(c1,c2), max(c1,c2)] span for zoom-to-cursors.
const zoomExpansionFraction = 0.05

// SignalSource supplies the set of known signals for snap-to-sample.
type SignalSource interface {
	List() []string
	Get(name string) (*model.Signal, error)
}

// Controller owns the CursorState for one tab and the lazily-built
// snap-to-sample union cache.
type Controller struct {
	mu       sync.Mutex
	state    model.CursorState
	registry SignalSource
	bus      *eventbus.Bus

	unionOnce sync.Once
	union     []unionPoint
}

type unionPoint struct {
	x      float64
	signal string
}

// New builds a Controller reading signals from registry.
func New(registry SignalSource, bus *eventbus.Bus) *Controller {
	return &Controller{
		state:    model.CursorState{Mode: model.CursorNone},
		registry: registry,
		bus:      bus,
	}
}

// State returns a copy of the current cursor state.
func (c *Controller) State() model.CursorState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// SetSnapEnabled toggles whether subsequent clicks and drags snap to the
// nearest known sample.
func (c *Controller) SetSnapEnabled(enabled bool) {
	c.mu.Lock()
	c.state.SnapEnabled = enabled
	c.mu.Unlock()
}

// SetModeNone destroys all cursors and publishes CursorsCleared.
func (c *Controller) SetModeNone() {
	c.mu.Lock()
	c.state = model.CursorState{Mode: model.CursorNone, SnapEnabled: c.state.SnapEnabled}
	c.mu.Unlock()

	if c.bus != nil {
		c.bus.Publish(eventbus.TopicCursorsCleared, nil)
	}
}

// SetModeDual creates c1 at 1/3 and c2 at 2/3 of the visible x range and
// publishes both positions.
func (c *Controller) SetModeDual(visibleMin, visibleMax float64) {
	span := visibleMax - visibleMin
	c1 := visibleMin + span/3.0
	c2 := visibleMin + span*2.0/3.0

	c.mu.Lock()
	c.state = model.CursorState{Mode: model.CursorDual, C1: &c1, C2: &c2, SnapEnabled: c.state.SnapEnabled}
	c.mu.Unlock()

	c.publishMoved()
}

// ClickAt handles a click at x in dual mode: creates c1 if neither
// cursor exists, c2 if only c1 exists, otherwise moves whichever cursor
// is closer to x.
func (c *Controller) ClickAt(x float64) {
	x = c.maybeSnap(x)

	c.mu.Lock()

	if c.state.Mode != model.CursorDual {
		c.mu.Unlock()

		return
	}

	switch {
	case c.state.C1 == nil:
		c.state.C1 = &x
	case c.state.C2 == nil:
		c.state.C2 = &x
	default:
		if absDiff(*c.state.C1, x) <= absDiff(*c.state.C2, x) {
			c.state.C1 = &x
		} else {
			c.state.C2 = &x
		}
	}

	c.mu.Unlock()

	c.publishMoved()
}

// CursorID identifies which of the two cursors to move.
type CursorID int

const (
	Cursor1 CursorID = iota
	Cursor2
)

// Drag updates the given cursor's position, applying snap if enabled.
func (c *Controller) Drag(id CursorID, x float64) {
	x = c.maybeSnap(x)

	c.mu.Lock()

	if c.state.Mode != model.CursorDual {
		c.mu.Unlock()

		return
	}

	if id == Cursor1 {
		c.state.C1 = &x
	} else {
		c.state.C2 = &x
	}

	c.mu.Unlock()

	c.publishMoved()
}

func (c *Controller) publishMoved() {
	if c.bus == nil {
		return
	}

	st := c.State()
	c.bus.Publish(eventbus.TopicCursorMoved, eventbus.CursorMovedPayload{C1: st.C1, C2: st.C2})
}

// ZoomRange computes [min(c1,c2), max(c1,c2)] expanded by 5% on each
// side. ok is false unless both cursors exist.
func (c *Controller) ZoomRange() (lo, hi float64, ok bool) {
	st := c.State()
	if st.C1 == nil || st.C2 == nil {
		return 0, 0, false
	}

	lo, hi = *st.C1, *st.C2
	if lo > hi {
		lo, hi = hi, lo
	}

	span := hi - lo
	expansion := span * zoomExpansionFraction

	return lo - expansion, hi + expansion, true
}

// maybeSnap passes x through snap-to-sample if enabled.
func (c *Controller) maybeSnap(x float64) float64 {
	c.mu.Lock()
	enabled := c.state.SnapEnabled
	c.mu.Unlock()

	if !enabled {
		return x
	}

	return c.SnapToSample(x)
}

// SnapToSample finds, across every signal known to the registry, the x
// value with minimum |x - xClick|, tie-breaking by first signal
// encountered in registry.List() order. The union of all signals' x
// values is sorted and cached on first use, so each query thereafter is
// a single O(log N) binary search rather than a linear rescan.
func (c *Controller) SnapToSample(xClick float64) float64 {
	c.buildUnion()

	if len(c.union) == 0 {
		return xClick
	}

	i := sort.Search(len(c.union), func(i int) bool { return c.union[i].x >= xClick })

	candidates := make([]int, 0, 2)
	if i < len(c.union) {
		candidates = append(candidates, i)
	}

	if i > 0 {
		candidates = append(candidates, i-1)
	}

	best := candidates[0]
	for _, idx := range candidates[1:] {
		if absDiff(c.union[idx].x, xClick) < absDiff(c.union[best].x, xClick) {
			best = idx
		}
	}

	return c.union[best].x
}

// buildUnion merges every signal's x values into one sorted slice,
// preserving first-signal-encountered order for exact ties (stable sort
// keyed on x only).
func (c *Controller) buildUnion() {
	c.unionOnce.Do(func() {
		for _, name := range c.registry.List() {
			sig, err := c.registry.Get(name)
			if err != nil {
				continue
			}

			for _, x := range sig.XData {
				c.union = append(c.union, unionPoint{x: x, signal: name})
			}
		}

		sort.SliceStable(c.union, func(i, j int) bool { return c.union[i].x < c.union[j].x })
	})
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}

	return b - a
}
