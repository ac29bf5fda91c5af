// Package registry holds the live set of Signals for an open project:
// add/remove/list, normalization with result caching, and the filtered/
// restored series swap used by the Segment Applier's concatenated mode.
package registry

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/traceframe-dev/traceframe/pkg/model"
)

// Registry is the thread-safe store of Signals for one open project.
// Mutating operations take an exclusive lock; readers take a shared lock
// and observe a consistent snapshot at a point in time.
type Registry struct {
	mu   sync.RWMutex
	data map[string]*model.Signal
	norm map[normKey][]float64
}

type normKey struct {
	name   string
	method model.NormalizationState
	hash   uint64
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		data: make(map[string]*model.Signal),
		norm: make(map[normKey][]float64),
	}
}

// Add registers a new signal, copying y into original_y exactly once.
func (r *Registry) Add(name string, x, y []float64, metadata map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	original := make([]float64, len(y))
	copy(original, y)

	yCopy := make([]float64, len(y))
	copy(yCopy, y)

	sig := &model.Signal{
		Name:               name,
		XData:              x,
		YData:              yCopy,
		OriginalY:          original,
		Metadata:           metadata,
		NormalizationState: model.NormalizationRaw,
	}

	if err := sig.Validate(); err != nil {
		return err
	}

	r.data[name] = sig

	return nil
}

// Get returns the signal with the given name.
func (r *Registry) Get(name string) (*model.Signal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sig, ok := r.data[name]
	if !ok {
		return nil, model.ErrUnknownSignal
	}

	return sig, nil
}

// Remove deletes the signal with the given name, if present.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.data, name)
}

// List returns every signal name currently registered.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.data))
	for name := range r.data {
		names = append(names, name)
	}

	return names
}

// Clear removes every signal and cached normalization result.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data = make(map[string]*model.Signal)
	r.norm = make(map[normKey][]float64)
}

// SetFiltered swaps in a compacted (x', y') series for concatenated-mode
// display. original_y is updated to match the new length so downstream
// statistics and re-normalization stay consistent.
func (r *Registry) SetFiltered(name string, x, y []float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sig, ok := r.data[name]
	if !ok {
		return model.ErrUnknownSignal
	}

	sig.XData = x
	sig.YData = y
	sig.OriginalY = make([]float64, len(y))
	copy(sig.OriginalY, y)
	sig.NormalizationState = model.NormalizationRaw

	return nil
}

// RestoreOriginals replaces y_data and original_y from the untouched
// snapshot given, reverting any concatenated-mode substitution.
func (r *Registry) RestoreOriginals(name string, x, y []float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sig, ok := r.data[name]
	if !ok {
		return model.ErrUnknownSignal
	}

	sig.XData = x
	sig.YData = make([]float64, len(y))
	copy(sig.YData, y)
	sig.OriginalY = make([]float64, len(y))
	copy(sig.OriginalY, y)
	sig.NormalizationState = model.NormalizationRaw

	return nil
}

// ApplyNormalization vectorizes the given normalization method over each
// named signal's original_y and stores the result as its y_data, caching
// results keyed by (name, method, hash(original_y)) so repeated requests
// for the same data are free.
func (r *Registry) ApplyNormalization(names []string, method model.NormalizationState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		sig, ok := r.data[name]
		if !ok {
			return model.ErrUnknownSignal
		}

		key := normKey{name: name, method: method, hash: hashFloats(sig.OriginalY)}

		cached, ok := r.norm[key]
		if !ok {
			cached = normalize(sig.OriginalY, method)
			r.norm[key] = cached
		}

		sig.YData = cached
		sig.NormalizationState = method
	}

	return nil
}

// RemoveNormalization reverts the named signals to raw y_data.
func (r *Registry) RemoveNormalization(names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		sig, ok := r.data[name]
		if !ok {
			return model.ErrUnknownSignal
		}

		sig.YData = make([]float64, len(sig.OriginalY))
		copy(sig.YData, sig.OriginalY)
		sig.NormalizationState = model.NormalizationRaw
	}

	return nil
}

func hashFloats(vals []float64) uint64 {
	h := xxhash.New()

	buf := make([]byte, 8)
	for _, v := range vals {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		_, _ = h.Write(buf)
	}

	return h.Sum64()
}

func normalize(y []float64, method model.NormalizationState) []float64 {
	out := make([]float64, len(y))
	if len(y) == 0 {
		return out
	}

	switch method {
	case model.NormalizationPeak:
		peak := 0.0
		for _, v := range y {
			if abs := math.Abs(v); abs > peak {
				peak = abs
			}
		}

		if peak == 0 {
			copy(out, y)

			return out
		}

		for i, v := range y {
			out[i] = v / peak
		}
	case model.NormalizationRMS:
		sumSq := 0.0
		for _, v := range y {
			sumSq += v * v
		}

		rms := math.Sqrt(sumSq / float64(len(y)))
		if rms == 0 {
			copy(out, y)

			return out
		}

		for i, v := range y {
			out[i] = v / rms
		}
	case model.NormalizationMinMax:
		mn, mx := y[0], y[0]
		for _, v := range y {
			if v < mn {
				mn = v
			}

			if v > mx {
				mx = v
			}
		}

		span := mx - mn
		if span == 0 {
			copy(out, y)

			return out
		}

		for i, v := range y {
			out[i] = (v - mn) / span
		}
	case model.NormalizationZScore:
		mean := 0.0
		for _, v := range y {
			mean += v
		}

		mean /= float64(len(y))

		variance := 0.0
		for _, v := range y {
			d := v - mean
			variance += d * d
		}

		variance /= float64(len(y))

		std := math.Sqrt(variance)
		if std == 0 {
			copy(out, y)

			return out
		}

		for i, v := range y {
			out[i] = (v - mean) / std
		}
	default:
		copy(out, y)
	}

	return out
}
