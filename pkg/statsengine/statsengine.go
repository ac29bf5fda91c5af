// Package statsengine computes the descriptive statistics surfaced per
// signal: central tendency, spread, duty cycle, and (for large enough
// samples) shape statistics, built on top of pkg/alg/stats.
package statsengine

import (
	"math"
	"sort"

	"github.com/traceframe-dev/traceframe/pkg/alg/stats"
)

// DutyCycleMode selects how the threshold for duty-cycle accumulation is
// chosen.
type DutyCycleMode int

const (
	DutyCycleAuto DutyCycleMode = iota
	DutyCycleManual
)

// skewKurtosisMinSamples is the sample count that must be exceeded before
// skewness and kurtosis are computed; at or below it they are omitted
// rather than returned as unstable estimates.
const skewKurtosisMinSamples = 10

// Options configures one Compute call.
type Options struct {
	RangeStart, RangeEnd *float64
	DutyCycleMode        DutyCycleMode
	DutyCycleValue       float64
}

// Compute returns the descriptive statistics for one signal's (x, y)
// series. Undefined stats (division by zero, too few samples) are
// omitted from the result rather than reported as NaN.
func Compute(x, y []float64, opts Options) map[string]float64 {
	x, y = scopeRange(x, y, opts.RangeStart, opts.RangeEnd)

	out := make(map[string]float64)

	n := len(y)
	if n == 0 {
		return out
	}

	out["count"] = float64(n)

	mean, std := stats.MeanStdDev(y)
	out["mean"] = mean
	out["std"] = std
	out["min"] = stats.Min(y)
	out["max"] = stats.Max(y)
	out["median"] = stats.Median(y)
	out["rms"] = rms(y)
	out["peak_to_peak"] = out["max"] - out["min"]

	q25 := stats.Percentile(y, 0.25)
	q75 := stats.Percentile(y, 0.75)
	out["q25"] = q25
	out["q75"] = q75
	out["iqr"] = q75 - q25

	if n > skewKurtosisMinSamples && std > 0 {
		out["skewness"] = skewness(y, mean, std)
		out["kurtosis"] = kurtosis(y, mean, std)
	}

	if n > 1 {
		if rate, ok := sampleRate(x); ok {
			out["sample_rate"] = rate
		}
	}

	duration := x[n-1] - x[0]
	out["duration"] = duration

	threshold := mean
	if opts.DutyCycleMode == DutyCycleManual {
		threshold = opts.DutyCycleValue
	}

	out["duty_cycle_percent"] = dutyCyclePercent(x, y, threshold)

	return out
}

func scopeRange(x, y []float64, start, end *float64) ([]float64, []float64) {
	if start == nil && end == nil {
		return x, y
	}

	lo, hi := 0, len(x)

	if start != nil {
		lo = sort.SearchFloat64s(x, *start)
	}

	if end != nil {
		hi = sort.SearchFloat64s(x, *end)
		for hi < len(x) && x[hi] <= *end {
			hi++
		}
	}

	if lo > hi {
		lo = hi
	}

	return x[lo:hi], y[lo:hi]
}

func rms(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}

	sumSq := 0.0
	for _, v := range y {
		sumSq += v * v
	}

	return math.Sqrt(sumSq / float64(len(y)))
}

func skewness(y []float64, mean, std float64) float64 {
	n := float64(len(y))

	sum := 0.0
	for _, v := range y {
		d := (v - mean) / std
		sum += d * d * d
	}

	return sum / n
}

func kurtosis(y []float64, mean, std float64) float64 {
	n := float64(len(y))

	sum := 0.0
	for _, v := range y {
		d := (v - mean) / std
		sum += d * d * d * d
	}

	return sum/n - 3.0 // Excess kurtosis.
}

func sampleRate(x []float64) (float64, bool) {
	if len(x) < 2 {
		return 0, false
	}

	sumDx := 0.0
	for i := 1; i < len(x); i++ {
		sumDx += x[i] - x[i-1]
	}

	meanDx := sumDx / float64(len(x)-1)
	if meanDx <= 0 {
		return 0, false
	}

	return 1.0 / meanDx, true
}

// dutyCyclePercent accumulates time spent with y above threshold by
// walking threshold crossings between consecutive samples, then divides
// by total duration. Returns 0 if duration is zero.
func dutyCyclePercent(x, y []float64, threshold float64) float64 {
	if len(y) == 0 {
		return 0
	}

	if len(y) == 1 {
		if y[0] > threshold {
			return 100
		}

		return 0
	}

	duration := x[len(x)-1] - x[0]
	if duration <= 0 {
		return 0
	}

	above := 0.0

	for i := 0; i+1 < len(y); i++ {
		dt := x[i+1] - x[i]
		if y[i] > threshold {
			above += dt
		}
	}

	return above / duration * 100.0
}
