// Package deviation implements the Deviation Engine: a least-squares
// trend line smoothed by sensitivity-derived EMA, rolling mean/threshold
// bands, and fluctuation-alert red-segment detection.
package deviation

import (
	"math"

	"github.com/traceframe-dev/traceframe/pkg/alg/stats"
	"github.com/traceframe-dev/traceframe/pkg/model"
)

// minSensitivity and maxSensitivity bound the trend config's Sensitivity
// field (1 = heaviest smoothing, 5 = lightest).
const (
	minSensitivity = 1
	maxSensitivity = 5
)

// sensitivityToAlpha maps sensitivity 1..5 to an EMA alpha: heavier
// smoothing (sensitivity 1) gets a smaller alpha.
func sensitivityToAlpha(sensitivity int) float64 {
	s := stats.Clamp(sensitivity, minSensitivity, maxSensitivity)

	const minAlpha, maxAlpha = 0.05, 0.5

	frac := float64(s-minSensitivity) / float64(maxSensitivity-minSensitivity)

	return minAlpha + frac*(maxAlpha-minAlpha)
}

// TrendLine fits y = a*index + b by least squares, then smooths the
// fitted line with an EMA whose alpha is derived from sensitivity.
func TrendLine(y []float64, sensitivity int) []float64 {
	n := len(y)
	if n == 0 {
		return nil
	}

	a, b := leastSquares(y)

	fitted := make([]float64, n)
	for i := range fitted {
		fitted[i] = a*float64(i) + b
	}

	ema := stats.NewEMA(sensitivityToAlpha(sensitivity))
	smoothed := make([]float64, n)

	for i, v := range fitted {
		smoothed[i] = ema.Update(v)
	}

	return smoothed
}

func leastSquares(y []float64) (a, b float64) {
	n := float64(len(y))
	if n == 0 {
		return 0, 0
	}

	var sumX, sumY, sumXY, sumXX float64

	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}

	a = (n*sumXY - sumX*sumY) / denom
	b = (sumY - a*sumX) / n

	return a, b
}

// Band is the rolling mean/threshold band for one index.
type Band struct {
	Mean, Upper, Lower float64
}

// RollingBands computes, for each i from windowSamples through len(y), the
// mean of y[i-windowSamples:i] and the +/- thresholdPercent band around it,
// so it returns len(y)-windowSamples+1 bands. Samples before the first full
// window get no band.
func RollingBands(y []float64, windowSamples int, thresholdPercent float64) []Band {
	if windowSamples <= 0 || len(y) < windowSamples {
		return nil
	}

	bands := make([]Band, 0, len(y)-windowSamples+1)

	for i := windowSamples; i <= len(y); i++ {
		mean := stats.Mean(y[i-windowSamples : i])
		p := thresholdPercent / 100.0

		bands = append(bands, Band{
			Mean:  mean,
			Upper: mean * (1 + p),
			Lower: mean * (1 - p),
		})
	}

	return bands
}

// Alert is one fluctuation alert: the sample index that deviated from
// its preceding window's mean by more than the configured threshold.
type Alert struct {
	Index            int
	Value            float64
	Expected         float64
	DeviationPercent float64
}

// Fluctuations scans y from windowSamples to N-1, comparing each sample
// against the mean of the preceding window. mean == 0 is undefined
// deviation: it records 0% and never raises an alert.
func Fluctuations(y []float64, windowSamples int, thresholdPercent float64) []Alert {
	if windowSamples <= 0 || len(y) <= windowSamples {
		return nil
	}

	var alerts []Alert

	for i := windowSamples; i < len(y); i++ {
		mean := stats.Mean(y[i-windowSamples : i])

		var deviationPercent float64
		if mean != 0 {
			deviationPercent = math.Abs(y[i]-mean) / math.Abs(mean) * 100.0
		}

		if mean != 0 && deviationPercent > thresholdPercent {
			alerts = append(alerts, Alert{
				Index: i, Value: y[i], Expected: mean, DeviationPercent: deviationPercent,
			})
		}
	}

	return alerts
}

// RedSegment is a maximal run of consecutive alert indices.
type RedSegment struct {
	StartIndex, EndIndex int
	PeakDeviationPercent float64
}

// RedSegments merges consecutive alert indices into maximal runs.
func RedSegments(alerts []Alert) []RedSegment {
	var segs []RedSegment

	i := 0

	for i < len(alerts) {
		j := i
		peak := alerts[i].DeviationPercent

		for j+1 < len(alerts) && alerts[j+1].Index == alerts[j].Index+1 {
			j++

			if alerts[j].DeviationPercent > peak {
				peak = alerts[j].DeviationPercent
			}
		}

		segs = append(segs, RedSegment{
			StartIndex: alerts[i].Index, EndIndex: alerts[j].Index, PeakDeviationPercent: peak,
		})

		i = j + 1
	}

	return segs
}

// Compute runs trend, bands, and fluctuation detection per cfg, over the
// named signal's y_data.
func Compute(y []float64, cfg model.DeviationConfig) (trend []float64, bands []Band, alerts []Alert, reds []RedSegment) {
	if cfg.Trend.Enabled {
		trend = TrendLine(y, cfg.Trend.Sensitivity)
	}

	if cfg.Bands.Enabled {
		bands = RollingBands(y, cfg.Fluctuation.WindowSamples, cfg.Fluctuation.ThresholdPct)
	}

	if cfg.Fluctuation.Enabled {
		alerts = Fluctuations(y, cfg.Fluctuation.WindowSamples, cfg.Fluctuation.ThresholdPct)
		reds = RedSegments(alerts)
	}

	return trend, bands, alerts, reds
}
