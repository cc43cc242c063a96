package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// Momentum computes the n-period rate of change of a price series:
// Momentum[i] = Price[i] / Price[i-n] - 1. Entries inside the lookback
// period are NaN so callers can drop incomplete rows.
func Momentum(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(prices) <= period {
		return out
	}

	// go-talib ROC is expressed in percent
	roc := talib.Roc(prices, period)
	for i := period; i < len(prices); i++ {
		out[i] = roc[i] / 100.0
	}
	return out
}

// VolumeRatio computes volume divided by its n-period simple moving average.
// Entries before a full window are NaN.
func VolumeRatio(volumes []float64, period int) []float64 {
	out := make([]float64, len(volumes))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(volumes) < period {
		return out
	}

	sma := talib.Sma(volumes, period)
	for i := period - 1; i < len(volumes); i++ {
		if sma[i] != 0 {
			out[i] = volumes[i] / sma[i]
		}
	}
	return out
}
