package features

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/Ashwinth04/FinHub/internal/domain"
	"github.com/Ashwinth04/FinHub/internal/modules/universe"
	"github.com/Ashwinth04/FinHub/pkg/formulas"
)

const (
	// FeatureDim is the per-asset feature width: 1-day return, 20-day
	// volatility, 20-day momentum, volume ratio.
	FeatureDim = 4

	// RollingWindow is the lookback for the rolling features.
	RollingWindow = 20
)

// ReturnSeries is a dated simple-return series for one asset.
type ReturnSeries struct {
	Dates  []string
	Values []float64
}

// FeatureFrame is a dated feature matrix for one asset; every row has
// FeatureDim columns and no NaNs.
type FeatureFrame struct {
	Dates []string
	Rows  [][]float64
}

// Processor turns raw price series into aligned returns and features.
type Processor struct {
	log zerolog.Logger
}

// NewProcessor creates a feature processor.
func NewProcessor(log zerolog.Logger) *Processor {
	return &Processor{
		log: log.With().Str("component", "features").Logger(),
	}
}

// CalculateReturns computes simple percentage-change returns from closing
// prices. The first observation is dropped.
func (p *Processor) CalculateReturns(prices []universe.PricePoint) ReturnSeries {
	if len(prices) < 2 {
		return ReturnSeries{}
	}

	closes := make([]float64, len(prices))
	for i, pt := range prices {
		closes[i] = pt.Close
	}

	values := formulas.CalculateReturns(closes)
	dates := make([]string, len(values))
	for i := range values {
		dates[i] = prices[i+1].Date
	}

	return ReturnSeries{Dates: dates, Values: values}
}

// CalculateFeatures computes the four per-asset features and drops every
// row where any feature is NaN, so the frame starts once all rolling
// windows are full.
func (p *Processor) CalculateFeatures(prices []universe.PricePoint) FeatureFrame {
	n := len(prices)
	if n == 0 {
		return FeatureFrame{}
	}

	closes := make([]float64, n)
	for i, pt := range prices {
		closes[i] = pt.Close
	}

	// 1-day returns, NaN at position 0.
	returns1d := make([]float64, n)
	returns1d[0] = math.NaN()
	for i := 1; i < n; i++ {
		if closes[i-1] != 0 {
			returns1d[i] = (closes[i] - closes[i-1]) / closes[i-1]
		} else {
			returns1d[i] = math.NaN()
		}
	}

	volatility := formulas.RollingStdDev(returns1d, RollingWindow)
	momentum := formulas.Momentum(closes, RollingWindow)
	volumeRatio := p.volumeRatio(prices)

	frame := FeatureFrame{}
	for i := 0; i < n; i++ {
		row := []float64{returns1d[i], volatility[i], momentum[i], volumeRatio[i]}
		if hasNaN(row) {
			continue
		}
		frame.Dates = append(frame.Dates, prices[i].Date)
		frame.Rows = append(frame.Rows, row)
	}

	return frame
}

// volumeRatio computes volume over its rolling mean, or a constant 1.0
// when volume is not recorded for the series.
func (p *Processor) volumeRatio(prices []universe.PricePoint) []float64 {
	volumes := make([]float64, len(prices))
	for i, pt := range prices {
		if pt.Volume == nil {
			out := make([]float64, len(prices))
			for j := range out {
				out[j] = 1.0
			}
			return out
		}
		volumes[i] = float64(*pt.Volume)
	}

	return formulas.VolumeRatio(volumes, RollingWindow)
}

// AlignedData is the per-asset return and feature series restricted to the
// date set common to every asset, sorted ascending.
type AlignedData struct {
	Tickers  []string
	Dates    []string
	Returns  map[string][]float64
	Features map[string][][]float64
}

// Align intersects the return and feature date indices across all assets
// and restricts every series to the common ordered index.
func (p *Processor) Align(tickers []string, returns map[string]ReturnSeries, features map[string]FeatureFrame) (*AlignedData, error) {
	var common map[string]bool
	for _, ticker := range tickers {
		dates := make(map[string]bool)
		for _, d := range returns[ticker].Dates {
			dates[d] = true
		}
		tickerDates := make(map[string]bool)
		for _, d := range features[ticker].Dates {
			if dates[d] {
				tickerDates[d] = true
			}
		}

		if common == nil {
			common = tickerDates
			continue
		}
		for d := range common {
			if !tickerDates[d] {
				delete(common, d)
			}
		}
	}

	if len(common) == 0 {
		return nil, domain.ErrInsufficientHistory
	}

	sorted := make([]string, 0, len(common))
	for d := range common {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)

	aligned := &AlignedData{
		Tickers:  tickers,
		Dates:    sorted,
		Returns:  make(map[string][]float64, len(tickers)),
		Features: make(map[string][][]float64, len(tickers)),
	}

	for _, ticker := range tickers {
		retByDate := make(map[string]float64, len(returns[ticker].Dates))
		for i, d := range returns[ticker].Dates {
			retByDate[d] = returns[ticker].Values[i]
		}
		featByDate := make(map[string][]float64, len(features[ticker].Dates))
		for i, d := range features[ticker].Dates {
			featByDate[d] = features[ticker].Rows[i]
		}

		rets := make([]float64, len(sorted))
		feats := make([][]float64, len(sorted))
		for i, d := range sorted {
			rets[i] = retByDate[d]
			feats[i] = featByDate[d]
		}
		aligned.Returns[ticker] = rets
		aligned.Features[ticker] = feats
	}

	p.log.Debug().
		Int("num_assets", len(tickers)).
		Int("num_dates", len(sorted)).
		Msg("Aligned asset series")

	return aligned, nil
}

// Normalize fits a scaler on the combined feature rows of all assets and
// applies it in place. The fitted scaler is returned so inference can
// apply the identical transform.
func (p *Processor) Normalize(aligned *AlignedData) *Scaler {
	var combined [][]float64
	for _, ticker := range aligned.Tickers {
		combined = append(combined, aligned.Features[ticker]...)
	}

	scaler := FitScaler(combined)
	for _, ticker := range aligned.Tickers {
		aligned.Features[ticker] = scaler.Transform(aligned.Features[ticker])
	}
	return scaler
}

func hasNaN(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
