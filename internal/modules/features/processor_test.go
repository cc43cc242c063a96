package features

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashwinth04/FinHub/internal/domain"
	"github.com/Ashwinth04/FinHub/internal/modules/universe"
	"github.com/Ashwinth04/FinHub/pkg/logger"
)

func pricesFromCloses(startDay int, closes []float64) []universe.PricePoint {
	prices := make([]universe.PricePoint, len(closes))
	for i, c := range closes {
		vol := int64(1000 + 10*i)
		prices[i] = universe.PricePoint{
			Date:   fmt.Sprintf("2024-01-%02d", startDay+i),
			Close:  c,
			Volume: &vol,
		}
	}
	return prices
}

func TestCalculateReturns(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	p := NewProcessor(log)

	prices := pricesFromCloses(1, []float64{100, 110, 99})
	rs := p.CalculateReturns(prices)

	require.Len(t, rs.Values, 2)
	assert.InDelta(t, 0.10, rs.Values[0], 1e-12)
	assert.InDelta(t, -0.10, rs.Values[1], 1e-12)
	assert.Equal(t, []string{"2024-01-02", "2024-01-03"}, rs.Dates)
}

func TestCalculateFeatures_DropsWarmupRows(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	p := NewProcessor(log)

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i) + 0.5*math.Sin(float64(i))
	}
	frame := p.CalculateFeatures(pricesFromCloses(1, closes))

	// Rolling volatility needs 20 one-day returns, so the first valid row
	// is at offset 20.
	require.Len(t, frame.Rows, 10)
	for _, row := range frame.Rows {
		require.Len(t, row, FeatureDim)
		for _, v := range row {
			assert.False(t, math.IsNaN(v))
		}
	}
}

func TestCalculateFeatures_ConstantVolumeRatioWithoutVolume(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	p := NewProcessor(log)

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	prices := pricesFromCloses(1, closes)
	for i := range prices {
		prices[i].Volume = nil
	}

	frame := p.CalculateFeatures(prices)
	require.NotEmpty(t, frame.Rows)
	for _, row := range frame.Rows {
		assert.Equal(t, 1.0, row[3])
	}
}

func TestAlign_IntersectsDates(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	p := NewProcessor(log)

	mk := func(dates []string) (ReturnSeries, FeatureFrame) {
		rs := ReturnSeries{Dates: dates, Values: make([]float64, len(dates))}
		ff := FeatureFrame{Dates: dates, Rows: make([][]float64, len(dates))}
		for i := range dates {
			rs.Values[i] = float64(i)
			ff.Rows[i] = []float64{float64(i), 0, 0, 1}
		}
		return rs, ff
	}

	rA, fA := mk([]string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"})
	rB, fB := mk([]string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"})
	rC, fC := mk([]string{"2024-01-03", "2024-01-02", "2024-01-06"})

	aligned, err := p.Align(
		[]string{"A", "B", "C"},
		map[string]ReturnSeries{"A": rA, "B": rB, "C": rC},
		map[string]FeatureFrame{"A": fA, "B": fB, "C": fC},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01-02", "2024-01-03"}, aligned.Dates)
	for _, ticker := range []string{"A", "B", "C"} {
		assert.Len(t, aligned.Returns[ticker], 2)
		assert.Len(t, aligned.Features[ticker], 2)
	}
}

func TestAlign_NoOverlapFails(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	p := NewProcessor(log)

	rA := ReturnSeries{Dates: []string{"2024-01-01"}, Values: []float64{0.1}}
	fA := FeatureFrame{Dates: []string{"2024-01-01"}, Rows: [][]float64{{0.1, 0, 0, 1}}}
	rB := ReturnSeries{Dates: []string{"2024-02-01"}, Values: []float64{0.2}}
	fB := FeatureFrame{Dates: []string{"2024-02-01"}, Rows: [][]float64{{0.2, 0, 0, 1}}}

	_, err := p.Align(
		[]string{"A", "B"},
		map[string]ReturnSeries{"A": rA, "B": rB},
		map[string]FeatureFrame{"A": fA, "B": fB},
	)
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
}

func TestScaler_FitTransform(t *testing.T) {
	rows := [][]float64{
		{1, 10, 100, 1},
		{3, 30, 300, 1},
	}
	s := FitScaler(rows)

	out := s.Transform(rows)
	// Zero mean per column after the transform.
	for j := 0; j < FeatureDim; j++ {
		assert.InDelta(t, 0, out[0][j]+out[1][j], 1e-12)
	}
	// Constant column keeps unit scale instead of dividing by zero.
	assert.Equal(t, 1.0, s.Std[3])
}

func TestScaler_TreatsNaNAsZero(t *testing.T) {
	rows := [][]float64{
		{math.NaN(), 2, 4, 1},
		{2, 2, 4, 1},
	}
	s := FitScaler(rows)
	assert.InDelta(t, 1.0, s.Mean[0], 1e-12)

	out := s.Transform([][]float64{{math.NaN(), 2, 4, 1}})
	assert.False(t, math.IsNaN(out[0][0]))
}
