package inference

import (
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashwinth04/FinHub/internal/domain"
	"github.com/Ashwinth04/FinHub/internal/modules/model"
	"github.com/Ashwinth04/FinHub/internal/modules/training"
)

const (
	testWindow = 8
	testHidden = 8
)

var testUniverse = []string{"AAPL", "MSFT", "GOOG"}

func readySlot(t *testing.T) *training.ModelSlot {
	t.Helper()

	n := len(testUniverse)
	m := model.New(model.Config{
		NumAssets:  n,
		WindowSize: testWindow,
		HiddenDim:  testHidden,
		Seed:       42,
	})

	rng := rand.New(rand.NewSource(7))
	returns := make([][]float64, testWindow)
	feats := make([][][]float64, testWindow)
	for tt := 0; tt < testWindow; tt++ {
		returns[tt] = make([]float64, n)
		feats[tt] = make([][]float64, n)
		for a := 0; a < n; a++ {
			returns[tt][a] = rng.NormFloat64() * 0.01
			row := make([]float64, 4)
			for f := range row {
				row[f] = rng.NormFloat64()
			}
			feats[tt][a] = row
		}
	}

	slot := training.NewModelSlot(zerolog.Nop())
	slot.Install(&training.ModelState{
		Model:          m,
		Universe:       testUniverse,
		WindowSize:     testWindow,
		LatestReturns:  returns,
		LatestFeatures: feats,
		Version:        1,
	})
	return slot
}

func TestPredictRequiresTrainedModel(t *testing.T) {
	adapter := NewAdapter(training.NewModelSlot(zerolog.Nop()), zerolog.Nop())

	_, err := adapter.Predict([]string{"AAPL"}, domain.StrategyNameMaxSharpe, 5)
	assert.ErrorIs(t, err, domain.ErrModelNotTrained)
}

func TestPredictValidatesInput(t *testing.T) {
	adapter := NewAdapter(readySlot(t), zerolog.Nop())

	_, err := adapter.Predict(nil, domain.StrategyNameMaxSharpe, 5)
	assert.Error(t, err)

	_, err = adapter.Predict([]string{"AAPL"}, domain.StrategyNameMaxSharpe, 0)
	assert.Error(t, err)

	_, err = adapter.Predict([]string{"AAPL"}, domain.StrategyNameMaxSharpe, 11)
	assert.Error(t, err)

	_, err = adapter.Predict([]string{"AAPL", "TSLA"}, domain.StrategyNameMaxSharpe, 5)
	assert.ErrorIs(t, err, domain.ErrUnknownTicker)
}

func TestPredictAllocatesOnlyRequestedTickers(t *testing.T) {
	adapter := NewAdapter(readySlot(t), zerolog.Nop())

	pred, err := adapter.Predict([]string{"AAPL", "MSFT"}, domain.StrategyNameMinVolatility, 3)
	require.NoError(t, err)

	assert.NotContains(t, pred.Weights, "GOOG")
	total := 0.0
	for ticker, w := range pred.Weights {
		assert.Contains(t, []string{"AAPL", "MSFT"}, ticker)
		assert.Greater(t, w, 0.001)
		total += w
	}
	assert.InDelta(t, 1.0, total, 0.01)

	assert.Equal(t, domain.StrategyNameMinVolatility, pred.Strategy)
	assert.Equal(t, 1, pred.ModelVersion)
	assert.NotEmpty(t, pred.Metrics.AnnualReturn)
	assert.NotEmpty(t, pred.Metrics.AnnualVolatility)
	assert.NotEmpty(t, pred.Metrics.SharpeRatio)
}

func TestPredictIsDeterministic(t *testing.T) {
	adapter := NewAdapter(readySlot(t), zerolog.Nop())

	first, err := adapter.Predict(testUniverse, domain.StrategyNameERC, 7)
	require.NoError(t, err)
	second, err := adapter.Predict(testUniverse, domain.StrategyNameERC, 7)
	require.NoError(t, err)

	assert.Equal(t, first.Weights, second.Weights)
	assert.Equal(t, first.Metrics, second.Metrics)
}

func TestExpectedMetricsFromPortfolioSeries(t *testing.T) {
	adapter := NewAdapter(training.NewModelSlot(zerolog.Nop()), zerolog.Nop())

	state := &training.ModelState{
		Universe: []string{"AAPL", "MSFT"},
		LatestReturns: [][]float64{
			{0.01, 0.03},
			{0.02, 0.01},
			{0.00, 0.02},
		},
	}
	weights := map[string]float64{"AAPL": 0.5, "MSFT": 0.5}

	// Equal-weight portfolio series is {0.02, 0.015, 0.01}: mean 0.015,
	// sample std 0.005.
	metrics := adapter.expectedMetrics(state, []int{0, 1}, weights)
	assert.Equal(t, "378.00%", metrics.AnnualReturn)
	assert.Equal(t, "7.94%", metrics.AnnualVolatility)
	assert.Equal(t, "47.62", metrics.SharpeRatio)
}

func TestPredictUnknownStrategyDefaultsToMaxSharpe(t *testing.T) {
	adapter := NewAdapter(readySlot(t), zerolog.Nop())

	pred, err := adapter.Predict(testUniverse, "Momentum Tilt", 5)
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyNameMaxSharpe, pred.Strategy)
}
