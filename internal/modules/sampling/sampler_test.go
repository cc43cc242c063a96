package sampling

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashwinth04/FinHub/internal/domain"
	"github.com/Ashwinth04/FinHub/internal/modules/features"
	"github.com/Ashwinth04/FinHub/internal/modules/targets"
	"github.com/Ashwinth04/FinHub/pkg/logger"
)

func syntheticAligned(tickers []string, numDates int) *features.AlignedData {
	dates := make([]string, numDates)
	aligned := &features.AlignedData{
		Tickers:  tickers,
		Dates:    dates,
		Returns:  map[string][]float64{},
		Features: map[string][][]float64{},
	}
	for ai, ticker := range tickers {
		rets := make([]float64, numDates)
		feats := make([][]float64, numDates)
		for i := 0; i < numDates; i++ {
			rets[i] = 0.01 * float64(ai+1) * math.Sin(float64(i+ai))
			feats[i] = []float64{rets[i], 0.2, 0.1, 1.0}
		}
		aligned.Returns[ticker] = rets
		aligned.Features[ticker] = feats
	}
	return aligned
}

func newTestSampler(t *testing.T, numAssets, numDates, window int) *Sampler {
	t.Helper()
	log := logger.New(logger.Config{Level: "error"})
	tickers := make([]string, numAssets)
	for i := range tickers {
		tickers[i] = string(rune('A' + i))
	}
	s, err := NewSampler(syntheticAligned(tickers, numDates), window, targets.NewSynthesizer(log), 42, log)
	require.NoError(t, err)
	return s
}

func TestNewSampler_Validation(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	synth := targets.NewSynthesizer(log)

	_, err := NewSampler(syntheticAligned([]string{"A"}, 50), 10, synth, 1, log)
	assert.ErrorIs(t, err, domain.ErrInsufficientAssets)

	_, err = NewSampler(syntheticAligned([]string{"A", "B"}, 10), 10, synth, 1, log)
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
}

func TestSample_TrainingShapesAndInvariants(t *testing.T) {
	s := newTestSampler(t, 4, 60, 16)
	samples := s.Sample(domain.SampleModeTraining, 25)
	require.Len(t, samples, 25)

	for _, sample := range samples {
		require.Len(t, sample.Returns, 16)
		require.Len(t, sample.Returns[0], 4)
		require.Len(t, sample.Features, 16)
		require.Len(t, sample.Features[0], 4)
		require.Len(t, sample.Features[0][0], features.FeatureDim)
		require.Len(t, sample.Mask, 4)
		require.Len(t, sample.TargetWeights, 4)

		// At least 2 active assets.
		active := 0.0
		for _, m := range sample.Mask {
			active += m
		}
		assert.GreaterOrEqual(t, active, 2.0)

		// Target weights: zero outside the mask, sum 1 inside.
		sum := 0.0
		for i, w := range sample.TargetWeights {
			if sample.Mask[i] == 0 {
				assert.Equal(t, 0.0, w)
			}
			assert.GreaterOrEqual(t, w, 0.0)
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9)

		// One-hot strategy, normalized risk.
		assert.InDelta(t, 1.0, sample.Strategy[0]+sample.Strategy[1]+sample.Strategy[2], 1e-12)
		assert.GreaterOrEqual(t, sample.RiskTolerance, 0.1)
		assert.LessOrEqual(t, sample.RiskTolerance, 1.0)
	}
}

func TestSample_EvaluationDeterministicAndSequential(t *testing.T) {
	s := newTestSampler(t, 3, 40, 16)
	assert.Equal(t, 24, s.EvaluationLen())

	first := s.Sample(domain.SampleModeEvaluation, 0)
	second := s.Sample(domain.SampleModeEvaluation, 0)
	require.Len(t, first, 24)
	require.Len(t, second, 24)

	for i := range first {
		// Full universe active, fixed context.
		for _, m := range first[i].Mask {
			assert.Equal(t, 1.0, m)
		}
		assert.Equal(t, domain.StrategyMaxSharpe.OneHot(), first[i].Strategy)
		assert.Equal(t, 0.5, first[i].RiskTolerance)

		// Restartable: identical windows across invocations.
		assert.Equal(t, first[i].Returns, second[i].Returns)
		assert.Equal(t, first[i].TargetWeights, second[i].TargetWeights)
	}

	// Sequential starts: windows shift by one date.
	assert.Equal(t, first[0].Returns[1], first[1].Returns[0])

	capped := s.Sample(domain.SampleModeEvaluation, 5)
	assert.Len(t, capped, 5)
}
