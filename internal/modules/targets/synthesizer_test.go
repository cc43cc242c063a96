package targets

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashwinth04/FinHub/internal/domain"
	"github.com/Ashwinth04/FinHub/pkg/logger"
)

func newTestSynthesizer() *Synthesizer {
	return NewSynthesizer(logger.New(logger.Config{Level: "error"}))
}

// twoAssetReturns builds an uncorrelated two-asset return window with the
// given per-asset magnitudes. The sign patterns are orthogonal over each
// block of four rows, so sample correlation is zero and means are zero.
func twoAssetReturns(a, b float64, rows int) [][]float64 {
	signsA := []float64{1, -1, 1, -1}
	signsB := []float64{1, 1, -1, -1}
	out := make([][]float64, rows)
	for i := range out {
		out[i] = []float64{a * signsA[i%4], b * signsB[i%4]}
	}
	return out
}

func assertValidWeights(t *testing.T, w []float64) {
	t.Helper()
	sum := 0.0
	for _, v := range w {
		assert.GreaterOrEqual(t, v, 0.0)
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestSynthesize_AllStrategiesValidWeights(t *testing.T) {
	s := newTestSynthesizer()
	strategies := []domain.Strategy{
		domain.StrategyMaxSharpe,
		domain.StrategyMinVolatility,
		domain.StrategyEqualRiskContribution,
	}

	for n := 1; n <= 10; n++ {
		returns := make([][]float64, 40)
		for i := range returns {
			row := make([]float64, n)
			for j := range row {
				// Deterministic pseudo-random pattern with per-asset scale.
				row[j] = 0.01 * float64(j+1) * math.Sin(float64(i*(j+2)))
			}
			returns[i] = row
		}

		for _, strat := range strategies {
			for _, risk := range []int{1, 5, 10} {
				w := s.Synthesize(returns, strat, risk)
				require.Len(t, w, n)
				assertValidWeights(t, w)
				if n == 1 {
					assert.Equal(t, 1.0, w[0])
				}
			}
		}
	}
}

func TestSynthesize_DegenerateCovarianceFallsBackToEqual(t *testing.T) {
	s := newTestSynthesizer()

	// Zero-variance returns for every asset.
	returns := make([][]float64, 10)
	for i := range returns {
		returns[i] = []float64{0.01, 0.01, 0.01}
	}

	for _, strat := range []domain.Strategy{
		domain.StrategyMaxSharpe,
		domain.StrategyMinVolatility,
		domain.StrategyEqualRiskContribution,
	} {
		w := s.Synthesize(returns, strat, 5)
		for _, v := range w {
			assert.InDelta(t, 1.0/3.0, v, 1e-9)
		}
	}
}

func TestSynthesize_TooFewValidRowsFallsBackToEqual(t *testing.T) {
	s := newTestSynthesizer()

	returns := [][]float64{
		{0.01, math.NaN()},
		{0.02, 0.01},
		{math.NaN(), 0.03},
	}
	w := s.Synthesize(returns, domain.StrategyMaxSharpe, 5)
	assert.InDelta(t, 0.5, w[0], 1e-9)
	assert.InDelta(t, 0.5, w[1], 1e-9)
}

func TestMaxSharpe_AllNegativeMeansFallsBackToEqual(t *testing.T) {
	s := newTestSynthesizer()

	returns := make([][]float64, 20)
	for i := range returns {
		// Strictly negative returns with some spread.
		returns[i] = []float64{
			-0.01 - 0.001*float64(i%3),
			-0.02 - 0.002*float64(i%4),
		}
	}
	w := s.Synthesize(returns, domain.StrategyMaxSharpe, 5)
	assert.InDelta(t, 0.5, w[0], 1e-9)
	assert.InDelta(t, 0.5, w[1], 1e-9)
}

func TestMaxSharpe_FavorsHigherSharpeAsset(t *testing.T) {
	s := newTestSynthesizer()

	// Asset 0 drifts up with low noise, asset 1 is pure noise.
	returns := make([][]float64, 40)
	for i := range returns {
		noise := 0.001 * math.Pow(-1, float64(i))
		returns[i] = []float64{0.01 + noise, 0.02 * math.Pow(-1, float64(i))}
	}
	w := s.Synthesize(returns, domain.StrategyMaxSharpe, 5)
	assertValidWeights(t, w)
	assert.Greater(t, w[0], w[1])
}

func TestMinVolatility_RiskToleranceBlend(t *testing.T) {
	s := newTestSynthesizer()
	returns := twoAssetReturns(0.1, 0.4, 40)

	low := s.Synthesize(returns, domain.StrategyMinVolatility, 1)
	high := s.Synthesize(returns, domain.StrategyMinVolatility, 10)

	assertValidWeights(t, low)
	assertValidWeights(t, high)

	// Pure inverse-volatility is (0.8, 0.2); at risk 10 the blend is
	// exactly equal weight.
	invVol := []float64{0.8, 0.2}
	assert.Less(t, math.Abs(low[0]-invVol[0]), math.Abs(high[0]-invVol[0]))
	assert.InDelta(t, 0.5, high[0], 1e-9)
	assert.InDelta(t, 0.5, high[1], 1e-9)

	// At risk 1: 0.9·invvol + 0.1·equal.
	assert.InDelta(t, 0.9*0.8+0.1*0.5, low[0], 1e-6)
}

func TestERC_ConvergesToInverseVolatilityWhenUncorrelated(t *testing.T) {
	s := newTestSynthesizer()
	returns := twoAssetReturns(0.2, 0.1, 40)

	w := s.Synthesize(returns, domain.StrategyEqualRiskContribution, 5)
	assertValidWeights(t, w)

	// Zero correlation ERC is proportional to 1/sigma: (1, 2)/3.
	assert.InDelta(t, 1.0/3.0, w[0], 0.01)
	assert.InDelta(t, 2.0/3.0, w[1], 0.01)
}

func TestERC_HighRiskSkewsTowardOutperformers(t *testing.T) {
	s := newTestSynthesizer()

	// Same vol profile, but asset 1 has a positive drift.
	returns := twoAssetReturns(0.1, 0.1, 40)
	for i := range returns {
		returns[i][1] += 0.005
	}

	neutral := s.Synthesize(returns, domain.StrategyEqualRiskContribution, 5)
	aggressive := s.Synthesize(returns, domain.StrategyEqualRiskContribution, 10)

	assertValidWeights(t, neutral)
	assertValidWeights(t, aggressive)
	assert.Greater(t, aggressive[1], neutral[1])
}

func TestERC_SkewAppliesToDegenerateFallback(t *testing.T) {
	s := newTestSynthesizer()

	// Constant returns give an all-zero covariance, so the ERC iteration
	// falls back to equal weights. The high-risk skew still runs on top:
	// asset 1's mean (0.02) is above the average (0.015), so it scales by
	// 1 + (10-5)/5 = 2 before renormalizing.
	returns := make([][]float64, 10)
	for i := range returns {
		returns[i] = []float64{0.01, 0.02}
	}

	weights := s.Synthesize(returns, domain.StrategyEqualRiskContribution, 10)
	assertValidWeights(t, weights)
	assert.InDelta(t, 1.0/3.0, weights[0], 1e-9)
	assert.InDelta(t, 2.0/3.0, weights[1], 1e-9)

	// At neutral risk the fallback stays equal-weight.
	neutral := s.Synthesize(returns, domain.StrategyEqualRiskContribution, 5)
	assert.InDelta(t, 0.5, neutral[0], 1e-9)
	assert.InDelta(t, 0.5, neutral[1], 1e-9)
}

func TestEmbedFull(t *testing.T) {
	full := EmbedFull([]float64{0.25, 0.75}, []int{3, 1}, 5)
	assert.Equal(t, []float64{0, 0.75, 0, 0.25, 0}, full)
}
