package targets

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/Ashwinth04/FinHub/internal/domain"
	"github.com/Ashwinth04/FinHub/pkg/formulas"
)

const (
	ercIterations = 100
	ercEpsilon    = 1e-10
)

// Synthesizer computes reference target weights for the three allocation
// strategies. It is a pure function over a return window: every degenerate
// numeric case falls back to equal weighting (logged, never an error).
type Synthesizer struct {
	log zerolog.Logger
}

// NewSynthesizer creates a target weight synthesizer.
func NewSynthesizer(log zerolog.Logger) *Synthesizer {
	return &Synthesizer{
		log: log.With().Str("component", "targets").Logger(),
	}
}

// Synthesize computes non-negative weights summing to 1 for the active
// assets only. returnsWindow is window_size × num_active; rows containing
// NaN are dropped before estimation.
func (s *Synthesizer) Synthesize(returnsWindow [][]float64, strategy domain.Strategy, riskTolerance int) []float64 {
	if len(returnsWindow) == 0 || len(returnsWindow[0]) == 0 {
		return nil
	}
	n := len(returnsWindow[0])
	if n == 1 {
		return []float64{1.0}
	}

	valid := dropNaNRows(returnsWindow)
	if len(valid) < 2 {
		s.log.Debug().Int("valid_rows", len(valid)).Msg("Too few valid rows, using equal weights")
		return equalWeights(n)
	}

	means := formulas.ColumnMeans(valid)
	cov := formulas.CovarianceMatrix(valid)

	switch strategy {
	case domain.StrategyMinVolatility:
		return s.minVolatility(cov, riskTolerance, n)
	case domain.StrategyEqualRiskContribution:
		weights := s.equalRiskContribution(cov, n)
		// The skew runs even over a degenerate equal-weight fallback.
		if riskTolerance > 5 {
			weights = s.skewTowardOutperformers(weights, means, riskTolerance)
		}
		return weights
	default:
		return s.maxSharpe(means, cov, riskTolerance, n)
	}
}

// EmbedFull re-embeds active-subset weights into a full-universe vector,
// zero outside the mask.
func EmbedFull(weights []float64, activeIdx []int, numAssets int) []float64 {
	full := make([]float64, numAssets)
	for i, idx := range activeIdx {
		full[idx] = weights[i]
	}
	return full
}

// maxSharpe weights each asset by its clipped pseudo-Sharpe ratio, scaled
// by risk tolerance. All-non-positive ratios fall back to equal weight.
func (s *Synthesizer) maxSharpe(means []float64, cov *mat.SymDense, riskTolerance, n int) []float64 {
	for i := 0; i < n; i++ {
		if cov.At(i, i) <= 0 {
			s.log.Warn().Int("asset", i).Msg("Degenerate covariance diagonal, using equal weights")
			return equalWeights(n)
		}
	}

	scale := float64(riskTolerance) / 5.0
	sharpe := make([]float64, n)
	positive := 0
	for i := 0; i < n; i++ {
		sharpe[i] = formulas.PseudoSharpe(means[i], math.Sqrt(cov.At(i, i))) * scale
		if sharpe[i] > 0 {
			positive++
		}
	}

	if positive == 0 {
		s.log.Debug().Msg("No positive pseudo-Sharpe, using equal weights")
		return equalWeights(n)
	}

	weights := make([]float64, n)
	total := 0.0
	for i, v := range sharpe {
		if v > 0 {
			weights[i] = v
			total += v
		}
	}
	if total <= 0 {
		return equalWeights(n)
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}

// minVolatility approximates the minimum-variance portfolio with
// inverse-volatility weighting, blended toward equal weight as risk
// tolerance rises: final = (1 - r/10)·invvol + (r/10)·equal.
func (s *Synthesizer) minVolatility(cov *mat.SymDense, riskTolerance, n int) []float64 {
	vols := make([]float64, n)
	for i := 0; i < n; i++ {
		vols[i] = math.Sqrt(cov.At(i, i))
		if vols[i] <= 0 || math.IsNaN(vols[i]) {
			s.log.Warn().Int("asset", i).Msg("Non-positive volatility, using equal weights")
			return equalWeights(n)
		}
	}

	weights := make([]float64, n)
	total := 0.0
	for i, v := range vols {
		weights[i] = 1.0 / v
		total += weights[i]
	}
	for i := range weights {
		weights[i] /= total
	}

	riskFactor := float64(riskTolerance) / 10.0
	equal := 1.0 / float64(n)
	for i := range weights {
		weights[i] = (1-riskFactor)*weights[i] + riskFactor*equal
	}
	return weights
}

// equalRiskContribution runs a fixed-point iteration toward equal per-asset
// risk contribution. The iteration count is fixed with no convergence test;
// a near-zero portfolio volatility returns equal weights immediately.
func (s *Synthesizer) equalRiskContribution(cov *mat.SymDense, n int) []float64 {
	if allZero(cov, n) {
		s.log.Debug().Msg("All-zero covariance, using equal weights")
		return equalWeights(n)
	}

	weights := equalWeights(n)
	w := mat.NewVecDense(n, weights)
	sigmaW := mat.NewVecDense(n, nil)

	for iter := 0; iter < ercIterations; iter++ {
		sigmaW.MulVec(cov, w)
		portfolioVar := mat.Dot(w, sigmaW)
		portfolioVol := math.Sqrt(portfolioVar)

		if portfolioVol <= ercEpsilon || math.IsNaN(portfolioVol) {
			s.log.Debug().Msg("Degenerate portfolio volatility in ERC, using equal weights")
			return equalWeights(n)
		}

		targetContrib := 0.0
		contribs := make([]float64, n)
		for i := 0; i < n; i++ {
			contribs[i] = w.AtVec(i) * sigmaW.AtVec(i) / portfolioVol
			targetContrib += contribs[i]
		}
		targetContrib /= float64(n)

		total := 0.0
		for i := 0; i < n; i++ {
			adjustment := 1.0
			if contribs[i] > ercEpsilon {
				adjustment = targetContrib / contribs[i]
			}
			w.SetVec(i, w.AtVec(i)*adjustment)
			total += w.AtVec(i)
		}
		for i := 0; i < n; i++ {
			w.SetVec(i, w.AtVec(i)/total)
		}
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = w.AtVec(i)
	}
	return out
}

// skewTowardOutperformers multiplies above-mean-return assets by
// 1 + (risk-5)/5 and renormalizes, concentrating in winners as risk
// appetite rises.
func (s *Synthesizer) skewTowardOutperformers(weights, means []float64, riskTolerance int) []float64 {
	avg := formulas.Mean(means)
	skewFactor := float64(riskTolerance-5) / 5.0

	total := 0.0
	out := make([]float64, len(weights))
	for i, w := range weights {
		out[i] = w
		if means[i] > avg {
			out[i] = w * (1.0 + skewFactor)
		}
		total += out[i]
	}
	if total <= 0 {
		return equalWeights(len(weights))
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

func equalWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}

func dropNaNRows(rows [][]float64) [][]float64 {
	var valid [][]float64
	for _, row := range rows {
		ok := true
		for _, v := range row {
			if math.IsNaN(v) {
				ok = false
				break
			}
		}
		if ok {
			valid = append(valid, row)
		}
	}
	return valid
}

func allZero(cov *mat.SymDense, n int) bool {
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if cov.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}
