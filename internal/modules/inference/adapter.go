// Package inference serves allocation predictions from the latest trained
// model state. Request context is encoded with the exact rules used during
// training, so a prediction is indistinguishable from an evaluation sample
// over the requested subset.
package inference

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Ashwinth04/FinHub/internal/domain"
	"github.com/Ashwinth04/FinHub/internal/modules/training"
	"github.com/Ashwinth04/FinHub/pkg/formulas"
)

const (
	// Weights at or below this are numerical residue of the masked
	// softmax, not meaningful holdings.
	inclusionThreshold = 0.001

	tradingDaysPerYear = 252
)

// ExpectedMetrics summarizes the predicted portfolio from the most recent
// aligned return window.
type ExpectedMetrics struct {
	AnnualReturn     string `json:"Expected Annual Return"`
	AnnualVolatility string `json:"Expected Annual Volatility"`
	SharpeRatio      string `json:"Expected Sharpe Ratio"`
}

// Prediction is the result of one inference call.
type Prediction struct {
	Weights      map[string]float64 `json:"portfolio_weights"`
	Metrics      ExpectedMetrics    `json:"expected_metrics"`
	Strategy     string             `json:"strategy"`
	ModelVersion int                `json:"model_version"`
}

// Adapter reads the model slot and runs forward passes.
type Adapter struct {
	slot *training.ModelSlot
	log  zerolog.Logger
}

// NewAdapter creates an inference adapter over the shared model slot.
func NewAdapter(slot *training.ModelSlot, log zerolog.Logger) *Adapter {
	return &Adapter{
		slot: slot,
		log:  log.With().Str("component", "inference").Logger(),
	}
}

// Predict allocates across the requested tickers. Every ticker must be in
// the trained universe; the activity mask, strategy one-hot, and
// normalized risk scalar are built exactly as during training. Tickers
// whose predicted weight does not clear the inclusion threshold are
// omitted from the result.
func (a *Adapter) Predict(tickers []string, strategyName string, riskTolerance int) (*Prediction, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers requested")
	}
	if riskTolerance < 1 || riskTolerance > 10 {
		return nil, fmt.Errorf("risk tolerance must be between 1 and 10, got %d", riskTolerance)
	}

	state, err := a.slot.Current()
	if err != nil {
		return nil, err
	}

	mask := make([]float64, len(state.Universe))
	activeIdx := make([]int, 0, len(tickers))
	for _, ticker := range tickers {
		idx := state.IndexOf(ticker)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s not in universe %v", domain.ErrUnknownTicker, ticker, state.Universe)
		}
		if mask[idx] == 0 {
			mask[idx] = 1
			activeIdx = append(activeIdx, idx)
		}
	}

	strategy := domain.ParseStrategy(strategyName)
	rawWeights := state.Model.Predict(
		state.LatestReturns,
		state.LatestFeatures,
		mask,
		strategy.OneHot(),
		domain.NormalizeRisk(riskTolerance),
	)

	weights := make(map[string]float64)
	for i, ticker := range state.Universe {
		if mask[i] == 1 && rawWeights[i] > inclusionThreshold {
			weights[ticker] = rawWeights[i]
		}
	}

	a.log.Info().
		Strs("tickers", tickers).
		Str("strategy", strategy.Name()).
		Int("risk_tolerance", riskTolerance).
		Int("holdings", len(weights)).
		Msg("Prediction served")

	return &Prediction{
		Weights:      weights,
		Metrics:      a.expectedMetrics(state, activeIdx, weights),
		Strategy:     strategy.Name(),
		ModelVersion: state.Version,
	}, nil
}

// expectedMetrics projects the predicted weights onto the latest return
// window and reports the portfolio-level annualized expected return,
// volatility, and their ratio.
func (a *Adapter) expectedMetrics(state *training.ModelState, activeIdx []int, weights map[string]float64) ExpectedMetrics {
	series := make([]float64, len(state.LatestReturns))
	for t, row := range state.LatestReturns {
		v := 0.0
		for _, idx := range activeIdx {
			v += weights[state.Universe[idx]] * row[idx]
		}
		series[t] = v
	}

	portfolioReturn := formulas.Mean(series) * tradingDaysPerYear
	volatility := formulas.AnnualizedVolatility(series)

	sharpe := 0.0
	if s := formulas.CalculateSharpeRatio(series, 0, tradingDaysPerYear); s != nil {
		sharpe = *s
	}

	return ExpectedMetrics{
		AnnualReturn:     fmt.Sprintf("%.2f%%", portfolioReturn*100),
		AnnualVolatility: fmt.Sprintf("%.2f%%", volatility*100),
		SharpeRatio:      fmt.Sprintf("%.2f", sharpe),
	}
}
