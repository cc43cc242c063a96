package sampling

import (
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/Ashwinth04/FinHub/internal/domain"
	"github.com/Ashwinth04/FinHub/internal/modules/features"
	"github.com/Ashwinth04/FinHub/internal/modules/targets"
)

// Sampler produces WindowSamples from aligned multi-asset series. Training
// mode randomizes the start offset, the active subset, the strategy, and
// the risk tolerance; evaluation mode walks every valid start sequentially
// with the full universe, max-sharpe, and risk 5, so validation and test
// metrics are reproducible.
type Sampler struct {
	aligned    *features.AlignedData
	windowSize int
	synth      *targets.Synthesizer
	rng        *rand.Rand
	log        zerolog.Logger
}

// NewSampler creates a sampler over aligned data. The seed fixes the
// training-mode randomization.
func NewSampler(aligned *features.AlignedData, windowSize int, synth *targets.Synthesizer, seed int64, log zerolog.Logger) (*Sampler, error) {
	if len(aligned.Tickers) < 2 {
		return nil, domain.ErrInsufficientAssets
	}
	if len(aligned.Dates) <= windowSize {
		return nil, domain.ErrInsufficientHistory
	}

	return &Sampler{
		aligned:    aligned,
		windowSize: windowSize,
		synth:      synth,
		rng:        rand.New(rand.NewSource(seed)),
		log:        log.With().Str("component", "sampler").Logger(),
	}, nil
}

// NumAssets returns the universe size.
func (s *Sampler) NumAssets() int {
	return len(s.aligned.Tickers)
}

// EvaluationLen returns the number of deterministic evaluation samples:
// one per valid start offset.
func (s *Sampler) EvaluationLen() int {
	return len(s.aligned.Dates) - s.windowSize
}

// Sample produces count samples in the requested mode. In evaluation mode
// a non-positive count yields the full deterministic sequence; a positive
// count caps it.
func (s *Sampler) Sample(mode domain.SampleMode, count int) []domain.WindowSample {
	if mode == domain.SampleModeEvaluation {
		n := s.EvaluationLen()
		if count > 0 && count < n {
			n = count
		}
		out := make([]domain.WindowSample, n)
		for i := 0; i < n; i++ {
			out[i] = s.evaluationSample(i)
		}
		return out
	}

	out := make([]domain.WindowSample, count)
	for i := 0; i < count; i++ {
		out[i] = s.trainingSample()
	}
	return out
}

// trainingSample draws one randomized training example.
func (s *Sampler) trainingSample() domain.WindowSample {
	numAssets := s.NumAssets()
	start := s.rng.Intn(s.EvaluationLen())

	// Active subset of size 2..N.
	numActive := 2 + s.rng.Intn(numAssets-1)
	activeIdx := s.rng.Perm(numAssets)[:numActive]

	strategy := domain.Strategy(s.rng.Intn(domain.NumStrategies))
	riskTolerance := 1 + s.rng.Intn(10)

	return s.buildSample(start, activeIdx, strategy, riskTolerance)
}

// evaluationSample builds the deterministic sample at the given start
// offset: full universe, max-sharpe, moderate risk.
func (s *Sampler) evaluationSample(start int) domain.WindowSample {
	activeIdx := make([]int, s.NumAssets())
	for i := range activeIdx {
		activeIdx[i] = i
	}
	return s.buildSample(start, activeIdx, domain.StrategyMaxSharpe, 5)
}

// buildSample slices the window for all universe assets, synthesizes the
// target on the active subset only, and re-embeds it into full width.
func (s *Sampler) buildSample(start int, activeIdx []int, strategy domain.Strategy, riskTolerance int) domain.WindowSample {
	numAssets := s.NumAssets()

	returns := make([][]float64, s.windowSize)
	feats := make([][][]float64, s.windowSize)
	for t := 0; t < s.windowSize; t++ {
		returns[t] = make([]float64, numAssets)
		feats[t] = make([][]float64, numAssets)
		for a, ticker := range s.aligned.Tickers {
			returns[t][a] = s.aligned.Returns[ticker][start+t]
			feats[t][a] = s.aligned.Features[ticker][start+t]
		}
	}

	mask := make([]float64, numAssets)
	for _, idx := range activeIdx {
		mask[idx] = 1
	}

	activeReturns := make([][]float64, s.windowSize)
	for t := 0; t < s.windowSize; t++ {
		row := make([]float64, len(activeIdx))
		for i, idx := range activeIdx {
			row[i] = returns[t][idx]
		}
		activeReturns[t] = row
	}

	activeWeights := s.synth.Synthesize(activeReturns, strategy, riskTolerance)
	targetWeights := targets.EmbedFull(activeWeights, activeIdx, numAssets)

	return domain.WindowSample{
		Returns:       returns,
		Features:      feats,
		Mask:          mask,
		Strategy:      strategy.OneHot(),
		RiskTolerance: domain.NormalizeRisk(riskTolerance),
		TargetWeights: targetWeights,
	}
}
