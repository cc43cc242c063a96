package domain

// Strategy identifies an allocation philosophy. The integer values are the
// canonical category indices used for one-hot encoding and the strategy
// embedding lookup; they must not be reordered once a model is trained.
type Strategy int

const (
	StrategyMaxSharpe Strategy = iota
	StrategyMinVolatility
	StrategyEqualRiskContribution

	NumStrategies = 3
)

// Strategy API names, matching the original service's request vocabulary.
const (
	StrategyNameMaxSharpe     = "Maximum Sharpe Ratio"
	StrategyNameMinVolatility = "Minimum Volatility"
	StrategyNameERC           = "Equal Risk Contribution"
)

// ParseStrategy maps an API strategy name to its category. Unknown names
// default to max-sharpe, as the original service did.
func ParseStrategy(name string) Strategy {
	switch name {
	case StrategyNameMinVolatility:
		return StrategyMinVolatility
	case StrategyNameERC:
		return StrategyEqualRiskContribution
	default:
		return StrategyMaxSharpe
	}
}

// Name returns the API name of the strategy.
func (s Strategy) Name() string {
	switch s {
	case StrategyMinVolatility:
		return StrategyNameMinVolatility
	case StrategyEqualRiskContribution:
		return StrategyNameERC
	default:
		return StrategyNameMaxSharpe
	}
}

// OneHot returns the strategy as a one-hot vector over the three categories.
func (s Strategy) OneHot() []float64 {
	v := make([]float64, NumStrategies)
	v[int(s)] = 1
	return v
}

// NormalizeRisk maps an integer risk tolerance level (1-10) to the [0,1]
// scalar the model consumes.
func NormalizeRisk(riskTolerance int) float64 {
	return float64(riskTolerance) / 10.0
}

// WindowSample is one training/validation/test example: a fixed-length
// window over the full universe, an activity mask, context, and the
// synthesized target weights (zero outside the mask, summing to 1 inside).
type WindowSample struct {
	// Returns is window_size × num_assets.
	Returns [][]float64
	// Features is window_size × num_assets × feature_dim.
	Features [][][]float64
	// Mask has 1 at active universe positions, 0 elsewhere.
	Mask []float64
	// Strategy one-hot over the three categories.
	Strategy []float64
	// RiskTolerance normalized to [0,1].
	RiskTolerance float64
	// TargetWeights over the full universe width.
	TargetWeights []float64
}

// SampleMode selects randomized training sampling or deterministic
// sequential evaluation sampling.
type SampleMode int

const (
	SampleModeTraining SampleMode = iota
	SampleModeEvaluation
)
