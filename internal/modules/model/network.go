// Package model implements the neural allocation predictor. One shared
// encoder pass embeds every universe asset, a self-attention block mixes
// the embeddings across assets, and a masked softmax head emits a weight
// distribution over exactly the active subset.
package model

import (
	"math/rand"

	ad "github.com/Ashwinth04/FinHub/pkg/autodiff"
)

const maskedLogitPenalty = 1e10

// Config holds the architecture hyperparameters. NumAssets is fixed at
// construction; variable active subsets are expressed through the mask,
// never by resizing the architecture.
type Config struct {
	NumAssets     int
	WindowSize    int
	HiddenDim     int
	FeatureDim    int
	NumStrategies int
	NumHeads      int
	// Dropout rate for the combined head. Zero selects the default;
	// a negative value disables dropout entirely.
	Dropout float64
	Seed    int64
}

// assetEncoder turns one asset's sub-series into a fixed-width embedding:
// two rounds of convolution + GELU + downsampling, a bidirectional LSTM
// summarizer, and a projection to the hidden width. The same encoder
// parameters are applied to every asset.
type assetEncoder struct {
	conv1 *conv1d
	conv2 *conv1d
	lstm  *biLSTM
	proj  *linearLayer
}

func newAssetEncoder(inputDim, hiddenDim int, rng *rand.Rand) *assetEncoder {
	return &assetEncoder{
		conv1: newConv1d(inputDim, hiddenDim, 5, rng),
		conv2: newConv1d(hiddenDim, hiddenDim, 5, rng),
		lstm:  newBiLSTM(hiddenDim, hiddenDim, rng),
		proj:  newLinear(hiddenDim*2, hiddenDim, rng),
	}
}

func (e *assetEncoder) encode(seq [][]*ad.Value) []*ad.Value {
	x := maxPool1d(geluSeq(e.conv1.forward(seq)))
	x = maxPool1d(geluSeq(e.conv2.forward(x)))
	return e.proj.forward(e.lstm.lastOutput(x))
}

func (e *assetEncoder) params() []*ad.Value {
	var ps []*ad.Value
	ps = append(ps, e.conv1.params()...)
	ps = append(ps, e.conv2.params()...)
	ps = append(ps, e.lstm.params()...)
	ps = append(ps, e.proj.params()...)
	return ps
}

// AllocationModel is the end-to-end allocation predictor.
type AllocationModel struct {
	cfg Config
	rng *rand.Rand

	returnEncoder  *assetEncoder
	featureEncoder *assetEncoder
	assetCombiner  *linearLayer
	crossAsset     *attentionBlock

	strategyEmbedding [][]*ad.Value // [numStrategies][hidden]
	riskIn            *linearLayer
	riskOut           *linearLayer

	combined1       *linearLayer
	combined2       *linearLayer
	weightGenerator *linearLayer

	parameters []*ad.Value
}

// New constructs an allocation model with randomly initialized parameters.
func New(cfg Config) *AllocationModel {
	if cfg.FeatureDim == 0 {
		cfg.FeatureDim = 4
	}
	if cfg.NumStrategies == 0 {
		cfg.NumStrategies = 3
	}
	if cfg.NumHeads == 0 {
		cfg.NumHeads = 4
	}
	if cfg.Dropout == 0 {
		cfg.Dropout = 0.2
	} else if cfg.Dropout < 0 {
		cfg.Dropout = 0
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	h := cfg.HiddenDim
	m := &AllocationModel{
		cfg:               cfg,
		rng:               rng,
		returnEncoder:     newAssetEncoder(1, h, rng),
		featureEncoder:    newAssetEncoder(cfg.FeatureDim, h, rng),
		assetCombiner:     newLinear(h*2, h, rng),
		crossAsset:        newAttentionBlock(h, cfg.NumHeads, rng),
		strategyEmbedding: ad.Matrix(cfg.NumStrategies, h, 0.02, rng),
		riskIn:            newLinear(1, h/2, rng),
		riskOut:           newLinear(h/2, h, rng),
		combined1:         newLinear(h*3, h*2, rng),
		combined2:         newLinear(h*2, h, rng),
		weightGenerator:   newLinear(h, cfg.NumAssets, rng),
	}

	m.parameters = m.collectParams()
	return m
}

// Cfg returns the architecture configuration.
func (m *AllocationModel) Cfg() Config {
	return m.cfg
}

// Params returns all learnable parameters in a stable order.
func (m *AllocationModel) Params() []*ad.Value {
	return m.parameters
}

func (m *AllocationModel) collectParams() []*ad.Value {
	var ps []*ad.Value
	ps = append(ps, m.returnEncoder.params()...)
	ps = append(ps, m.featureEncoder.params()...)
	ps = append(ps, m.assetCombiner.params()...)
	ps = append(ps, m.crossAsset.params()...)
	for _, row := range m.strategyEmbedding {
		ps = append(ps, row...)
	}
	ps = append(ps, m.riskIn.params()...)
	ps = append(ps, m.riskOut.params()...)
	ps = append(ps, m.combined1.params()...)
	ps = append(ps, m.combined2.params()...)
	ps = append(ps, m.weightGenerator.params()...)
	return ps
}

// Forward runs the model on one example and returns the predicted weight
// distribution over the full universe as graph nodes, so a caller can
// build a loss on top of them. Inactive positions are numerically zero.
//
// returns is window×numAssets, feats is window×numAssets×featureDim.
func (m *AllocationModel) Forward(returns [][]float64, feats [][][]float64, mask []float64, strategyOneHot []float64, riskTolerance float64, train bool) []*ad.Value {
	n := m.cfg.NumAssets
	T := m.cfg.WindowSize

	// Shared-parameter encoding of every universe asset.
	assetEmbeddings := make([][]*ad.Value, n)
	for a := 0; a < n; a++ {
		retSeq := make([][]*ad.Value, T)
		featSeq := make([][]*ad.Value, T)
		for t := 0; t < T; t++ {
			retSeq[t] = []*ad.Value{ad.V(returns[t][a])}
			row := make([]*ad.Value, m.cfg.FeatureDim)
			for f := 0; f < m.cfg.FeatureDim; f++ {
				row[f] = ad.V(feats[t][a][f])
			}
			featSeq[t] = row
		}

		combined := ad.Concat(m.returnEncoder.encode(retSeq), m.featureEncoder.encode(featSeq))
		assetEmbeddings[a] = m.assetCombiner.forward(combined)
	}

	assetEmbeddings = m.crossAsset.forward(assetEmbeddings)

	// Context: strategy lookup selected by the one-hot argmax, risk MLP.
	strategyIdx := argmax(strategyOneHot)
	stratEmb := m.strategyEmbedding[strategyIdx]

	risk := m.riskIn.forward([]*ad.Value{ad.V(riskTolerance)})
	for i := range risk {
		risk[i] = ad.GELU(risk[i])
	}
	riskEmb := m.riskOut.forward(risk)

	context := ad.Concat(stratEmb, riskEmb)

	// Masked mean pooling over active assets only.
	maskSum := 0.0
	for _, v := range mask {
		maskSum += v
	}
	denom := ad.V(1.0 / (maskSum + 1e-10))

	pooled := make([]*ad.Value, m.cfg.HiddenDim)
	for d := 0; d < m.cfg.HiddenDim; d++ {
		terms := make([]*ad.Value, n)
		for a := 0; a < n; a++ {
			terms[a] = ad.Mul(assetEmbeddings[a][d], ad.V(mask[a]))
		}
		pooled[d] = ad.Mul(ad.Sum(terms), denom)
	}

	hidden := m.combined1.forward(ad.Concat(pooled, context))
	for i := range hidden {
		hidden[i] = ad.GELU(hidden[i])
	}
	hidden = dropout(hidden, m.cfg.Dropout, train, m.rng)
	hidden = m.combined2.forward(hidden)
	for i := range hidden {
		hidden[i] = ad.GELU(hidden[i])
	}

	logits := m.weightGenerator.forward(hidden)

	// Masked softmax: inactive logits driven to a large negative value so
	// their probability rounds to zero while active outputs form a valid
	// distribution over the active subset.
	masked := make([]*ad.Value, n)
	for i := 0; i < n; i++ {
		masked[i] = ad.Sub(ad.Mul(logits[i], ad.V(mask[i])), ad.V(maskedLogitPenalty*(1-mask[i])))
	}
	return ad.Softmax(masked)
}

// Predict runs an evaluation-mode forward pass and returns plain weights.
func (m *AllocationModel) Predict(returns [][]float64, feats [][][]float64, mask []float64, strategyOneHot []float64, riskTolerance float64) []float64 {
	probs := m.Forward(returns, feats, mask, strategyOneHot, riskTolerance, false)
	out := make([]float64, len(probs))
	for i, p := range probs {
		out[i] = p.Data
	}
	return out
}

// Snapshot copies the current parameter values.
func (m *AllocationModel) Snapshot() []float64 {
	snap := make([]float64, len(m.parameters))
	for i, p := range m.parameters {
		snap[i] = p.Data
	}
	return snap
}

// Restore loads parameter values from a snapshot taken on a model with the
// same configuration.
func (m *AllocationModel) Restore(snap []float64) {
	for i, p := range m.parameters {
		p.Data = snap[i]
	}
}

func argmax(xs []float64) int {
	best := 0
	for i, v := range xs {
		if v > xs[best] {
			best = i
		}
	}
	return best
}
