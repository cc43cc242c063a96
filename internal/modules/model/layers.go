package model

import (
	"math"
	"math/rand"

	ad "github.com/Ashwinth04/FinHub/pkg/autodiff"
)

// conv1d is a same-padded 1-D convolution over a time series.
// Input and output are time-major: seq[t][channel].
type conv1d struct {
	weights [][][]*ad.Value // [out][in][kernel]
	bias    []*ad.Value
	kernel  int
}

func newConv1d(inCh, outCh, kernel int, rng *rand.Rand) *conv1d {
	std := 1.0 / math.Sqrt(float64(inCh*kernel))
	w := make([][][]*ad.Value, outCh)
	for o := range w {
		w[o] = make([][]*ad.Value, inCh)
		for i := range w[o] {
			row := make([]*ad.Value, kernel)
			for k := range row {
				row[k] = ad.V(rng.NormFloat64() * std)
			}
			w[o][i] = row
		}
	}
	return &conv1d{weights: w, bias: ad.Vector(outCh, 0), kernel: kernel}
}

func (c *conv1d) forward(seq [][]*ad.Value) [][]*ad.Value {
	T := len(seq)
	pad := c.kernel / 2
	out := make([][]*ad.Value, T)
	for t := 0; t < T; t++ {
		row := make([]*ad.Value, len(c.weights))
		for o := range c.weights {
			var xs, ws []*ad.Value
			for k := 0; k < c.kernel; k++ {
				src := t + k - pad
				if src < 0 || src >= T {
					continue // zero padding
				}
				for i := range c.weights[o] {
					xs = append(xs, seq[src][i])
					ws = append(ws, c.weights[o][i][k])
				}
			}
			row[o] = ad.Add(ad.Dot(ws, xs), c.bias[o])
		}
		out[t] = row
	}
	return out
}

func (c *conv1d) params() []*ad.Value {
	var ps []*ad.Value
	for _, byIn := range c.weights {
		for _, row := range byIn {
			ps = append(ps, row...)
		}
	}
	return append(ps, c.bias...)
}

// maxPool1d halves the time dimension, taking the per-channel max of each
// non-overlapping pair. A trailing odd step is dropped, as torch does.
func maxPool1d(seq [][]*ad.Value) [][]*ad.Value {
	T := len(seq) / 2
	out := make([][]*ad.Value, T)
	for t := 0; t < T; t++ {
		a, b := seq[2*t], seq[2*t+1]
		row := make([]*ad.Value, len(a))
		for ch := range a {
			row[ch] = ad.Max([]*ad.Value{a[ch], b[ch]})
		}
		out[t] = row
	}
	return out
}

func geluSeq(seq [][]*ad.Value) [][]*ad.Value {
	out := make([][]*ad.Value, len(seq))
	for t, row := range seq {
		o := make([]*ad.Value, len(row))
		for i, v := range row {
			o[i] = ad.GELU(v)
		}
		out[t] = o
	}
	return out
}

// lstmCell is a standard LSTM cell with input, forget, cell, and output
// gates.
type lstmCell struct {
	wx [4][][]*ad.Value // per gate: [hidden][input]
	wh [4][][]*ad.Value // per gate: [hidden][hidden]
	b  [4][]*ad.Value
	h  int
}

func newLSTMCell(inputDim, hiddenDim int, rng *rand.Rand) *lstmCell {
	c := &lstmCell{h: hiddenDim}
	stdX := 1.0 / math.Sqrt(float64(inputDim))
	stdH := 1.0 / math.Sqrt(float64(hiddenDim))
	for g := 0; g < 4; g++ {
		c.wx[g] = ad.Matrix(hiddenDim, inputDim, stdX, rng)
		c.wh[g] = ad.Matrix(hiddenDim, hiddenDim, stdH, rng)
		c.b[g] = ad.Vector(hiddenDim, 0)
	}
	return c
}

func (c *lstmCell) step(x, hPrev, cPrev []*ad.Value) (hNext, cNext []*ad.Value) {
	gate := func(g int, activate func(*ad.Value) *ad.Value) []*ad.Value {
		pre := ad.Linear(x, c.wx[g], c.b[g])
		rec := ad.Linear(hPrev, c.wh[g], nil)
		out := make([]*ad.Value, c.h)
		for i := 0; i < c.h; i++ {
			out[i] = activate(ad.Add(pre[i], rec[i]))
		}
		return out
	}

	i := gate(0, ad.Sigmoid)
	f := gate(1, ad.Sigmoid)
	g := gate(2, ad.Tanh)
	o := gate(3, ad.Sigmoid)

	cNext = make([]*ad.Value, c.h)
	hNext = make([]*ad.Value, c.h)
	for j := 0; j < c.h; j++ {
		cNext[j] = ad.Add(ad.Mul(f[j], cPrev[j]), ad.Mul(i[j], g[j]))
		hNext[j] = ad.Mul(o[j], ad.Tanh(cNext[j]))
	}
	return hNext, cNext
}

func (c *lstmCell) params() []*ad.Value {
	var ps []*ad.Value
	for g := 0; g < 4; g++ {
		for _, row := range c.wx[g] {
			ps = append(ps, row...)
		}
		for _, row := range c.wh[g] {
			ps = append(ps, row...)
		}
		ps = append(ps, c.b[g]...)
	}
	return ps
}

// biLSTM runs a forward and a backward cell over the sequence and returns
// the last-position output: the forward state after the full pass
// concatenated with the backward state at the final position.
type biLSTM struct {
	fwd *lstmCell
	bwd *lstmCell
}

func newBiLSTM(inputDim, hiddenDim int, rng *rand.Rand) *biLSTM {
	return &biLSTM{
		fwd: newLSTMCell(inputDim, hiddenDim, rng),
		bwd: newLSTMCell(inputDim, hiddenDim, rng),
	}
}

func (l *biLSTM) lastOutput(seq [][]*ad.Value) []*ad.Value {
	T := len(seq)
	h := ad.Vector(l.fwd.h, 0)
	c := ad.Vector(l.fwd.h, 0)
	for t := 0; t < T; t++ {
		h, c = l.fwd.step(seq[t], h, c)
	}
	hFwdLast := h

	// The backward direction's output at the last position is its first
	// step, having consumed only seq[T-1].
	hB := ad.Vector(l.bwd.h, 0)
	cB := ad.Vector(l.bwd.h, 0)
	hB, _ = l.bwd.step(seq[T-1], hB, cB)

	return ad.Concat(hFwdLast, hB)
}

func (l *biLSTM) params() []*ad.Value {
	return append(l.fwd.params(), l.bwd.params()...)
}

// linearLayer is a dense layer with bias.
type linearLayer struct {
	w [][]*ad.Value
	b []*ad.Value
}

func newLinear(inDim, outDim int, rng *rand.Rand) *linearLayer {
	std := 1.0 / math.Sqrt(float64(inDim))
	return &linearLayer{
		w: ad.Matrix(outDim, inDim, std, rng),
		b: ad.Vector(outDim, 0),
	}
}

func (l *linearLayer) forward(x []*ad.Value) []*ad.Value {
	return ad.Linear(x, l.w, l.b)
}

func (l *linearLayer) params() []*ad.Value {
	var ps []*ad.Value
	for _, row := range l.w {
		ps = append(ps, row...)
	}
	return append(ps, l.b...)
}

// layerNorm holds the learned gain and bias of a normalization.
type layerNorm struct {
	gain []*ad.Value
	bias []*ad.Value
}

func newLayerNorm(dim int) *layerNorm {
	return &layerNorm{gain: ad.Vector(dim, 1), bias: ad.Vector(dim, 0)}
}

func (n *layerNorm) forward(x []*ad.Value) []*ad.Value {
	return ad.LayerNorm(x, n.gain, n.bias)
}

func (n *layerNorm) params() []*ad.Value {
	return append(append([]*ad.Value{}, n.gain...), n.bias...)
}

// attentionBlock is multi-head self-attention over the asset sequence with
// residual connections and layer normalization, followed by a feed-forward
// expansion, as in a standard transformer encoder layer.
type attentionBlock struct {
	heads    int
	headDim  int
	wq, wk   *linearLayer
	wv, wo   *linearLayer
	norm1    *layerNorm
	norm2    *layerNorm
	ffnIn    *linearLayer
	ffnOut   *linearLayer
	hiddenSz int
}

func newAttentionBlock(hiddenDim, numHeads int, rng *rand.Rand) *attentionBlock {
	return &attentionBlock{
		heads:    numHeads,
		headDim:  hiddenDim / numHeads,
		wq:       newLinear(hiddenDim, hiddenDim, rng),
		wk:       newLinear(hiddenDim, hiddenDim, rng),
		wv:       newLinear(hiddenDim, hiddenDim, rng),
		wo:       newLinear(hiddenDim, hiddenDim, rng),
		norm1:    newLayerNorm(hiddenDim),
		norm2:    newLayerNorm(hiddenDim),
		ffnIn:    newLinear(hiddenDim, hiddenDim*4, rng),
		ffnOut:   newLinear(hiddenDim*4, hiddenDim, rng),
		hiddenSz: hiddenDim,
	}
}

// forward transforms the per-asset embeddings, letting every asset attend
// to every other asset.
func (a *attentionBlock) forward(xs [][]*ad.Value) [][]*ad.Value {
	n := len(xs)
	qs := make([][]*ad.Value, n)
	ks := make([][]*ad.Value, n)
	vs := make([][]*ad.Value, n)
	for i, x := range xs {
		qs[i] = a.wq.forward(x)
		ks[i] = a.wk.forward(x)
		vs[i] = a.wv.forward(x)
	}

	scale := ad.V(1.0 / math.Sqrt(float64(a.headDim)))
	attended := make([][]*ad.Value, n)
	for i := 0; i < n; i++ {
		heads := make([][]*ad.Value, 0, a.heads)
		for h := 0; h < a.heads; h++ {
			lo, hi := h*a.headDim, (h+1)*a.headDim

			scores := make([]*ad.Value, n)
			for j := 0; j < n; j++ {
				scores[j] = ad.Mul(ad.Dot(qs[i][lo:hi], ks[j][lo:hi]), scale)
			}
			probs := ad.Softmax(scores)

			head := make([]*ad.Value, a.headDim)
			for d := 0; d < a.headDim; d++ {
				terms := make([]*ad.Value, n)
				for j := 0; j < n; j++ {
					terms[j] = ad.Mul(probs[j], vs[j][lo+d])
				}
				head[d] = ad.Sum(terms)
			}
			heads = append(heads, head)
		}
		attended[i] = a.wo.forward(ad.Concat(heads...))
	}

	out := make([][]*ad.Value, n)
	for i := 0; i < n; i++ {
		// Residual + norm around the attention, then around the FFN.
		res := make([]*ad.Value, a.hiddenSz)
		for d := 0; d < a.hiddenSz; d++ {
			res[d] = ad.Add(xs[i][d], attended[i][d])
		}
		x := a.norm1.forward(res)

		ff := a.ffnIn.forward(x)
		for d := range ff {
			ff[d] = ad.GELU(ff[d])
		}
		ff = a.ffnOut.forward(ff)

		res2 := make([]*ad.Value, a.hiddenSz)
		for d := 0; d < a.hiddenSz; d++ {
			res2[d] = ad.Add(x[d], ff[d])
		}
		out[i] = a.norm2.forward(res2)
	}
	return out
}

func (a *attentionBlock) params() []*ad.Value {
	var ps []*ad.Value
	ps = append(ps, a.wq.params()...)
	ps = append(ps, a.wk.params()...)
	ps = append(ps, a.wv.params()...)
	ps = append(ps, a.wo.params()...)
	ps = append(ps, a.norm1.params()...)
	ps = append(ps, a.norm2.params()...)
	ps = append(ps, a.ffnIn.params()...)
	ps = append(ps, a.ffnOut.params()...)
	return ps
}

// dropout applies inverted dropout in training mode and is the identity in
// evaluation mode.
func dropout(xs []*ad.Value, p float64, train bool, rng *rand.Rand) []*ad.Value {
	if !train || p <= 0 {
		return xs
	}
	keep := 1 - p
	out := make([]*ad.Value, len(xs))
	for i, x := range xs {
		if rng.Float64() < keep {
			out[i] = ad.Mul(x, ad.V(1/keep))
		} else {
			out[i] = ad.Mul(x, ad.V(0))
		}
	}
	return out
}
