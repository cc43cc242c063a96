// Package autodiff implements scalar reverse-mode automatic differentiation.
// Computations build a graph of Value nodes; Backward accumulates gradients
// into every node reachable from the output.
package autodiff

import (
	"math"
	"math/rand"
)

// Value is a node in the computation graph.
type Value struct {
	Data       float64
	Grad       float64
	Children   []*Value
	LocalGrads []float64
}

// V wraps a constant float64 into a leaf node.
func V(x float64) *Value {
	return &Value{Data: x}
}

// Add returns a + b.
func Add(a, b *Value) *Value {
	return &Value{Data: a.Data + b.Data, Children: []*Value{a, b}, LocalGrads: []float64{1, 1}}
}

// Sub returns a - b.
func Sub(a, b *Value) *Value {
	return Add(a, Neg(b))
}

// Mul returns a * b.
func Mul(a, b *Value) *Value {
	return &Value{Data: a.Data * b.Data, Children: []*Value{a, b}, LocalGrads: []float64{b.Data, a.Data}}
}

// Pow returns a^p for a constant exponent.
func Pow(a *Value, p float64) *Value {
	return &Value{Data: math.Pow(a.Data, p), Children: []*Value{a}, LocalGrads: []float64{p * math.Pow(a.Data, p-1)}}
}

// Div returns a / b.
func Div(a, b *Value) *Value {
	return Mul(a, Pow(b, -1))
}

// Neg returns -a.
func Neg(a *Value) *Value {
	return Mul(a, V(-1))
}

// Log returns the natural logarithm of a.
func Log(a *Value) *Value {
	return &Value{Data: math.Log(a.Data), Children: []*Value{a}, LocalGrads: []float64{1 / a.Data}}
}

// Exp returns e^a.
func Exp(a *Value) *Value {
	ed := math.Exp(a.Data)
	return &Value{Data: ed, Children: []*Value{a}, LocalGrads: []float64{ed}}
}

// Tanh returns tanh(a).
func Tanh(a *Value) *Value {
	t := math.Tanh(a.Data)
	return &Value{Data: t, Children: []*Value{a}, LocalGrads: []float64{1 - t*t}}
}

// Sigmoid returns 1 / (1 + e^-a).
func Sigmoid(a *Value) *Value {
	s := 1 / (1 + math.Exp(-a.Data))
	return &Value{Data: s, Children: []*Value{a}, LocalGrads: []float64{s * (1 - s)}}
}

// ReLU returns max(a, 0).
func ReLU(a *Value) *Value {
	if a.Data > 0 {
		return &Value{Data: a.Data, Children: []*Value{a}, LocalGrads: []float64{1}}
	}
	return &Value{Data: 0, Children: []*Value{a}, LocalGrads: []float64{0}}
}

// GELU returns the tanh approximation of the Gaussian error linear unit.
// Built from primitive ops so the gradient follows from the graph.
func GELU(a *Value) *Value {
	// 0.5 * x * (1 + tanh(sqrt(2/pi) * (x + 0.044715 * x^3)))
	inner := Add(a, Mul(V(0.044715), Pow(a, 3)))
	return Mul(Mul(V(0.5), a), Add(V(1), Tanh(Mul(V(math.Sqrt(2/math.Pi)), inner))))
}

// Dot returns the inner product of two equal-length vectors as a single
// n-ary node. This keeps graphs for wide layers shallow.
func Dot(xs, ys []*Value) *Value {
	children := make([]*Value, 0, 2*len(xs))
	grads := make([]float64, 0, 2*len(xs))
	total := 0.0
	for i := range xs {
		total += xs[i].Data * ys[i].Data
		children = append(children, xs[i], ys[i])
		grads = append(grads, ys[i].Data, xs[i].Data)
	}
	return &Value{Data: total, Children: children, LocalGrads: grads}
}

// Sum returns the sum of a vector as a single n-ary node.
func Sum(xs []*Value) *Value {
	children := make([]*Value, len(xs))
	grads := make([]float64, len(xs))
	total := 0.0
	for i, x := range xs {
		total += x.Data
		children[i] = x
		grads[i] = 1
	}
	return &Value{Data: total, Children: children, LocalGrads: grads}
}

// Mean returns the arithmetic mean of a vector.
func Mean(xs []*Value) *Value {
	return Mul(Sum(xs), V(1/float64(len(xs))))
}

// Max returns the element with the largest data value.
func Max(xs []*Value) *Value {
	best := xs[0]
	for _, x := range xs[1:] {
		if x.Data > best.Data {
			best = x
		}
	}
	return best
}

// Backward runs reverse-mode differentiation from out, accumulating
// gradients into every reachable node. Grad fields are not reset here;
// callers zero parameter gradients between steps.
func Backward(out *Value) {
	var topo []*Value
	visited := map[*Value]bool{}

	// Iterative DFS; graphs for long windows overflow the stack otherwise.
	type frame struct {
		node *Value
		next int
	}
	stack := []frame{{node: out}}
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if f.next == 0 {
			if visited[f.node] {
				stack = stack[:len(stack)-1]
				continue
			}
			visited[f.node] = true
		}
		if f.next < len(f.node.Children) {
			child := f.node.Children[f.next]
			f.next++
			if !visited[child] {
				stack = append(stack, frame{node: child})
			}
			continue
		}
		topo = append(topo, f.node)
		stack = stack[:len(stack)-1]
	}

	out.Grad = 1
	for i := len(topo) - 1; i >= 0; i-- {
		v := topo[i]
		for j, ch := range v.Children {
			ch.Grad += v.LocalGrads[j] * v.Grad
		}
	}
}

// Softmax returns the softmax of the logits, shifted by the max for
// numerical stability.
func Softmax(logits []*Value) []*Value {
	maxVal := logits[0].Data
	for _, l := range logits[1:] {
		if l.Data > maxVal {
			maxVal = l.Data
		}
	}
	exps := make([]*Value, len(logits))
	for i, l := range logits {
		exps[i] = Exp(Sub(l, V(maxVal)))
	}
	total := Sum(exps)
	probs := make([]*Value, len(logits))
	for i := range exps {
		probs[i] = Div(exps[i], total)
	}
	return probs
}

// Matrix allocates a rows×cols parameter matrix initialized from a normal
// distribution with the given standard deviation.
func Matrix(rows, cols int, std float64, rng *rand.Rand) [][]*Value {
	m := make([][]*Value, rows)
	for r := range m {
		row := make([]*Value, cols)
		for c := range row {
			row[c] = V(rng.NormFloat64() * std)
		}
		m[r] = row
	}
	return m
}

// Vector allocates a parameter vector initialized to a constant.
func Vector(n int, fill float64) []*Value {
	v := make([]*Value, n)
	for i := range v {
		v[i] = V(fill)
	}
	return v
}

// Linear applies y = Wx + b. The bias may be nil.
func Linear(x []*Value, w [][]*Value, b []*Value) []*Value {
	out := make([]*Value, len(w))
	for o, row := range w {
		s := Dot(row, x)
		if b != nil {
			s = Add(s, b[o])
		}
		out[o] = s
	}
	return out
}

// Concat joins vectors into one.
func Concat(vs ...[]*Value) []*Value {
	var out []*Value
	for _, v := range vs {
		out = append(out, v...)
	}
	return out
}

// LayerNorm normalizes x to zero mean and unit variance, then applies the
// learned gain and bias.
func LayerNorm(x []*Value, gain, bias []*Value) []*Value {
	mean := Mean(x)
	diffs := make([]*Value, len(x))
	sq := make([]*Value, len(x))
	for i, xi := range x {
		diffs[i] = Sub(xi, mean)
		sq[i] = Mul(diffs[i], diffs[i])
	}
	variance := Mean(sq)
	invStd := Pow(Add(variance, V(1e-5)), -0.5)

	out := make([]*Value, len(x))
	for i := range x {
		out[i] = Add(Mul(Mul(diffs[i], invStd), gain[i]), bias[i])
	}
	return out
}
