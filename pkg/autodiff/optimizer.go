package autodiff

import "math"

// Adam implements the Adam optimizer with bias correction.
type Adam struct {
	params []*Value
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
	m      []float64
	v      []float64
	step   int
}

// NewAdam creates an Adam optimizer over the given parameters.
func NewAdam(params []*Value, lr float64) *Adam {
	return &Adam{
		params: params,
		lr:     lr,
		beta1:  0.9,
		beta2:  0.999,
		eps:    1e-8,
		m:      make([]float64, len(params)),
		v:      make([]float64, len(params)),
	}
}

// ZeroGrad clears accumulated gradients on all parameters.
func (a *Adam) ZeroGrad() {
	for _, p := range a.params {
		p.Grad = 0
	}
}

// Step applies one Adam update using the current gradients.
func (a *Adam) Step() {
	a.step++
	bc1 := 1 - math.Pow(a.beta1, float64(a.step))
	bc2 := 1 - math.Pow(a.beta2, float64(a.step))

	for i, p := range a.params {
		a.m[i] = a.beta1*a.m[i] + (1-a.beta1)*p.Grad
		a.v[i] = a.beta2*a.v[i] + (1-a.beta2)*p.Grad*p.Grad
		mHat := a.m[i] / bc1
		vHat := a.v[i] / bc2
		p.Data -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
	}
}
