package features

import "math"

// Scaler is a feature-wise standardization (zero mean, unit variance)
// fitted on the combined rows of all assets. It is persisted with the model
// checkpoint: inference must apply the exact transform seen at training.
type Scaler struct {
	Mean []float64 `msgpack:"mean"`
	Std  []float64 `msgpack:"std"`
}

// FitScaler fits a scaler on the rows. NaNs are treated as 0 before
// fitting; a zero-variance column gets unit scale.
func FitScaler(rows [][]float64) *Scaler {
	s := &Scaler{
		Mean: make([]float64, FeatureDim),
		Std:  make([]float64, FeatureDim),
	}
	if len(rows) == 0 {
		for j := range s.Std {
			s.Std[j] = 1
		}
		return s
	}

	n := float64(len(rows))
	for _, row := range rows {
		for j := 0; j < FeatureDim; j++ {
			s.Mean[j] += nanToZero(row[j])
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= n
	}

	for _, row := range rows {
		for j := 0; j < FeatureDim; j++ {
			d := nanToZero(row[j]) - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / n)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}

	return s
}

// Transform standardizes the rows, returning a new slice.
func (s *Scaler) Transform(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled := make([]float64, FeatureDim)
		for j := 0; j < FeatureDim; j++ {
			scaled[j] = (nanToZero(row[j]) - s.Mean[j]) / s.Std[j]
		}
		out[i] = scaled
	}
	return out
}

func nanToZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
