package formulas

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// AnnualizedVolatility calculates annualized volatility from daily returns
// Formula: Std Dev of Daily Returns × sqrt(252 trading days)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}
	return StdDev(dailyReturns) * math.Sqrt(252)
}

// CalculateReturns converts prices to simple percentage returns
// Returns[i] = (Price[i] - Price[i-1]) / Price[i-1]
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// RollingStdDev computes the trailing sample standard deviation of data
// over the given window. Output[i] is NaN until a full window is available,
// matching a pandas rolling(window).std().
func RollingStdDev(data []float64, window int) []float64 {
	out := make([]float64, len(data))
	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = StdDev(data[i-window+1 : i+1])
	}
	return out
}

// CovarianceMatrix computes the sample covariance matrix of the columns of
// the observations matrix (rows are observations, columns are assets).
func CovarianceMatrix(observations [][]float64) *mat.SymDense {
	rows := len(observations)
	cols := len(observations[0])

	data := make([]float64, 0, rows*cols)
	for _, row := range observations {
		data = append(data, row...)
	}

	obs := mat.NewDense(rows, cols, data)
	cov := mat.NewSymDense(cols, nil)
	stat.CovarianceMatrix(cov, obs, nil)
	return cov
}

// ColumnMeans returns the per-column mean of the observations matrix.
func ColumnMeans(observations [][]float64) []float64 {
	cols := len(observations[0])
	means := make([]float64, cols)
	for _, row := range observations {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(len(observations))
	}
	return means
}
