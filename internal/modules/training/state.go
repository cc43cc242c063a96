package training

import (
	"github.com/Ashwinth04/FinHub/internal/modules/features"
	"github.com/Ashwinth04/FinHub/internal/modules/model"
)

// ModelState is everything the inference path needs, frozen at the moment
// a training run completes: the trained model, the fitted scaler, the
// universe the indices refer to, and the most recent aligned window to
// serve predictions from.
type ModelState struct {
	Model      *model.AllocationModel
	Scaler     *features.Scaler
	Universe   []string
	WindowSize int

	// LatestReturns is window×N, LatestFeatures window×N×F: the most
	// recent aligned (and normalized) window at training time.
	LatestReturns  [][]float64
	LatestFeatures [][][]float64

	// Version increments on every successful training run.
	Version int
}

// IndexOf returns the canonical universe position of a ticker, or -1.
func (s *ModelState) IndexOf(ticker string) int {
	for i, t := range s.Universe {
		if t == ticker {
			return i
		}
	}
	return -1
}
