package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the allocation engine. Callers test them with
// errors.Is after unwrapping.
var (
	// ErrDataUnavailable: no usable price history for any universe asset.
	ErrDataUnavailable = errors.New("no usable price history available")

	// ErrInsufficientHistory: aligned date range shorter than the window.
	ErrInsufficientHistory = errors.New("aligned history shorter than window size")

	// ErrInsufficientAssets: fewer than 2 valid assets for optimization.
	ErrInsufficientAssets = errors.New("need at least 2 valid assets")

	// ErrModelNotTrained: inference requested before a training run completed.
	ErrModelNotTrained = errors.New("model not trained")

	// ErrUnknownTicker: a requested ticker is outside the universe.
	ErrUnknownTicker = errors.New("ticker not in universe")

	// ErrTrainingInProgress: a training run is already in flight.
	ErrTrainingInProgress = errors.New("training already in progress")
)

// PartialDataError reports tickers whose price history could not be
// fetched or processed while the rest of the pipeline succeeded.
type PartialDataError struct {
	Failed []string
}

func (e *PartialDataError) Error() string {
	return fmt.Sprintf("failed to load history for: %s", strings.Join(e.Failed, ", "))
}
