// Package training runs the epoch loop over window samples and owns the
// single trained-model slot.
package training

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/Ashwinth04/FinHub/internal/domain"
	"github.com/Ashwinth04/FinHub/internal/modules/model"
	ad "github.com/Ashwinth04/FinHub/pkg/autodiff"
)

const concentrationCoefficient = 0.01

// Controller trains an allocation model: batched gradient steps, per-epoch
// validation, early stopping, and best-checkpoint selection.
type Controller struct {
	learningRate float64
	batchSize    int
	log          zerolog.Logger
}

// History records per-epoch losses.
type History struct {
	TrainLoss []float64 `json:"train_loss"`
	ValLoss   []float64 `json:"val_loss"`
}

// NewController creates a training controller.
func NewController(learningRate float64, batchSize int, log zerolog.Logger) *Controller {
	return &Controller{
		learningRate: learningRate,
		batchSize:    batchSize,
		log:          log.With().Str("component", "training").Logger(),
	}
}

// Train runs up to epochs passes over the training samples. When a
// validation set is supplied, the run stops early after patience epochs
// without improvement and the model is restored to the best-validation
// checkpoint before returning; the last-epoch weights are never kept if
// an earlier checkpoint was better.
func (c *Controller) Train(ctx context.Context, m *model.AllocationModel, trainSamples, valSamples []domain.WindowSample, epochs, patience int) (History, error) {
	history := History{}
	if len(trainSamples) == 0 {
		return history, fmt.Errorf("no training samples supplied")
	}

	opt := ad.NewAdam(m.Params(), c.learningRate)

	bestValLoss := math.Inf(1)
	var bestSnapshot []float64
	patienceCounter := 0

	for epoch := 0; epoch < epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return history, err
		}

		trainLoss := 0.0
		numBatches := 0
		for start := 0; start < len(trainSamples); start += c.batchSize {
			end := start + c.batchSize
			if end > len(trainSamples) {
				end = len(trainSamples)
			}

			opt.ZeroGrad()
			loss := c.batchLoss(m, trainSamples[start:end], true)
			ad.Backward(loss)
			opt.Step()

			trainLoss += loss.Data
			numBatches++
		}
		trainLoss /= float64(numBatches)
		history.TrainLoss = append(history.TrainLoss, trainLoss)

		if len(valSamples) == 0 {
			c.log.Info().
				Int("epoch", epoch+1).
				Float64("train_loss", trainLoss).
				Msg("Epoch complete")
			continue
		}

		valLoss := c.Evaluate(m, valSamples)
		history.ValLoss = append(history.ValLoss, valLoss)

		c.log.Info().
			Int("epoch", epoch+1).
			Float64("train_loss", trainLoss).
			Float64("val_loss", valLoss).
			Msg("Epoch complete")

		if valLoss < bestValLoss {
			bestValLoss = valLoss
			bestSnapshot = m.Snapshot()
			patienceCounter = 0
		} else {
			patienceCounter++
			if patienceCounter >= patience {
				c.log.Info().Int("epoch", epoch+1).Msg("Early stopping")
				break
			}
		}
	}

	if bestSnapshot != nil {
		m.Restore(bestSnapshot)
	}

	return history, nil
}

// Evaluate computes the average loss over samples without updating
// parameters.
func (c *Controller) Evaluate(m *model.AllocationModel, samples []domain.WindowSample) float64 {
	if len(samples) == 0 {
		return 0
	}

	total := 0.0
	numBatches := 0
	for start := 0; start < len(samples); start += c.batchSize {
		end := start + c.batchSize
		if end > len(samples) {
			end = len(samples)
		}
		total += c.batchLoss(m, samples[start:end], false).Data
		numBatches++
	}
	return total / float64(numBatches)
}

// batchLoss is the masked mean-squared error between predicted and target
// weights plus a small concentration penalty on the squared predicted
// weights, averaged over the batch.
func (c *Controller) batchLoss(m *model.AllocationModel, batch []domain.WindowSample, train bool) *ad.Value {
	mseTerms := make([]*ad.Value, 0, len(batch))
	concTerms := make([]*ad.Value, 0, len(batch))

	for _, sample := range batch {
		pred := m.Forward(sample.Returns, sample.Features, sample.Mask, sample.Strategy, sample.RiskTolerance, train)

		sq := make([]*ad.Value, len(pred))
		sqPred := make([]*ad.Value, len(pred))
		for i, p := range pred {
			diff := ad.Sub(p, ad.V(sample.TargetWeights[i]))
			// Inactive positions never contribute error.
			sq[i] = ad.Mul(ad.Mul(diff, diff), ad.V(sample.Mask[i]))
			sqPred[i] = ad.Mul(p, p)
		}
		mseTerms = append(mseTerms, ad.Mean(sq))
		concTerms = append(concTerms, ad.Sum(sqPred))
	}

	return ad.Add(ad.Mean(mseTerms), ad.Mul(ad.V(concentrationCoefficient), ad.Mean(concTerms)))
}
