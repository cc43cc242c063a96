package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ashwinth04/FinHub/internal/domain"
	"github.com/Ashwinth04/FinHub/internal/modules/allocation"
)

// RetrainJob refits the allocation model on the latest history. Scheduled
// nightly so the model tracks the market without manual retraining.
type RetrainJob struct {
	service *allocation.Service
	timeout time.Duration
	log     zerolog.Logger
}

// NewRetrainJob creates a new retrain job.
func NewRetrainJob(service *allocation.Service, timeout time.Duration, log zerolog.Logger) *RetrainJob {
	return &RetrainJob{
		service: service,
		timeout: timeout,
		log:     log.With().Str("job", "retrain").Logger(),
	}
}

// Name returns the job name
func (j *RetrainJob) Name() string {
	return "retrain"
}

// Run executes a full training cycle with the configured defaults.
func (j *RetrainJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	err := j.service.TrainSync(ctx, allocation.TrainOptions{})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrTrainingInProgress):
		j.log.Info().Msg("Training already running, skipping scheduled retrain")
		return nil
	case errors.Is(err, domain.ErrInsufficientAssets):
		j.log.Info().Msg("Universe not configured yet, skipping scheduled retrain")
		return nil
	default:
		return err
	}
}
