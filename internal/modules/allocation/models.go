package allocation

import (
	"github.com/Ashwinth04/FinHub/internal/modules/features"
	"github.com/Ashwinth04/FinHub/internal/modules/training"
)

// UniverseRequest sets the ordered ticker universe.
type UniverseRequest struct {
	Tickers []string `json:"tickers"`
}

// TrainRequest overrides the configured training defaults. Zero values
// fall back to configuration.
type TrainRequest struct {
	Epochs       int `json:"epochs,omitempty"`
	Patience     int `json:"patience,omitempty"`
	TrainSamples int `json:"train_samples,omitempty"`
	ValSamples   int `json:"val_samples,omitempty"`
}

// PredictRequest asks for an allocation over a subset of the universe.
type PredictRequest struct {
	Tickers       []string `json:"tickers"`
	Strategy      string   `json:"strategy"`
	RiskTolerance int      `json:"risk_tolerance"`
}

// TrainOptions are the resolved knobs for one training run.
type TrainOptions struct {
	Epochs       int
	Patience     int
	TrainSamples int
	ValSamples   int
}

// PreparedData is the output of the data pipeline: aligned and normalized
// series for every ticker that survived, plus the tickers that did not.
type PreparedData struct {
	Aligned *features.AlignedData
	Scaler  *features.Scaler
	Failed  []string
}

// TrainStatus combines the model slot state with the most recent run's
// audit record.
type TrainStatus struct {
	training.SlotInfo
	LastRun *TrainingRun `json:"last_run,omitempty"`
}

// TrainingRun is one row of the training audit log.
type TrainingRun struct {
	ID          int64    `json:"id"`
	StartedAt   string   `json:"started_at"`
	FinishedAt  *string  `json:"finished_at,omitempty"`
	Status      string   `json:"status"`
	EpochsRun   int      `json:"epochs_run"`
	BestValLoss *float64 `json:"best_val_loss,omitempty"`
	Error       string   `json:"error,omitempty"`
}
