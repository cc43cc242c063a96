// Package allocation orchestrates the learned allocation engine: universe
// management, the data preparation pipeline, training runs over the model
// slot, and the HTTP surface tying them together.
package allocation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ashwinth04/FinHub/internal/config"
	"github.com/Ashwinth04/FinHub/internal/database"
	"github.com/Ashwinth04/FinHub/internal/domain"
	"github.com/Ashwinth04/FinHub/internal/modules/features"
	"github.com/Ashwinth04/FinHub/internal/modules/model"
	"github.com/Ashwinth04/FinHub/internal/modules/sampling"
	"github.com/Ashwinth04/FinHub/internal/modules/targets"
	"github.com/Ashwinth04/FinHub/internal/modules/training"
	"github.com/Ashwinth04/FinHub/internal/modules/universe"
)

// Service wires the data pipeline, sampler, and training controller
// around the shared model slot.
type Service struct {
	cfg          *config.Config
	db           *database.DB
	universeRepo *universe.Repository
	prices       universe.PriceSource
	processor    *features.Processor
	synth        *targets.Synthesizer
	controller   *training.Controller
	slot         *training.ModelSlot
	log          zerolog.Logger
}

// NewService creates the allocation service.
func NewService(
	cfg *config.Config,
	db *database.DB,
	universeRepo *universe.Repository,
	prices universe.PriceSource,
	slot *training.ModelSlot,
	log zerolog.Logger,
) *Service {
	return &Service{
		cfg:          cfg,
		db:           db,
		universeRepo: universeRepo,
		prices:       prices,
		processor:    features.NewProcessor(log),
		synth:        targets.NewSynthesizer(log),
		controller:   training.NewController(cfg.LearningRate, cfg.BatchSize, log),
		slot:         slot,
		log:          log.With().Str("service", "allocation").Logger(),
	}
}

// SetUniverse replaces the stored universe. Any trained model refers to
// the old canonical ordering, so the slot is invalidated first; the call
// is refused while a training run is in flight.
func (s *Service) SetUniverse(tickers []string) ([]string, error) {
	if err := s.slot.Invalidate(); err != nil {
		return nil, err
	}
	return s.universeRepo.Set(tickers)
}

// GetUniverse returns the stored universe in canonical order.
func (s *Service) GetUniverse() ([]string, error) {
	return s.universeRepo.Get()
}

// Status reports the slot state together with the latest audit row.
func (s *Service) Status() TrainStatus {
	status := TrainStatus{SlotInfo: s.slot.Status()}
	if run, err := s.latestRun(); err == nil {
		status.LastRun = run
	}
	return status
}

// PrepareData fetches and processes price history for the given tickers.
// Tickers whose history cannot be loaded or is too short are collected
// into Failed and the pipeline continues with the rest; it fails outright
// only when fewer than two tickers survive.
func (s *Service) PrepareData(tickers []string) (*PreparedData, error) {
	limit := s.cfg.LookbackYears * 252

	var valid []string
	var failed []string
	returns := make(map[string]features.ReturnSeries)
	feats := make(map[string]features.FeatureFrame)

	for _, ticker := range tickers {
		prices, err := s.prices.GetDailyPrices(ticker, limit)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", ticker).Msg("Failed to load price history")
			failed = append(failed, ticker)
			continue
		}
		// The rolling features need a full warmup window before the
		// first usable row.
		if len(prices) < features.RollingWindow+2 {
			s.log.Warn().Str("symbol", ticker).Int("rows", len(prices)).Msg("Price history too short")
			failed = append(failed, ticker)
			continue
		}

		returns[ticker] = s.processor.CalculateReturns(prices)
		feats[ticker] = s.processor.CalculateFeatures(prices)
		valid = append(valid, ticker)
	}

	if len(valid) == 0 {
		return nil, domain.ErrDataUnavailable
	}
	if len(valid) < 2 {
		return nil, fmt.Errorf("%w: only %s has usable history", domain.ErrInsufficientAssets, valid[0])
	}

	aligned, err := s.processor.Align(valid, returns, feats)
	if err != nil {
		return nil, err
	}
	scaler := s.processor.Normalize(aligned)

	if len(failed) > 0 {
		s.log.Warn().Strs("failed", failed).Msg("Continuing without some tickers")
	}

	return &PreparedData{Aligned: aligned, Scaler: scaler, Failed: failed}, nil
}

// StartTraining claims the model slot and launches a training run in the
// background. It returns ErrTrainingInProgress when a run is already in
// flight; any other failure before launch releases the slot.
func (s *Service) StartTraining(opts TrainOptions) error {
	s.applyDefaults(&opts)

	if err := s.slot.BeginTraining(); err != nil {
		return err
	}

	runID, err := s.insertRun()
	if err != nil {
		s.slot.CompleteFailure(err)
		return err
	}

	go func() {
		if err := s.runTraining(context.Background(), opts, runID); err != nil {
			s.slot.CompleteFailure(err)
			s.finishRun(runID, "failed", 0, nil, err)
		}
	}()

	return nil
}

// TrainSync runs a full training cycle in the calling goroutine. The
// scheduler uses it so a retrain occupies its job slot until done.
func (s *Service) TrainSync(ctx context.Context, opts TrainOptions) error {
	s.applyDefaults(&opts)

	if err := s.slot.BeginTraining(); err != nil {
		return err
	}

	runID, err := s.insertRun()
	if err != nil {
		s.slot.CompleteFailure(err)
		return err
	}

	if err := s.runTraining(ctx, opts, runID); err != nil {
		s.slot.CompleteFailure(err)
		s.finishRun(runID, "failed", 0, nil, err)
		return err
	}
	return nil
}

// runTraining executes the pipeline end to end: prepare data, sample
// windows, fit the model, install the new state, and persist a
// checkpoint. The caller has already claimed the slot.
func (s *Service) runTraining(ctx context.Context, opts TrainOptions, runID int64) error {
	started := time.Now()

	tickers, err := s.universeRepo.Get()
	if err != nil {
		return err
	}
	if len(tickers) < 2 {
		return fmt.Errorf("%w: universe has %d tickers", domain.ErrInsufficientAssets, len(tickers))
	}

	prepared, err := s.PrepareData(tickers)
	if err != nil {
		return err
	}
	aligned := prepared.Aligned

	seed := time.Now().UnixNano()
	trainSampler, err := sampling.NewSampler(aligned, s.cfg.WindowSize, s.synth, seed, s.log)
	if err != nil {
		return err
	}
	valSampler, err := sampling.NewSampler(aligned, s.cfg.WindowSize, s.synth, seed+1, s.log)
	if err != nil {
		return err
	}

	trainSamples := trainSampler.Sample(domain.SampleModeTraining, opts.TrainSamples)
	valSamples := valSampler.Sample(domain.SampleModeTraining, opts.ValSamples)

	m := model.New(model.Config{
		NumAssets:  len(aligned.Tickers),
		WindowSize: s.cfg.WindowSize,
		HiddenDim:  s.cfg.HiddenDim,
		Seed:       seed,
	})

	s.log.Info().
		Strs("universe", aligned.Tickers).
		Int("train_samples", len(trainSamples)).
		Int("val_samples", len(valSamples)).
		Int("epochs", opts.Epochs).
		Msg("Training run starting")

	history, err := s.controller.Train(ctx, m, trainSamples, valSamples, opts.Epochs, opts.Patience)
	if err != nil {
		return err
	}

	latestReturns, latestFeatures := s.latestWindow(aligned)
	state := &training.ModelState{
		Model:          m,
		Scaler:         prepared.Scaler,
		Universe:       aligned.Tickers,
		WindowSize:     s.cfg.WindowSize,
		LatestReturns:  latestReturns,
		LatestFeatures: latestFeatures,
	}
	s.slot.CompleteSuccess(state)

	if err := training.NewCheckpoint(state).Save(s.cfg.CheckpointPath); err != nil {
		s.log.Error().Err(err).Msg("Failed to persist checkpoint")
	}

	var best *float64
	if n := len(history.ValLoss); n > 0 {
		v := history.ValLoss[0]
		for _, l := range history.ValLoss[1:] {
			if l < v {
				v = l
			}
		}
		best = &v
	}
	s.finishRun(runID, "succeeded", len(history.TrainLoss), best, nil)

	s.log.Info().
		Dur("elapsed", time.Since(started)).
		Int("epochs_run", len(history.TrainLoss)).
		Msg("Training run finished")
	return nil
}

// RestoreFromCheckpoint seeds the slot from a persisted checkpoint when
// one exists and still matches the stored universe and window size. A
// missing or stale checkpoint is not an error; it just means the first
// prediction must wait for a training run.
func (s *Service) RestoreFromCheckpoint() error {
	ckpt, err := training.LoadCheckpoint(s.cfg.CheckpointPath)
	if err != nil {
		return err
	}

	tickers, err := s.universeRepo.Get()
	if err != nil {
		return err
	}
	if !ckpt.Matches(tickers, s.cfg.WindowSize) {
		return fmt.Errorf("checkpoint does not match current universe or window size")
	}

	state, err := ckpt.ToState(time.Now().UnixNano())
	if err != nil {
		return err
	}
	s.slot.Install(state)
	s.log.Info().Int("version", state.Version).Msg("Model restored from checkpoint")
	return nil
}

// latestWindow assembles the most recent aligned window in canonical
// universe order, the shape inference consumes.
func (s *Service) latestWindow(aligned *features.AlignedData) ([][]float64, [][][]float64) {
	w := s.cfg.WindowSize
	start := len(aligned.Dates) - w

	rets := make([][]float64, w)
	feats := make([][][]float64, w)
	for t := 0; t < w; t++ {
		rets[t] = make([]float64, len(aligned.Tickers))
		feats[t] = make([][]float64, len(aligned.Tickers))
		for j, ticker := range aligned.Tickers {
			rets[t][j] = aligned.Returns[ticker][start+t]
			feats[t][j] = aligned.Features[ticker][start+t]
		}
	}
	return rets, feats
}

func (s *Service) applyDefaults(opts *TrainOptions) {
	if opts.Epochs <= 0 {
		opts.Epochs = s.cfg.Epochs
	}
	if opts.Patience <= 0 {
		opts.Patience = s.cfg.Patience
	}
	if opts.TrainSamples <= 0 {
		opts.TrainSamples = s.cfg.TrainSamples
	}
	if opts.ValSamples <= 0 {
		opts.ValSamples = s.cfg.ValSamples
	}
}

// Audit log helpers.

func (s *Service) insertRun() (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO training_runs (started_at, status) VALUES (?, ?)`,
		time.Now().UTC().Format(time.RFC3339), "running",
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record training run: %w", err)
	}
	return res.LastInsertId()
}

func (s *Service) finishRun(runID int64, status string, epochsRun int, bestValLoss *float64, runErr error) {
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	_, err := s.db.Exec(
		`UPDATE training_runs SET finished_at = ?, status = ?, epochs_run = ?, best_val_loss = ?, error = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), status, epochsRun, bestValLoss, errText, runID,
	)
	if err != nil {
		s.log.Error().Err(err).Int64("run_id", runID).Msg("Failed to update training run record")
	}
}

func (s *Service) latestRun() (*TrainingRun, error) {
	row := s.db.QueryRow(
		`SELECT id, started_at, finished_at, status, COALESCE(epochs_run, 0), best_val_loss, COALESCE(error, '')
		 FROM training_runs ORDER BY id DESC LIMIT 1`,
	)

	var run TrainingRun
	var finishedAt sql.NullString
	var bestValLoss sql.NullFloat64
	if err := row.Scan(&run.ID, &run.StartedAt, &finishedAt, &run.Status, &run.EpochsRun, &bestValLoss, &run.Error); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.String
	}
	if bestValLoss.Valid {
		run.BestValLoss = &bestValLoss.Float64
	}
	return &run, nil
}
