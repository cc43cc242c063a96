package training

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/Ashwinth04/FinHub/internal/domain"
)

// SlotStatus is the lifecycle of the single model slot.
type SlotStatus string

const (
	SlotIdle     SlotStatus = "idle"
	SlotTraining SlotStatus = "training"
	SlotReady    SlotStatus = "ready"
	SlotFailed   SlotStatus = "failed"
)

// ModelSlot owns the single trained-model resource. Exactly one training
// run may hold it at a time; readers see either the previous complete
// state or the new one, never a partial write. A failed run leaves the
// previous state (if any) untouched.
type ModelSlot struct {
	mu      sync.Mutex
	status  SlotStatus
	state   *ModelState
	version int
	lastErr string
	log     zerolog.Logger
}

// SlotInfo is a point-in-time snapshot of the slot for status reporting.
type SlotInfo struct {
	Status     SlotStatus `json:"status"`
	Version    int        `json:"version"`
	ModelReady bool       `json:"model_ready"`
	LastError  string     `json:"last_error,omitempty"`
}

// NewModelSlot creates an empty slot.
func NewModelSlot(log zerolog.Logger) *ModelSlot {
	return &ModelSlot{
		status: SlotIdle,
		log:    log.With().Str("component", "model_slot").Logger(),
	}
}

// BeginTraining transitions the slot into the training state. It fails
// with ErrTrainingInProgress when a run is already in flight.
func (s *ModelSlot) BeginTraining() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == SlotTraining {
		return domain.ErrTrainingInProgress
	}
	s.status = SlotTraining
	s.lastErr = ""
	s.log.Info().Int("version", s.version).Msg("Training started")
	return nil
}

// CompleteSuccess installs a new model state atomically and bumps the
// version tag.
func (s *ModelSlot) CompleteSuccess(state *ModelState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.version++
	state.Version = s.version
	s.state = state
	s.status = SlotReady
	s.log.Info().Int("version", s.version).Msg("Training completed, model ready")
}

// CompleteFailure records the failure and keeps any previous state
// visible to readers.
func (s *ModelSlot) CompleteFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = SlotFailed
	if err != nil {
		s.lastErr = err.Error()
	}
	s.log.Warn().Err(err).Msg("Training failed, previous model retained")
}

// Install seeds the slot with a previously persisted state, e.g. a
// checkpoint loaded at startup. No-op while training.
func (s *ModelSlot) Install(state *ModelState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == SlotTraining {
		return
	}
	s.state = state
	if state.Version > s.version {
		s.version = state.Version
	}
	s.status = SlotReady
}

// Invalidate drops the current state, e.g. when the universe changes.
// It fails while a training run is in flight.
func (s *ModelSlot) Invalidate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == SlotTraining {
		return domain.ErrTrainingInProgress
	}
	s.state = nil
	s.status = SlotIdle
	s.lastErr = ""
	return nil
}

// Current returns the latest complete model state. While a new run is
// training, readers keep seeing the previous state.
func (s *ModelSlot) Current() (*ModelState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return nil, domain.ErrModelNotTrained
	}
	return s.state, nil
}

// Status reports the slot state for the status endpoint.
func (s *ModelSlot) Status() SlotInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SlotInfo{
		Status:     s.status,
		Version:    s.version,
		ModelReady: s.state != nil,
		LastError:  s.lastErr,
	}
}
