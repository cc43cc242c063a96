package training

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Ashwinth04/FinHub/internal/modules/features"
	"github.com/Ashwinth04/FinHub/internal/modules/model"
)

// Checkpoint is the persisted form of a ModelState: parameters, the
// fitted scaler, and the universe/window the indices refer to. The scaler
// travels with the parameters because inference must apply the identical
// feature transform.
type Checkpoint struct {
	Universe   []string         `msgpack:"universe"`
	WindowSize int              `msgpack:"window_size"`
	HiddenDim  int              `msgpack:"hidden_dim"`
	FeatureDim int              `msgpack:"feature_dim"`
	NumHeads   int              `msgpack:"num_heads"`
	Params     []float64        `msgpack:"params"`
	Scaler     *features.Scaler `msgpack:"scaler"`

	LatestReturns  [][]float64   `msgpack:"latest_returns"`
	LatestFeatures [][][]float64 `msgpack:"latest_features"`

	Version int    `msgpack:"version"`
	SavedAt string `msgpack:"saved_at"`
}

// NewCheckpoint captures a model state for persistence.
func NewCheckpoint(state *ModelState) *Checkpoint {
	cfg := state.Model.Cfg()
	return &Checkpoint{
		Universe:       state.Universe,
		WindowSize:     state.WindowSize,
		HiddenDim:      cfg.HiddenDim,
		FeatureDim:     cfg.FeatureDim,
		NumHeads:       cfg.NumHeads,
		Params:         state.Model.Snapshot(),
		Scaler:         state.Scaler,
		LatestReturns:  state.LatestReturns,
		LatestFeatures: state.LatestFeatures,
		Version:        state.Version,
		SavedAt:        time.Now().UTC().Format(time.RFC3339),
	}
}

// Save writes the checkpoint atomically (write-then-rename).
func (c *Checkpoint) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	data, err := msgpack.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to finalize checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint from disk.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var c Checkpoint
	if err := msgpack.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &c, nil
}

// Matches reports whether the checkpoint was trained for the given
// universe and window. A changed universe invalidates the checkpoint.
func (c *Checkpoint) Matches(universe []string, windowSize int) bool {
	if c.WindowSize != windowSize || len(c.Universe) != len(universe) {
		return false
	}
	for i, t := range universe {
		if c.Universe[i] != t {
			return false
		}
	}
	return true
}

// ToState reconstructs a ModelState from the checkpoint.
func (c *Checkpoint) ToState(seed int64) (*ModelState, error) {
	m := model.New(model.Config{
		NumAssets:  len(c.Universe),
		WindowSize: c.WindowSize,
		HiddenDim:  c.HiddenDim,
		FeatureDim: c.FeatureDim,
		NumHeads:   c.NumHeads,
		Seed:       seed,
	})

	if len(c.Params) != len(m.Params()) {
		return nil, fmt.Errorf("checkpoint has %d params, model expects %d", len(c.Params), len(m.Params()))
	}
	m.Restore(c.Params)

	return &ModelState{
		Model:          m,
		Scaler:         c.Scaler,
		Universe:       c.Universe,
		WindowSize:     c.WindowSize,
		LatestReturns:  c.LatestReturns,
		LatestFeatures: c.LatestFeatures,
		Version:        c.Version,
	}, nil
}
