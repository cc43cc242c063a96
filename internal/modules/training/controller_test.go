package training

import (
	"context"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashwinth04/FinHub/internal/domain"
	"github.com/Ashwinth04/FinHub/internal/modules/model"
)

const (
	testAssets = 3
	testWindow = 8
	testHidden = 8
)

func testModel() *model.AllocationModel {
	return model.New(model.Config{
		NumAssets:  testAssets,
		WindowSize: testWindow,
		HiddenDim:  testHidden,
		Seed:       42,
	})
}

func testSamples(n int, seed int64) []domain.WindowSample {
	rng := rand.New(rand.NewSource(seed))
	samples := make([]domain.WindowSample, n)
	for i := range samples {
		returns := make([][]float64, testWindow)
		feats := make([][][]float64, testWindow)
		for t := 0; t < testWindow; t++ {
			returns[t] = make([]float64, testAssets)
			feats[t] = make([][]float64, testAssets)
			for a := 0; a < testAssets; a++ {
				returns[t][a] = rng.NormFloat64() * 0.01
				row := make([]float64, 4)
				for f := range row {
					row[f] = rng.NormFloat64()
				}
				feats[t][a] = row
			}
		}
		samples[i] = domain.WindowSample{
			Returns:       returns,
			Features:      feats,
			Mask:          []float64{1, 1, 0},
			Strategy:      domain.StrategyMaxSharpe.OneHot(),
			RiskTolerance: 0.5,
			TargetWeights: []float64{0.6, 0.4, 0},
		}
	}
	return samples
}

func TestTrainRequiresSamples(t *testing.T) {
	ctrl := NewController(1e-4, 4, zerolog.Nop())
	_, err := ctrl.Train(context.Background(), testModel(), nil, nil, 3, 2)
	assert.Error(t, err)
}

func TestTrainRecordsLossHistory(t *testing.T) {
	ctrl := NewController(1e-3, 4, zerolog.Nop())

	history, err := ctrl.Train(context.Background(), testModel(), testSamples(8, 1), testSamples(4, 2), 3, 10)
	require.NoError(t, err)

	assert.Len(t, history.TrainLoss, 3)
	assert.Len(t, history.ValLoss, 3)
	for _, l := range history.TrainLoss {
		assert.Greater(t, l, 0.0)
	}
}

func TestTrainEarlyStopsWhenValidationStalls(t *testing.T) {
	// A zero learning rate pins the parameters, so validation loss is
	// identical every epoch and only the first epoch counts as an
	// improvement over the initial infinity.
	ctrl := NewController(0, 4, zerolog.Nop())

	history, err := ctrl.Train(context.Background(), testModel(), testSamples(8, 1), testSamples(4, 2), 20, 2)
	require.NoError(t, err)

	assert.Len(t, history.ValLoss, 3)
	assert.Equal(t, history.ValLoss[0], history.ValLoss[1])
	assert.Equal(t, history.ValLoss[0], history.ValLoss[2])
}

func TestTrainRestoresBestCheckpoint(t *testing.T) {
	// With the parameters frozen the best checkpoint is the initial
	// snapshot, so training must leave the model exactly where it started.
	ctrl := NewController(0, 4, zerolog.Nop())

	m := testModel()
	before := m.Snapshot()

	_, err := ctrl.Train(context.Background(), m, testSamples(8, 1), testSamples(4, 2), 5, 2)
	require.NoError(t, err)

	assert.Equal(t, before, m.Snapshot())
}

func TestTrainHonorsContextCancellation(t *testing.T) {
	ctrl := NewController(1e-4, 4, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ctrl.Train(ctx, testModel(), testSamples(4, 1), nil, 3, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	ctrl := NewController(1e-4, 4, zerolog.Nop())

	m := testModel()
	samples := testSamples(4, 3)

	first := ctrl.Evaluate(m, samples)
	second := ctrl.Evaluate(m, samples)
	assert.Equal(t, first, second)
	assert.Greater(t, first, 0.0)
}

func TestCheckpointRoundTrip(t *testing.T) {
	m := testModel()
	state := &ModelState{
		Model:      m,
		Universe:   []string{"AAPL", "MSFT", "GOOG"},
		WindowSize: testWindow,
		Version:    2,
	}

	ckpt := NewCheckpoint(state)
	path := t.TempDir() + "/model.ckpt"
	require.NoError(t, ckpt.Save(path))

	loaded, err := LoadCheckpoint(path)
	require.NoError(t, err)
	assert.True(t, loaded.Matches(state.Universe, testWindow))
	assert.False(t, loaded.Matches([]string{"AAPL", "MSFT"}, testWindow))

	restored, err := loaded.ToState(0)
	require.NoError(t, err)
	assert.Equal(t, 2, restored.Version)
	assert.Equal(t, m.Snapshot(), restored.Model.Snapshot())
}
