package training

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashwinth04/FinHub/internal/domain"
)

func testSlot() *ModelSlot {
	return NewModelSlot(zerolog.Nop())
}

func TestModelSlotLifecycle(t *testing.T) {
	slot := testSlot()

	info := slot.Status()
	assert.Equal(t, SlotIdle, info.Status)
	assert.False(t, info.ModelReady)

	_, err := slot.Current()
	assert.ErrorIs(t, err, domain.ErrModelNotTrained)

	require.NoError(t, slot.BeginTraining())
	assert.Equal(t, SlotTraining, slot.Status().Status)

	slot.CompleteSuccess(&ModelState{Universe: []string{"AAPL", "MSFT"}})

	info = slot.Status()
	assert.Equal(t, SlotReady, info.Status)
	assert.True(t, info.ModelReady)
	assert.Equal(t, 1, info.Version)

	state, err := slot.Current()
	require.NoError(t, err)
	assert.Equal(t, 1, state.Version)
}

func TestModelSlotRejectsConcurrentTraining(t *testing.T) {
	slot := testSlot()

	require.NoError(t, slot.BeginTraining())
	assert.ErrorIs(t, slot.BeginTraining(), domain.ErrTrainingInProgress)

	slot.CompleteFailure(assert.AnError)

	// After the run resolves a new one may start.
	require.NoError(t, slot.BeginTraining())
}

func TestModelSlotFailureKeepsPreviousState(t *testing.T) {
	slot := testSlot()

	require.NoError(t, slot.BeginTraining())
	slot.CompleteSuccess(&ModelState{Universe: []string{"AAPL"}})

	require.NoError(t, slot.BeginTraining())
	slot.CompleteFailure(assert.AnError)

	info := slot.Status()
	assert.Equal(t, SlotFailed, info.Status)
	assert.True(t, info.ModelReady)
	assert.Equal(t, assert.AnError.Error(), info.LastError)

	// Readers still see the version-1 model.
	state, err := slot.Current()
	require.NoError(t, err)
	assert.Equal(t, 1, state.Version)
	assert.Equal(t, []string{"AAPL"}, state.Universe)
}

func TestModelSlotVersionIncrementsPerRun(t *testing.T) {
	slot := testSlot()

	for i := 1; i <= 3; i++ {
		require.NoError(t, slot.BeginTraining())
		slot.CompleteSuccess(&ModelState{})
		assert.Equal(t, i, slot.Status().Version)
	}
}

func TestModelSlotInstallAndInvalidate(t *testing.T) {
	slot := testSlot()

	slot.Install(&ModelState{Version: 7})
	info := slot.Status()
	assert.Equal(t, SlotReady, info.Status)
	assert.Equal(t, 7, info.Version)

	require.NoError(t, slot.Invalidate())
	_, err := slot.Current()
	assert.ErrorIs(t, err, domain.ErrModelNotTrained)
	assert.Equal(t, SlotIdle, slot.Status().Status)

	// Invalidate is refused mid-run, and a fresh success still bumps the
	// version past the installed checkpoint.
	require.NoError(t, slot.BeginTraining())
	assert.ErrorIs(t, slot.Invalidate(), domain.ErrTrainingInProgress)
	slot.CompleteSuccess(&ModelState{})
	assert.Equal(t, 8, slot.Status().Version)
}

func TestModelSlotInstallIgnoredWhileTraining(t *testing.T) {
	slot := testSlot()

	require.NoError(t, slot.BeginTraining())
	slot.Install(&ModelState{Version: 5})

	_, err := slot.Current()
	assert.ErrorIs(t, err, domain.ErrModelNotTrained)
	assert.Equal(t, SlotTraining, slot.Status().Status)
}
