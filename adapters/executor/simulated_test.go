package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ciasx/domain/experiment"
	"ciasx/internal"
)

func TestRunCampaignRanges(t *testing.T) {
	sim := NewSimulated(Options{Seed: 1, Logger: internal.Discard()})

	for i := 0; i < 100; i++ {
		elp := experiment.Configuration{ReconFamily: experiment.FamilyCIASCoreELP, UQScheme: experiment.UQConformal}
		m, a, err := sim.RunCampaign(context.Background(), elp)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, m.PSNR, 26.0)
		assert.Less(t, m.PSNR, 31.0)
		assert.GreaterOrEqual(t, m.Coverage, 0.85)
		assert.Less(t, m.Coverage, 0.95)
		assert.GreaterOrEqual(t, m.Latency, 10.0)
		assert.Less(t, m.Latency, 50.0)
		require.NotNil(t, m.CalibrationError)
		assert.InDelta(t, 0.055, *m.CalibrationError, 0.045)
		assert.Regexp(t, `^checkpoint_[0-9a-f]{8}\.pth$`, a.Checkpoint)
		assert.Len(t, a.EvalSamples, 3)
		assert.Len(t, a.FigScripts, 2)
		assert.Equal(t, 0.9, a.UQParams["threshold"])
	}
}

func TestRunCampaignWithoutUQ(t *testing.T) {
	sim := NewSimulated(Options{Seed: 2, Logger: internal.Discard()})
	m, a, err := sim.RunCampaign(context.Background(), experiment.Configuration{ReconFamily: experiment.FamilyBaselineCNN, UQScheme: experiment.UQNone})

	require.NoError(t, err)
	assert.Nil(t, m.CalibrationError)
	assert.Less(t, m.PSNR, 29.0)
	assert.Empty(t, a.UQParams)
}

func TestSeedIsReproducible(t *testing.T) {
	cfg := experiment.Configuration{ReconFamily: experiment.FamilyCIASCore, UQScheme: experiment.UQEnsemble}
	a := NewSimulated(Options{Seed: 9, Logger: internal.Discard()})
	b := NewSimulated(Options{Seed: 9, Logger: internal.Discard()})

	for i := 0; i < 5; i++ {
		ma, aa, _ := a.RunCampaign(context.Background(), cfg)
		mb, ab, _ := b.RunCampaign(context.Background(), cfg)
		assert.Equal(t, ma, mb)
		assert.Equal(t, aa, ab)
	}
}

func TestFailureRate(t *testing.T) {
	sim := NewSimulated(Options{Seed: 3, FailureRate: 1, Logger: internal.Discard()})
	_, _, err := sim.RunCampaign(context.Background(), experiment.Configuration{})
	assert.ErrorIs(t, err, ErrSimulatedFailure)
}

func TestDelayHonoursContext(t *testing.T) {
	sim := NewSimulated(Options{Seed: 4, Delay: time.Hour, Logger: internal.Discard()})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, err := sim.RunCampaign(ctx, experiment.Configuration{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
