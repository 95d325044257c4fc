package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ciasx/adapters/executor"
	"ciasx/adapters/llm/heuristic"
	"ciasx/adapters/memory"
	"ciasx/domain/core"
	"ciasx/domain/experiment"
	wm "ciasx/domain/worldmodel"
	"ciasx/internal"
	"ciasx/internal/errors"
	"ciasx/internal/planner"
	"ciasx/internal/scientist"
	"ciasx/models"
	"ciasx/ports"
)

type roundCounter struct {
	scientist.NopObserver
	runID  core.RunID
	rounds int
}

func (c *roundCounter) OnRound(context.Context, ports.RoundReport) { c.rounds++ }

func newService(t *testing.T, failureRate float64, opts ServiceOptions) (*ScientistService, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	exec := executor.NewSimulated(executor.Options{Seed: 7, FailureRate: failureRate, Logger: internal.Discard()})
	p := planner.New(heuristic.NewGenerator(), planner.WithLogger(internal.Discard()))
	opts.Logger = internal.Discard()
	opts.Loop.Logger = internal.Discard()
	return NewScientistService(repo, exec, p, opts), repo
}

func TestRunCompletesAndPersists(t *testing.T) {
	ctx := context.Background()
	counter := &roundCounter{}
	svc, repo := newService(t, 0, ServiceOptions{
		RunObserver: func(id core.RunID) ports.LoopObserver {
			counter.runID = id
			return counter
		},
	})

	run, result, err := svc.Run(ctx, RunRequest{Name: "demo", Objective: "maximize psnr", Budget: 5})
	require.NoError(t, err)
	assert.Equal(t, run.ID, counter.runID)
	assert.Equal(t, result.Rounds, counter.rounds)

	stored, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, stored.Status)
	assert.Equal(t, 5, stored.BudgetUsed)
	assert.Equal(t, scientist.StopBudgetExhausted, stored.StopReason)
	assert.NotEmpty(t, stored.ParetoFront)
	assert.Equal(t, len(result.Trends), len(stored.Trends))
	assert.NotNil(t, stored.CompletedAt)

	records, err := svc.Records(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, records, 5)

	model, err := svc.LoadWorldModel(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, model.Len())
	assert.NoError(t, model.CheckInvariants())
	assert.Len(t, model.Index(wm.IndexReconFamily), 5)

	_, a, err := svc.Analyze(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, a.TotalExperiments)
	assert.Equal(t, len(stored.ParetoFront), a.ParetoCount)
	require.NotNil(t, a.Best)
}

func TestRunWithFailingExecutorStopsWithoutProgress(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t, 1, ServiceOptions{})

	run, result, err := svc.Run(ctx, RunRequest{Name: "flaky", Budget: 3})
	require.NoError(t, err)
	assert.Equal(t, scientist.StopNoProgress, result.StopReason)

	stored, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, stored.Status)
	assert.Zero(t, stored.BudgetUsed)
	assert.Equal(t, scientist.DefaultMaxEmptyRounds, stored.Rounds)
}

func TestCancelledRunIsMarkedFailed(t *testing.T) {
	svc, repo := newService(t, 0, ServiceOptions{})
	run, seeds, err := svc.CreateRun(context.Background(), RunRequest{Name: "cancelled", Budget: 3})
	require.NoError(t, err)
	assert.Len(t, seeds, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.ExecuteRun(ctx, run, seeds)
	require.ErrorIs(t, err, context.Canceled)

	stored, err := repo.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.Error)
}

func TestCreateRunValidation(t *testing.T) {
	svc, _ := newService(t, 0, ServiceOptions{})
	ctx := context.Background()

	_, _, err := svc.CreateRun(ctx, RunRequest{Budget: 3})
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))

	_, _, err = svc.CreateRun(ctx, RunRequest{Name: "neg", Budget: -1})
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))

	_, _, err = svc.CreateRun(ctx, RunRequest{Name: "bad space", Budget: 1, DesignSpace: experiment.DesignSpace{"recon_families": {""}}})
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))
}

func TestAnalyzeUnknownRun(t *testing.T) {
	svc, _ := newService(t, 0, ServiceOptions{})
	_, _, err := svc.Analyze(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrRunNotFound)
}
