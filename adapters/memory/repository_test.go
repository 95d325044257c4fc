package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ciasx/domain/core"
	"ciasx/domain/experiment"
	"ciasx/models"
)

func sampleRecord(family experiment.ReconFamily, psnr float64) experiment.Record {
	return experiment.NewRecord("",
		experiment.Configuration{ReconFamily: family, UQScheme: experiment.UQConformal, ReconParams: map[string]any{"num_stages": 9}},
		experiment.Metrics{PSNR: psnr, Coverage: 0.9, Latency: 20, CalibrationError: experiment.Float64(0.05)},
		experiment.Artifacts{Checkpoint: "checkpoint_0000abcd.pth", EvalSamples: []string{"sample_0.png"}},
		time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	)
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	run := models.NewDesignRun("demo", "maximize psnr", experiment.DefaultDesignSpace(), 5)

	require.NoError(t, repo.CreateRun(ctx, run))
	assert.Error(t, repo.CreateRun(ctx, run))

	run.BudgetUsed = 3
	run.Trends = models.JSONBStrings{"[(CIAS-Core, Conformal)] ok"}
	run.SetStatus(models.RunStatusCompleted)
	require.NoError(t, repo.UpdateRun(ctx, run))

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.BudgetUsed)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)

	got.Trends[0] = "mutated"
	again, _ := repo.GetRun(ctx, run.ID)
	assert.Equal(t, "[(CIAS-Core, Conformal)] ok", again.Trends[0])
}

func TestGetAndUpdateUnknownRun(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	_, err := repo.GetRun(ctx, core.RunID("missing"))
	assert.ErrorIs(t, err, core.ErrRunNotFound)
	assert.ErrorIs(t, repo.UpdateRun(ctx, &models.DesignRun{ID: "missing"}), core.ErrRunNotFound)
	assert.ErrorIs(t, repo.SaveRecord(ctx, "missing", 0, sampleRecord(experiment.FamilyCIASCore, 1)), core.ErrRunNotFound)
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"a", "b", "c"} {
		run := models.NewDesignRun(name, "", nil, 1)
		run.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.CreateRun(ctx, run))
	}

	runs, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{runs[0].Name, runs[1].Name, runs[2].Name})

	limited, err := repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRecordsAreAppendOnlyAndOrdered(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	run := models.NewDesignRun("demo", "", nil, 3)
	require.NoError(t, repo.CreateRun(ctx, run))

	first := sampleRecord(experiment.FamilyCIASCore, 27)
	second := sampleRecord(experiment.FamilyBaselineCNN, 25)
	require.NoError(t, repo.SaveRecord(ctx, run.ID, 0, first))
	require.NoError(t, repo.SaveRecord(ctx, run.ID, 1, second))
	assert.ErrorIs(t, repo.SaveRecord(ctx, run.ID, 1, second), core.ErrDuplicateRecord)

	records, err := repo.ListRecords(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.ID, records[0].ID)
	assert.Equal(t, second.ID, records[1].ID)
	assert.Equal(t, 27.0, records[0].Metrics.PSNR)
	assert.True(t, records[0].Timestamp.Equal(first.Timestamp))

	records[0].Config.ReconParams["num_stages"] = 1
	reloaded, _ := repo.ListRecords(ctx, run.ID)
	assert.Equal(t, 9, reloaded[0].Config.ReconParams["num_stages"])
}
