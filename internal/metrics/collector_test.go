package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ciasx/domain/core"
	"ciasx/domain/experiment"
	"ciasx/ports"
)

func TestCollectorRecordsLoopProgress(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	rec := experiment.NewRecord("", experiment.Configuration{ReconFamily: experiment.FamilyCIASCore}, experiment.Metrics{}, experiment.Artifacts{}, time.Now())
	c.OnRecord(ctx, ports.RecordEvent{Cycle: 0, Record: rec, Duration: 10 * time.Millisecond})
	c.OnRecord(ctx, ports.RecordEvent{Cycle: 1, Record: rec, Duration: 20 * time.Millisecond})
	c.OnExecutionFailed(ctx, ports.FailureEvent{Config: experiment.Configuration{ReconFamily: experiment.FamilyBaselineCNN}, Err: errors.New("boom")})
	c.OnRound(ctx, ports.RoundReport{Round: 1, Proposed: 3, BudgetUsed: 2, BudgetMax: 5, ParetoSize: 1})
	c.OnRound(ctx, ports.RoundReport{Round: 2, ProposalError: "llm down", BudgetUsed: 2, BudgetMax: 5, ParetoSize: 1})
	c.OnComplete(ctx, ports.LoopSummary{BudgetUsed: 2, StopReason: "no_progress", ParetoIDs: []core.ID{rec.ID}})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.experiments.WithLabelValues("success", "CIAS-Core")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.experiments.WithLabelValues("failed", "Baseline-CNN")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.proposals.WithLabelValues("proposed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.proposals.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.rounds))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.budgetUsed))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.paretoSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsCompleted.WithLabelValues("no_progress")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestCollectorsDoNotShareRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector(prometheus.NewRegistry())
		NewCollector(prometheus.NewRegistry())
	})
}
