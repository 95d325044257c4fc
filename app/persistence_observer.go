package app

import (
	"context"

	"ciasx/internal"
	"ciasx/models"
	"ciasx/ports"
)

// runRecorder persists loop progress into the repository as it happens. The
// loop calls it from a single goroutine. The first write error is kept so
// the service can fail the run once the loop returns.
type runRecorder struct {
	repo   ports.WorldModelRepository
	run    *models.DesignRun
	logger *internal.Logger
	err    error
}

func newRunRecorder(repo ports.WorldModelRepository, run *models.DesignRun, logger *internal.Logger) *runRecorder {
	return &runRecorder{repo: repo, run: run, logger: logger}
}

func (r *runRecorder) fail(err error, what string) {
	r.logger.Error("run %s: failed to persist %s: %v", r.run.ID, what, err)
	if r.err == nil {
		r.err = err
	}
}

func (r *runRecorder) OnRecord(ctx context.Context, event ports.RecordEvent) {
	if err := r.repo.SaveRecord(ctx, r.run.ID, event.Cycle, event.Record); err != nil {
		r.fail(err, "record "+event.Record.ID.String())
		return
	}
	r.run.BudgetUsed++
}

func (r *runRecorder) OnExecutionFailed(ctx context.Context, event ports.FailureEvent) {
	r.logger.Debug("run %s: cycle %d execution failed: %v", r.run.ID, event.Cycle, event.Err)
}

func (r *runRecorder) OnRound(ctx context.Context, report ports.RoundReport) {
	r.run.Rounds = report.Round
	r.run.BudgetUsed = report.BudgetUsed
	r.run.Trends = models.JSONBStrings(append([]string(nil), report.Trends...))
	r.run.UpdatedAt = nowUTC()
	if err := r.repo.UpdateRun(ctx, r.run); err != nil {
		r.fail(err, "round progress")
	}
}

// OnComplete is a no-op; the service writes the terminal state.
func (r *runRecorder) OnComplete(ctx context.Context, summary ports.LoopSummary) {}
