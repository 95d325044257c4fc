// Package scientist runs the closed plan/execute/analyze loop: seed the world
// model, let the planner propose configurations within the remaining budget,
// execute them, fold the results in and analyze, until the budget is spent.
package scientist

import (
	"context"
	"time"

	"ciasx/domain/core"
	"ciasx/domain/experiment"
	wm "ciasx/domain/worldmodel"
	"ciasx/internal"
	"ciasx/internal/analysis"
	"ciasx/internal/errors"
	"ciasx/internal/planner"
	"ciasx/internal/worldmodel"
	"ciasx/ports"
)

// Stop reasons reported in Result.StopReason.
const (
	StopBudgetExhausted = "budget_exhausted"
	StopNoProgress      = "no_progress"
)

// DefaultMaxEmptyRounds bounds consecutive rounds that add no record.
const DefaultMaxEmptyRounds = 3

// Planner proposes the next round of configurations.
type Planner interface {
	Step(ctx context.Context, summary planner.Summary, designSpace experiment.DesignSpace, budgetRemaining int) ([]experiment.Configuration, error)
}

// Options tunes a Loop. Zero values select the defaults.
type Options struct {
	MaxEmptyRounds   int
	ExecutionTimeout time.Duration
	Parallelism      int
	Observer         ports.LoopObserver
	Logger           *internal.Logger
	Manager          *worldmodel.Manager
}

// Result is the outcome of a completed run.
type Result struct {
	ParetoIDs  analysis.IDSet
	Trends     []string
	WorldModel *wm.WorldModel
	BudgetUsed int
	Rounds     int
	StopReason string
}

// PlannerContext is what the previous round's analysis hands to the next prompt.
type PlannerContext struct {
	Trends     []string
	ParetoSize int
}

// Loop orchestrates one scientist run. A Loop may be reused; each Run owns a
// fresh world model.
type Loop struct {
	executor    ports.Executor
	planner     Planner
	designSpace experiment.DesignSpace
	budgetMax   int
	opts        Options
	logger      *internal.Logger
}

// New builds a loop over the given collaborators. budget must be non-negative.
func New(executor ports.Executor, p Planner, designSpace experiment.DesignSpace, budget int, opts Options) (*Loop, error) {
	if budget < 0 {
		return nil, errors.BudgetInvalid(budget)
	}
	if opts.MaxEmptyRounds <= 0 {
		opts.MaxEmptyRounds = DefaultMaxEmptyRounds
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if opts.Manager == nil {
		opts.Manager = worldmodel.NewManager()
	}
	logger := opts.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Loop{
		executor:    executor,
		planner:     p,
		designSpace: designSpace,
		budgetMax:   budget,
		opts:        opts,
		logger:      logger.With("scientist"),
	}, nil
}

// run is the mutable state of one Run call.
type run struct {
	model      *wm.WorldModel
	budgetUsed int
	cycle      int
}

// Run executes every seed, then plans and executes rounds until the budget is
// used or MaxEmptyRounds consecutive rounds add nothing. Seeds always all
// run, so a seed list longer than the budget overshoots it. Only successful
// executions count against the budget.
func (l *Loop) Run(ctx context.Context, seeds []experiment.Configuration) (*Result, error) {
	st := &run{model: wm.New()}

	l.logger.Info("seeding world model with %d configurations (budget %d)", len(seeds), l.budgetMax)
	if _, err := l.executeAndCommit(ctx, st, seeds, false); err != nil {
		return nil, err
	}

	var plannerCtx PlannerContext
	emptyRounds := 0
	rounds := 0
	stopReason := StopBudgetExhausted

	for st.budgetUsed < l.budgetMax {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rounds++
		st.cycle = rounds

		summary := planner.SummarizeWorldModel(st.model)
		summary.Frontiers = append(summary.Frontiers, plannerCtx.Trends...)
		summary.ParetoSize = plannerCtx.ParetoSize
		remaining := l.budgetMax - st.budgetUsed
		l.logger.Info("round %d: %d records, best PSNR %.2f dB, budget %d/%d",
			rounds, summary.TotalExperiments, summary.BestPSNR, st.budgetUsed, l.budgetMax)

		report := ports.RoundReport{Round: rounds, BudgetMax: l.budgetMax}
		configs, err := l.planner.Step(ctx, summary, l.designSpace, remaining)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			l.logger.Warn("round %d: planner failed, treating as zero proposals: %v", rounds, err)
			report.ProposalError = err.Error()
			configs = nil
		}
		report.Proposed = len(configs)

		stats, err := l.executeAndCommit(ctx, st, configs, true)
		if err != nil {
			return nil, err
		}
		report.Succeeded, report.Failed = stats.succeeded, stats.failed

		pareto, trends := analysis.AnalysisStep(st.model)
		plannerCtx = PlannerContext{Trends: trends, ParetoSize: len(pareto)}
		report.BudgetUsed = st.budgetUsed
		report.ParetoSize = len(pareto)
		report.Trends = trends
		l.logger.Info("round %d: proposed %d, succeeded %d, failed %d, pareto size %d",
			rounds, report.Proposed, report.Succeeded, report.Failed, report.ParetoSize)
		for _, trend := range trends {
			l.logger.Debug("  %s", trend)
		}
		l.opts.Observer.OnRound(ctx, report)

		if stats.succeeded == 0 {
			emptyRounds++
			if emptyRounds >= l.opts.MaxEmptyRounds {
				l.logger.Warn("stopping after %d consecutive rounds without new records", emptyRounds)
				stopReason = StopNoProgress
				break
			}
		} else {
			emptyRounds = 0
		}
	}

	pareto, trends := analysis.AnalysisStep(st.model)
	result := &Result{
		ParetoIDs:  pareto,
		Trends:     trends,
		WorldModel: st.model,
		BudgetUsed: st.budgetUsed,
		Rounds:     rounds,
		StopReason: stopReason,
	}
	l.logger.Info("loop finished (%s): %d records, %d rounds, budget %d/%d, pareto size %d",
		stopReason, st.model.Len(), rounds, st.budgetUsed, l.budgetMax, len(pareto))
	l.opts.Observer.OnComplete(ctx, ports.LoopSummary{
		BudgetUsed: st.budgetUsed,
		Rounds:     rounds,
		StopReason: stopReason,
		ParetoIDs:  pareto.Sorted(),
		Trends:     trends,
	})
	return result, nil
}

type batchStats struct {
	succeeded int
	failed    int
}

// executeAndCommit executes configs and folds successes into the world model
// in proposal order. With capped set, it stops as soon as the budget is
// reached. Commits always happen on the calling goroutine.
func (l *Loop) executeAndCommit(ctx context.Context, st *run, configs []experiment.Configuration, capped bool) (batchStats, error) {
	var stats batchStats
	if len(configs) == 0 {
		return stats, nil
	}

	if l.opts.Parallelism > 1 {
		for _, out := range l.executeBatch(ctx, configs) {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if capped && st.budgetUsed >= l.budgetMax {
				break
			}
			l.commit(ctx, st, out, &stats)
		}
		return stats, nil
	}

	for _, config := range configs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if capped && st.budgetUsed >= l.budgetMax {
			l.logger.Info("budget limit reached (%d)", l.budgetMax)
			break
		}
		l.commit(ctx, st, l.executeOne(ctx, config), &stats)
	}
	return stats, nil
}

func (l *Loop) commit(ctx context.Context, st *run, out outcome, stats *batchStats) {
	if out.err != nil {
		stats.failed++
		l.logger.Warn("execution failed for %s/%s, skipping: %v", out.config.ReconFamily, out.config.UQScheme, out.err)
		l.opts.Observer.OnExecutionFailed(ctx, ports.FailureEvent{
			Cycle:    st.cycle,
			Config:   out.config,
			Err:      out.err,
			Duration: out.duration,
		})
		return
	}

	record := l.opts.Manager.Update(st.model, out.config, out.metrics, out.artifacts)
	st.budgetUsed++
	stats.succeeded++
	l.logger.Debug("recorded %s (%s/%s): PSNR %.2f dB, coverage %.3f",
		record.ID, record.Config.ReconFamily, record.Config.UQScheme, record.Metrics.PSNR, record.Metrics.Coverage)
	l.opts.Observer.OnRecord(ctx, ports.RecordEvent{Cycle: st.cycle, Record: record, Duration: out.duration})
}

// ParetoRecords returns the Pareto records of a result in world-model order.
func (r *Result) ParetoRecords() []experiment.Record {
	var out []experiment.Record
	for _, rec := range r.WorldModel.Records() {
		if r.ParetoIDs.Contains(rec.ID) {
			out = append(out, rec)
		}
	}
	return out
}

// ParetoIDList returns the Pareto ids sorted
func (r *Result) ParetoIDList() []core.ID {
	return r.ParetoIDs.Sorted()
}
