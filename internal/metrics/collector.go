// Package metrics exposes scientist-loop progress as Prometheus metrics.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ciasx/ports"
)

const namespace = "ciasx"

// Collector implements ports.LoopObserver by recording into its own registry.
type Collector struct {
	experiments       *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	proposals         *prometheus.CounterVec
	rounds            prometheus.Counter
	budgetUsed        prometheus.Gauge
	paretoSize        prometheus.Gauge
	runsCompleted     *prometheus.CounterVec
}

var _ ports.LoopObserver = (*Collector)(nil)

// NewCollector registers the loop metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		experiments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "experiments_total",
			Help:      "Executed experiments by outcome and reconstruction family",
		}, []string{"status", "family"}),
		executionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Wall time of experiment campaigns",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"status"}),
		proposals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_total",
			Help:      "Planner proposals by outcome",
		}, []string{"outcome"}),
		rounds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Completed discovery rounds",
		}),
		budgetUsed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "budget_used",
			Help:      "Successful experiments in the latest run",
		}),
		paretoSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pareto_front_size",
			Help:      "Size of the latest Pareto front",
		}),
		runsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_completed_total",
			Help:      "Finished loop runs by stop reason",
		}, []string{"stop_reason"}),
	}
}

func (c *Collector) OnRecord(ctx context.Context, event ports.RecordEvent) {
	c.experiments.WithLabelValues("success", string(event.Record.Config.ReconFamily)).Inc()
	c.executionDuration.WithLabelValues("success").Observe(event.Duration.Seconds())
}

func (c *Collector) OnExecutionFailed(ctx context.Context, event ports.FailureEvent) {
	c.experiments.WithLabelValues("failed", string(event.Config.ReconFamily)).Inc()
	c.executionDuration.WithLabelValues("failed").Observe(event.Duration.Seconds())
}

func (c *Collector) OnRound(ctx context.Context, report ports.RoundReport) {
	c.rounds.Inc()
	if report.ProposalError != "" {
		c.proposals.WithLabelValues("error").Inc()
	}
	c.proposals.WithLabelValues("proposed").Add(float64(report.Proposed))
	c.budgetUsed.Set(float64(report.BudgetUsed))
	c.paretoSize.Set(float64(report.ParetoSize))
}

func (c *Collector) OnComplete(ctx context.Context, summary ports.LoopSummary) {
	c.runsCompleted.WithLabelValues(summary.StopReason).Inc()
	c.budgetUsed.Set(float64(summary.BudgetUsed))
	c.paretoSize.Set(float64(len(summary.ParetoIDs)))
}
