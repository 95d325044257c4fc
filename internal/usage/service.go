// Package usage tracks LLM token consumption per model.
package usage

import (
	"context"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ciasx/internal"
	"ciasx/ports"
)

// Totals is the aggregated usage of one model
type Totals struct {
	Model            string `json:"model"`
	Calls            int    `json:"calls"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// Tracker aggregates usage in memory and mirrors it into Prometheus counters
type Tracker struct {
	mu     sync.Mutex
	totals map[string]*Totals
	tokens *prometheus.CounterVec
	logger *internal.Logger
}

// NewTracker creates a tracker. reg may be nil to skip metrics.
func NewTracker(reg prometheus.Registerer, logger *internal.Logger) *Tracker {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	t := &Tracker{
		totals: make(map[string]*Totals),
		logger: logger.With("usage"),
	}
	if reg != nil {
		t.tokens = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "ciasx",
			Name:      "llm_tokens_total",
			Help:      "LLM tokens consumed by model, operation and kind",
		}, []string{"model", "operation", "kind"})
	}
	return t
}

// RecordUsage adds one call's usage. Invalid data is logged and ignored so
// tracking never fails the caller.
func (t *Tracker) RecordUsage(ctx context.Context, operation string, usage *ports.UsageData) {
	if usage == nil {
		t.logger.Debug("no usage data for %s", operation)
		return
	}
	if usage.PromptTokens < 0 || usage.CompletionTokens < 0 || usage.TotalTokens < 0 {
		t.logger.Error("invalid token counts: %+v", *usage)
		return
	}

	t.mu.Lock()
	tot, ok := t.totals[usage.Model]
	if !ok {
		tot = &Totals{Model: usage.Model}
		t.totals[usage.Model] = tot
	}
	tot.Calls++
	tot.PromptTokens += usage.PromptTokens
	tot.CompletionTokens += usage.CompletionTokens
	tot.TotalTokens += usage.TotalTokens
	t.mu.Unlock()

	if t.tokens != nil {
		t.tokens.WithLabelValues(usage.Model, operation, "prompt").Add(float64(usage.PromptTokens))
		t.tokens.WithLabelValues(usage.Model, operation, "completion").Add(float64(usage.CompletionTokens))
	}
}

// Summary returns per-model totals sorted by model name
func (t *Tracker) Summary() []Totals {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Totals, 0, len(t.totals))
	for _, tot := range t.totals {
		out = append(out, *tot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}

// GetTotalTokens returns the tokens consumed across all models
func (t *Tracker) GetTotalTokens() int {
	total := 0
	for _, tot := range t.Summary() {
		total += tot.TotalTokens
	}
	return total
}
