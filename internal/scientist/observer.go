package scientist

import (
	"context"

	"ciasx/ports"
)

// MultiObserver forwards every callback to each observer in order.
type MultiObserver []ports.LoopObserver

func (m MultiObserver) OnRecord(ctx context.Context, event ports.RecordEvent) {
	for _, o := range m {
		o.OnRecord(ctx, event)
	}
}

func (m MultiObserver) OnExecutionFailed(ctx context.Context, event ports.FailureEvent) {
	for _, o := range m {
		o.OnExecutionFailed(ctx, event)
	}
}

func (m MultiObserver) OnRound(ctx context.Context, report ports.RoundReport) {
	for _, o := range m {
		o.OnRound(ctx, report)
	}
}

func (m MultiObserver) OnComplete(ctx context.Context, summary ports.LoopSummary) {
	for _, o := range m {
		o.OnComplete(ctx, summary)
	}
}

// NopObserver ignores every callback
type NopObserver struct{}

func (NopObserver) OnRecord(context.Context, ports.RecordEvent)          {}
func (NopObserver) OnExecutionFailed(context.Context, ports.FailureEvent) {}
func (NopObserver) OnRound(context.Context, ports.RoundReport)           {}
func (NopObserver) OnComplete(context.Context, ports.LoopSummary)        {}
