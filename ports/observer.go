package ports

import (
	"context"
	"time"

	"ciasx/domain/core"
	"ciasx/domain/experiment"
)

// RecordEvent is emitted after a successful execution is committed.
type RecordEvent struct {
	Cycle    int
	Record   experiment.Record
	Duration time.Duration
}

// FailureEvent is emitted when an execution fails and is skipped.
type FailureEvent struct {
	Cycle    int
	Config   experiment.Configuration
	Err      error
	Duration time.Duration
}

// RoundReport summarizes one discovery round.
type RoundReport struct {
	Round         int      `json:"round"`
	Proposed      int      `json:"proposed"`
	ProposalError string   `json:"proposal_error,omitempty"`
	Succeeded     int      `json:"succeeded"`
	Failed        int      `json:"failed"`
	BudgetUsed    int      `json:"budget_used"`
	BudgetMax     int      `json:"budget_max"`
	ParetoSize    int      `json:"pareto_size"`
	Trends        []string `json:"trends"`
}

// LoopSummary is the terminal state of a loop run.
type LoopSummary struct {
	BudgetUsed int       `json:"budget_used"`
	Rounds     int       `json:"rounds"`
	StopReason string    `json:"stop_reason"`
	ParetoIDs  []core.ID `json:"pareto_ids"`
	Trends     []string  `json:"trends"`
}

// LoopObserver receives progress callbacks from the scientist loop. Callbacks
// run on the loop goroutine and must not block for long.
type LoopObserver interface {
	OnRecord(ctx context.Context, event RecordEvent)
	OnExecutionFailed(ctx context.Context, event FailureEvent)
	OnRound(ctx context.Context, report RoundReport)
	OnComplete(ctx context.Context, summary LoopSummary)
}
