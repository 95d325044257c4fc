package models

import (
	"time"

	"ciasx/domain/core"
)

// RunStatus tracks a design run through its lifecycle
type RunStatus string

const (
	RunStatusInitializing RunStatus = "INITIALIZING"
	RunStatusRunning      RunStatus = "RUNNING"
	RunStatusCompleted    RunStatus = "COMPLETED"
	RunStatusFailed       RunStatus = "FAILED"
)

// IsTerminal reports whether the run has finished
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// DesignRun is one invocation of the scientist loop and its outcome.
type DesignRun struct {
	ID          core.RunID       `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Objective   string           `json:"objective" db:"objective"`
	DesignSpace JSONBStringLists `json:"design_space" db:"design_space"`
	BudgetMax   int              `json:"budget_max" db:"budget_max"`
	BudgetUsed  int              `json:"budget_used" db:"budget_used"`
	Rounds      int              `json:"rounds" db:"rounds"`
	Status      RunStatus        `json:"status" db:"status"`
	StopReason  string           `json:"stop_reason" db:"stop_reason"`
	Trends      JSONBStrings     `json:"trends" db:"trends"`
	ParetoFront JSONBStrings     `json:"pareto_front" db:"pareto_front"`
	Error       string           `json:"error,omitempty" db:"error_message"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
}

// NewDesignRun creates a run in the INITIALIZING state
func NewDesignRun(name, objective string, designSpace map[string][]string, budget int) *DesignRun {
	now := time.Now().UTC()
	return &DesignRun{
		ID:          core.RunID(core.NewID()),
		Name:        name,
		Objective:   objective,
		DesignSpace: JSONBStringLists(designSpace),
		BudgetMax:   budget,
		Status:      RunStatusInitializing,
		Trends:      JSONBStrings{},
		ParetoFront: JSONBStrings{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SetStatus moves the run to a new state, stamping completion for terminal states.
func (r *DesignRun) SetStatus(status RunStatus) {
	now := time.Now().UTC()
	r.Status = status
	r.UpdatedAt = now
	if status.IsTerminal() {
		r.CompletedAt = &now
	}
}

// Fail marks the run failed with a message
func (r *DesignRun) Fail(err error) {
	if err != nil {
		r.Error = err.Error()
	}
	r.SetStatus(RunStatusFailed)
}

// RecordRow is the stored form of one experiment record of a run.
type RecordRow struct {
	ID        core.ID    `db:"id"`
	RunID     core.RunID `db:"run_id"`
	Cycle     int        `db:"cycle"`
	Config    JSONBMap   `db:"config"`
	Metrics   JSONBMap   `db:"metrics"`
	Artifacts JSONBMap   `db:"artifacts"`
	CreatedAt time.Time  `db:"created_at"`
}
