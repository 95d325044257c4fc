package ports

import (
	"context"

	"ciasx/domain/core"
	"ciasx/domain/experiment"
	"ciasx/models"
)

// WorldModelRepository persists design runs and the experiment records each
// run accumulates. Records are append-only; there is no delete.
type WorldModelRepository interface {
	CreateRun(ctx context.Context, run *models.DesignRun) error
	UpdateRun(ctx context.Context, run *models.DesignRun) error
	// GetRun returns core.ErrRunNotFound for unknown ids
	GetRun(ctx context.Context, id core.RunID) (*models.DesignRun, error)
	// ListRuns returns the newest runs first; limit <= 0 means no limit
	ListRuns(ctx context.Context, limit int) ([]*models.DesignRun, error)

	SaveRecord(ctx context.Context, runID core.RunID, cycle int, record experiment.Record) error
	// ListRecords returns a run's records in insertion order
	ListRecords(ctx context.Context, runID core.RunID) ([]experiment.Record, error)
}
