// Package sqlstore implements the world-model repository on sqlx, against
// postgres (lib/pq) or sqlite (modernc).
package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ciasx/domain/core"
	"ciasx/domain/experiment"
	"ciasx/internal"
	"ciasx/internal/errors"
	"ciasx/internal/migration"
	"ciasx/models"
	"ciasx/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Repository implements ports.WorldModelRepository
type Repository struct {
	db *sqlx.DB
}

var _ ports.WorldModelRepository = (*Repository)(nil)

// NewRepository wraps an open connection. The schema must already exist.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Open connects to driver/url, applies migrations and returns the repository
// together with its connection so callers can close it.
func Open(ctx context.Context, driver, url string, logger *internal.Logger) (*Repository, *sqlx.DB, error) {
	if driver == "sqlite" && url != ":memory:" {
		if dir := filepath.Dir(url); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, errors.DatabaseError("failed to create database directory", err)
			}
		}
	}

	db, err := sqlx.ConnectContext(ctx, driver, url)
	if err != nil {
		return nil, nil, errors.DatabaseError(fmt.Sprintf("failed to connect to %s", driver), err)
	}
	if driver == "sqlite" {
		// one writer; also keeps ":memory:" databases on a single connection
		db.SetMaxOpenConns(1)
	}

	if err := migration.NewRunner(logger).Run(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return NewRepository(db), db, nil
}

const runColumns = `id, name, objective, design_space, budget_max, budget_used, rounds, status,
	stop_reason, trends, pareto_front, error_message, created_at, updated_at, completed_at`

func (r *Repository) CreateRun(ctx context.Context, run *models.DesignRun) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO design_runs (`+runColumns+`)
		VALUES (:id, :name, :objective, :design_space, :budget_max, :budget_used, :rounds, :status,
			:stop_reason, :trends, :pareto_front, :error_message, :created_at, :updated_at, :completed_at)
	`, run)
	if err != nil {
		return errors.DatabaseError("failed to create design run", err)
	}
	return nil
}

func (r *Repository) UpdateRun(ctx context.Context, run *models.DesignRun) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE design_runs
		SET budget_used = :budget_used, rounds = :rounds, status = :status, stop_reason = :stop_reason,
			trends = :trends, pareto_front = :pareto_front, error_message = :error_message,
			updated_at = :updated_at, completed_at = :completed_at
		WHERE id = :id
	`, run)
	if err != nil {
		return errors.DatabaseError("failed to update design run", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrRunNotFound
	}
	return nil
}

func (r *Repository) GetRun(ctx context.Context, id core.RunID) (*models.DesignRun, error) {
	var run models.DesignRun
	err := r.db.GetContext(ctx, &run, r.db.Rebind(`SELECT `+runColumns+` FROM design_runs WHERE id = ?`), id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrRunNotFound
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load design run", err)
	}
	return &run, nil
}

func (r *Repository) ListRuns(ctx context.Context, limit int) ([]*models.DesignRun, error) {
	query := `SELECT ` + runColumns + ` FROM design_runs ORDER BY created_at DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	runs := []*models.DesignRun{}
	if err := r.db.SelectContext(ctx, &runs, r.db.Rebind(query), args...); err != nil {
		return nil, errors.DatabaseError("failed to list design runs", err)
	}
	return runs, nil
}

func (r *Repository) SaveRecord(ctx context.Context, runID core.RunID, cycle int, record experiment.Record) error {
	var exists int
	if err := r.db.GetContext(ctx, &exists, r.db.Rebind(`SELECT COUNT(*) FROM design_runs WHERE id = ?`), runID); err != nil {
		return errors.DatabaseError("failed to check design run", err)
	}
	if exists == 0 {
		return core.ErrRunNotFound
	}

	row := toRow(runID, cycle, record)
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO experiment_records (id, run_id, cycle, config, metrics, artifacts, created_at)
		VALUES (:id, :run_id, :cycle, :config, :metrics, :artifacts, :created_at)
	`, row)
	if err != nil {
		var dup int
		if qerr := r.db.GetContext(ctx, &dup, r.db.Rebind(`SELECT COUNT(*) FROM experiment_records WHERE id = ?`), record.ID); qerr == nil && dup > 0 {
			return core.ErrDuplicateRecord
		}
		return errors.DatabaseError("failed to save experiment record", err)
	}
	return nil
}

func (r *Repository) ListRecords(ctx context.Context, runID core.RunID) ([]experiment.Record, error) {
	if _, err := r.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	var rows []models.RecordRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, run_id, cycle, config, metrics, artifacts, created_at
		FROM experiment_records
		WHERE run_id = ?
		ORDER BY seq
	`), runID)
	if err != nil {
		return nil, errors.DatabaseError("failed to list experiment records", err)
	}

	records := make([]experiment.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(row)
		if err != nil {
			return nil, errors.Wrapf(err, "corrupt experiment record %s", row.ID)
		}
		records = append(records, rec)
	}
	return records, nil
}

func toRow(runID core.RunID, cycle int, record experiment.Record) models.RecordRow {
	return models.RecordRow{
		ID:        record.ID,
		RunID:     runID,
		Cycle:     cycle,
		Config:    models.JSONBMap(record.Config.ToMap()),
		Metrics:   models.JSONBMap(record.Metrics.ToMap()),
		Artifacts: models.JSONBMap(record.Artifacts.ToMap()),
		CreatedAt: record.Timestamp.UTC(),
	}
}

func fromRow(row models.RecordRow) (experiment.Record, error) {
	return experiment.RecordFromMap(map[string]any{
		"id":        string(row.ID),
		"config":    map[string]any(row.Config),
		"metrics":   map[string]any(row.Metrics),
		"artifacts": map[string]any(row.Artifacts),
		"timestamp": row.CreatedAt.In(time.UTC),
	})
}
