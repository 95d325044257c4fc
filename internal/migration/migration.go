package migration

import (
	"context"

	"ciasx/internal"
	"ciasx/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Dialect selects the DDL flavour for a driver
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DialectOf maps a sqlx driver name to its dialect
func DialectOf(driverName string) Dialect {
	switch driverName {
	case "sqlite", "sqlite3":
		return DialectSQLite
	}
	return DialectPostgres
}

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
	logger  *internal.Logger
}

// NewRunner creates a new migration runner
func NewRunner(logger *internal.Logger) *MigrationRunner {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &MigrationRunner{
		version: "1.0.0",
		logger:  logger.With("migration"),
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run creates the design run and experiment record tables. It is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	dialect := DialectOf(db.DriverName())
	r.logger.Info("running %s migrations v%s", dialect, r.version)

	if err := r.createDesignRunsTable(ctx, db, dialect); err != nil {
		return errors.DatabaseError("failed to create design_runs table", err)
	}

	if err := r.createExperimentRecordsTable(ctx, db, dialect); err != nil {
		return errors.DatabaseError("failed to create experiment_records table", err)
	}

	r.createIndexes(ctx, db)
	return nil
}

func (r *MigrationRunner) createDesignRunsTable(ctx context.Context, db *sqlx.DB, dialect Dialect) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS design_runs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			objective TEXT NOT NULL DEFAULT '',
			design_space JSONB NOT NULL DEFAULT '{}',
			budget_max INTEGER NOT NULL,
			budget_used INTEGER NOT NULL DEFAULT 0,
			rounds INTEGER NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL,
			stop_reason TEXT NOT NULL DEFAULT '',
			trends JSONB NOT NULL DEFAULT '[]',
			pareto_front JSONB NOT NULL DEFAULT '[]',
			error_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
			completed_at TIMESTAMP WITH TIME ZONE
		)
	`
	if dialect == DialectSQLite {
		ddl = `
		CREATE TABLE IF NOT EXISTS design_runs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			objective TEXT NOT NULL DEFAULT '',
			design_space TEXT NOT NULL DEFAULT '{}',
			budget_max INTEGER NOT NULL,
			budget_used INTEGER NOT NULL DEFAULT 0,
			rounds INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			stop_reason TEXT NOT NULL DEFAULT '',
			trends TEXT NOT NULL DEFAULT '[]',
			pareto_front TEXT NOT NULL DEFAULT '[]',
			error_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP
		)
	`
	}
	_, err := db.ExecContext(ctx, ddl)
	return err
}

func (r *MigrationRunner) createExperimentRecordsTable(ctx context.Context, db *sqlx.DB, dialect Dialect) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS experiment_records (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			run_id TEXT NOT NULL REFERENCES design_runs(id) ON DELETE CASCADE,
			cycle INTEGER NOT NULL,
			config JSONB NOT NULL,
			metrics JSONB NOT NULL,
			artifacts JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)
	`
	if dialect == DialectSQLite {
		ddl = `
		CREATE TABLE IF NOT EXISTS experiment_records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			run_id TEXT NOT NULL REFERENCES design_runs(id) ON DELETE CASCADE,
			cycle INTEGER NOT NULL,
			config TEXT NOT NULL,
			metrics TEXT NOT NULL,
			artifacts TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`
	}
	_, err := db.ExecContext(ctx, ddl)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_runs_created_at ON design_runs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_runs_status ON design_runs(status)",
		"CREATE INDEX IF NOT EXISTS idx_records_run_seq ON experiment_records(run_id, seq)",
	}

	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			r.logger.Warn("failed to create index: %v", err)
		}
	}
}
