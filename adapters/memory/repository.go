// Package memory is an in-process WorldModelRepository for tests and
// ephemeral runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"ciasx/domain/core"
	"ciasx/domain/experiment"
	"ciasx/models"
	"ciasx/ports"
)

type storedRecord struct {
	cycle  int
	record experiment.Record
}

// Repository keeps runs and records in maps guarded by a RWMutex. Values are
// copied on the way in and out so callers cannot mutate stored state.
type Repository struct {
	mu      sync.RWMutex
	runs    map[core.RunID]models.DesignRun
	records map[core.RunID][]storedRecord
	seen    map[core.ID]bool
}

var _ ports.WorldModelRepository = (*Repository)(nil)

// NewRepository creates an empty repository
func NewRepository() *Repository {
	return &Repository{
		runs:    make(map[core.RunID]models.DesignRun),
		records: make(map[core.RunID][]storedRecord),
		seen:    make(map[core.ID]bool),
	}
}

func (r *Repository) CreateRun(ctx context.Context, run *models.DesignRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[run.ID]; exists {
		return core.NewInvariantError("run %s already exists", run.ID)
	}
	r.runs[run.ID] = copyRun(run)
	return nil
}

func (r *Repository) UpdateRun(ctx context.Context, run *models.DesignRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[run.ID]; !exists {
		return core.ErrRunNotFound
	}
	r.runs[run.ID] = copyRun(run)
	return nil
}

func (r *Repository) GetRun(ctx context.Context, id core.RunID) (*models.DesignRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, core.ErrRunNotFound
	}
	out := copyRun(&run)
	return &out, nil
}

func (r *Repository) ListRuns(ctx context.Context, limit int) ([]*models.DesignRun, error) {
	r.mu.RLock()
	runs := make([]*models.DesignRun, 0, len(r.runs))
	for _, run := range r.runs {
		c := copyRun(&run)
		runs = append(runs, &c)
	}
	r.mu.RUnlock()

	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (r *Repository) SaveRecord(ctx context.Context, runID core.RunID, cycle int, record experiment.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[runID]; !ok {
		return core.ErrRunNotFound
	}
	if r.seen[record.ID] {
		return core.ErrDuplicateRecord
	}
	stored, err := experiment.RecordFromMap(record.ToMap())
	if err != nil {
		return err
	}
	r.seen[record.ID] = true
	r.records[runID] = append(r.records[runID], storedRecord{cycle: cycle, record: stored})
	return nil
}

func (r *Repository) ListRecords(ctx context.Context, runID core.RunID) ([]experiment.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.runs[runID]; !ok {
		return nil, core.ErrRunNotFound
	}
	stored := r.records[runID]
	out := make([]experiment.Record, 0, len(stored))
	for _, s := range stored {
		rec, err := experiment.RecordFromMap(s.record.ToMap())
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func copyRun(run *models.DesignRun) models.DesignRun {
	c := *run
	if run.DesignSpace != nil {
		c.DesignSpace = make(models.JSONBStringLists, len(run.DesignSpace))
		for k, v := range run.DesignSpace {
			c.DesignSpace[k] = append([]string(nil), v...)
		}
	}
	c.Trends = append(models.JSONBStrings(nil), run.Trends...)
	c.ParetoFront = append(models.JSONBStrings(nil), run.ParetoFront...)
	if run.CompletedAt != nil {
		t := *run.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
