// Package worldmodel turns execution results into world-model records.
package worldmodel

import (
	"fmt"
	"time"

	"ciasx/domain/core"
	"ciasx/domain/experiment"
	wm "ciasx/domain/worldmodel"
)

// Manager creates records and keeps the world-model indices current. It holds
// no state of its own; the world model is passed in and mutated in place.
type Manager struct {
	now   func() time.Time
	newID func() core.ID
}

// Option configures a Manager
type Option func(*Manager)

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDSource overrides the record id source
func WithIDSource(newID func() core.ID) Option {
	return func(m *Manager) { m.newID = newID }
}

// NewManager returns a manager stamping records with UTC wall-clock time and
// random ids.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		now:   func() time.Time { return time.Now().UTC() },
		newID: core.NewID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Update wraps one successful execution in a new record, appends it and
// indexes it by family and scheme. It panics if the world model rejects the
// record: that can only happen when the store is already corrupt.
func (m *Manager) Update(model *wm.WorldModel, config experiment.Configuration, metrics experiment.Metrics, artifacts experiment.Artifacts) experiment.Record {
	record := experiment.NewRecord(m.newID(), config, metrics, artifacts, m.now())
	if err := m.commit(model, record); err != nil {
		panic(fmt.Sprintf("world model update: %v", err))
	}
	return record
}

// Restore re-appends previously persisted records, keeping their ids and
// timestamps, and rebuilds the indices.
func (m *Manager) Restore(model *wm.WorldModel, records []experiment.Record) error {
	for _, record := range records {
		if record.ID.IsEmpty() {
			return core.NewInvariantError("restored record has no id")
		}
		if err := m.commit(model, record); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) commit(model *wm.WorldModel, record experiment.Record) error {
	if err := model.Append(record); err != nil {
		return err
	}
	if err := model.IndexRecord(wm.IndexReconFamily, string(record.Config.ReconFamily), record.ID); err != nil {
		return err
	}
	return model.IndexRecord(wm.IndexUQScheme, string(record.Config.UQScheme), record.ID)
}
