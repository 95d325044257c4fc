// Package worldmodel holds the append-only store of experiment records and
// the attribute indices kept over them.
package worldmodel

import (
	"fmt"
	"sort"

	"ciasx/domain/core"
	"ciasx/domain/experiment"
)

// Index names maintained for every appended record.
const (
	IndexReconFamily = "recon_family"
	IndexUQScheme    = "uq_scheme"
)

// IndexEntry is one (attribute value, record id) pair in an index bucket.
type IndexEntry struct {
	Value    string  `json:"value"`
	RecordID core.ID `json:"record_id"`
}

// WorldModel is the ordered record sequence plus indices. It has no internal
// locking; a single goroutine owns it for the duration of a run.
type WorldModel struct {
	records []experiment.Record
	byID    map[core.ID]int
	indices map[string][]IndexEntry
}

// New returns an empty world model
func New() *WorldModel {
	return &WorldModel{
		byID:    make(map[core.ID]int),
		indices: make(map[string][]IndexEntry),
	}
}

// Append adds a record at the end of the sequence. Duplicate ids are rejected.
func (wm *WorldModel) Append(r experiment.Record) error {
	if r.ID.IsEmpty() {
		return core.NewInvariantError("record without id")
	}
	if _, exists := wm.byID[r.ID]; exists {
		return fmt.Errorf("%w: %s", core.ErrDuplicateRecord, r.ID)
	}
	wm.byID[r.ID] = len(wm.records)
	wm.records = append(wm.records, r)
	return nil
}

// IndexRecord adds (value, id) to the named bucket. The id must already be stored.
func (wm *WorldModel) IndexRecord(name, value string, id core.ID) error {
	if _, ok := wm.byID[id]; !ok {
		return core.NewInvariantError("index %q references unknown record %s", name, id)
	}
	wm.indices[name] = append(wm.indices[name], IndexEntry{Value: value, RecordID: id})
	return nil
}

// Get looks a record up by id
func (wm *WorldModel) Get(id core.ID) (experiment.Record, error) {
	pos, ok := wm.byID[id]
	if !ok {
		return experiment.Record{}, fmt.Errorf("%w: %s", core.ErrRecordNotFound, id)
	}
	return wm.records[pos], nil
}

// Has reports whether a record with this id is stored
func (wm *WorldModel) Has(id core.ID) bool {
	_, ok := wm.byID[id]
	return ok
}

// Records returns the records in insertion order. The slice is a copy.
func (wm *WorldModel) Records() []experiment.Record {
	out := make([]experiment.Record, len(wm.records))
	copy(out, wm.records)
	return out
}

// Len is the number of stored records
func (wm *WorldModel) Len() int {
	return len(wm.records)
}

// Index returns a copy of the named bucket, nil when it does not exist.
func (wm *WorldModel) Index(name string) []IndexEntry {
	bucket, ok := wm.indices[name]
	if !ok {
		return nil
	}
	out := make([]IndexEntry, len(bucket))
	copy(out, bucket)
	return out
}

// IndexNames returns the names of all buckets, sorted
func (wm *WorldModel) IndexNames() []string {
	names := make([]string, 0, len(wm.indices))
	for name := range wm.indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RecordsByIndex returns the records whose bucket entry matches value, in
// bucket order.
func (wm *WorldModel) RecordsByIndex(name, value string) []experiment.Record {
	var out []experiment.Record
	for _, entry := range wm.indices[name] {
		if entry.Value != value {
			continue
		}
		if pos, ok := wm.byID[entry.RecordID]; ok {
			out = append(out, wm.records[pos])
		}
	}
	return out
}

// Clone returns an independent snapshot. Records are values; their nested
// maps are shared, which is safe because records are never mutated.
func (wm *WorldModel) Clone() *WorldModel {
	clone := &WorldModel{
		records: make([]experiment.Record, len(wm.records)),
		byID:    make(map[core.ID]int, len(wm.byID)),
		indices: make(map[string][]IndexEntry, len(wm.indices)),
	}
	copy(clone.records, wm.records)
	for id, pos := range wm.byID {
		clone.byID[id] = pos
	}
	for name, bucket := range wm.indices {
		clone.indices[name] = append([]IndexEntry(nil), bucket...)
	}
	return clone
}

// CheckInvariants verifies that ids are unique and every indexed id is stored.
func (wm *WorldModel) CheckInvariants() error {
	if len(wm.byID) != len(wm.records) {
		return core.NewInvariantError("id table has %d entries for %d records", len(wm.byID), len(wm.records))
	}
	for i, r := range wm.records {
		if pos, ok := wm.byID[r.ID]; !ok || pos != i {
			return core.NewInvariantError("record %s at position %d is not addressable", r.ID, i)
		}
	}
	for name, bucket := range wm.indices {
		for _, entry := range bucket {
			if _, ok := wm.byID[entry.RecordID]; !ok {
				return core.NewInvariantError("index %q references unknown record %s", name, entry.RecordID)
			}
		}
	}
	return nil
}
