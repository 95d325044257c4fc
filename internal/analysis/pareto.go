// Package analysis computes Pareto frontiers, calibration statistics and trend
// digests over world-model records. Everything here is deterministic.
package analysis

import (
	"sort"

	"ciasx/domain/core"
	"ciasx/domain/experiment"
)

// IDSet is an unordered set of record ids.
type IDSet map[core.ID]struct{}

// NewIDSet builds a set from ids
func NewIDSet(ids ...core.ID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id
func (s IDSet) Add(id core.ID) { s[id] = struct{}{} }

// Contains reports membership
func (s IDSet) Contains(id core.ID) bool {
	_, ok := s[id]
	return ok
}

// Union adds every id of other to s
func (s IDSet) Union(other IDSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Sorted returns the ids in lexical order, for stable output.
func (s IDSet) Sorted() []core.ID {
	out := make([]core.ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dominates reports whether b dominates a under maximization of every
// objective: b is at least as good everywhere and strictly better somewhere.
func Dominates(b, a experiment.Metrics, objectives []string) bool {
	strictly := false
	for _, obj := range objectives {
		bv, av := b.Objective(obj), a.Objective(obj)
		if bv < av {
			return false
		}
		if bv > av {
			strictly = true
		}
	}
	return strictly
}

// ComputeParetoFront returns the ids of records not dominated by any other
// record of the input. Identical objective vectors are mutually
// non-dominating, so all copies are kept. O(n²).
func ComputeParetoFront(records []experiment.Record, objectives []string) IDSet {
	front := make(IDSet)
	for i, a := range records {
		dominated := false
		for j, b := range records {
			if i == j {
				continue
			}
			if Dominates(b.Metrics, a.Metrics, objectives) {
				dominated = true
				break
			}
		}
		if !dominated {
			front.Add(a.ID)
		}
	}
	return front
}
