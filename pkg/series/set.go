package series

import (
	"sort"

	"github.com/digienergy/simulation/pkg/types"
)

// Set is an upsert collection of interval records keyed by
// (meter, date, time). Writing a key that already exists replaces the
// previous record: last writer wins. This is the stated contract for merging
// a new run into previously persisted data, not an accident of write order.
type Set struct {
	byKey map[types.IntervalKey]types.IntervalRecord
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{byKey: make(map[types.IntervalKey]types.IntervalRecord)}
}

// Upsert inserts or replaces records by key.
func (s *Set) Upsert(records ...types.IntervalRecord) {
	for _, r := range records {
		s.byKey[r.Key()] = r
	}
}

// Len returns the number of distinct keys.
func (s *Set) Len() int {
	return len(s.byKey)
}

// Records returns all records sorted by (date, time, meter). Downstream
// consumers expect a deterministically ordered series; aggregation itself is
// order-independent.
func (s *Set) Records() []types.IntervalRecord {
	out := make([]types.IntervalRecord, 0, len(s.byKey))
	for _, r := range s.byKey {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].MeterNo < out[j].MeterNo
	})
	return out
}
