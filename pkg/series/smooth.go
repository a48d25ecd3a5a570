// Package series holds the month's interval series and the transformations
// applied to it: moving-average smoothing, peak pinning, aggregation into
// monthly statistics, and the keyed upsert set used for persistence merges.
package series

import (
	"github.com/digienergy/simulation/pkg/types"
)

// Smooth applies a centered moving average of the given odd window to the
// demand values, day by day. The window shrinks symmetrically at day
// boundaries instead of padding or wrapping, so position i averages
// [max(0, i-w/2), min(n, i+w/2+1)). Records are modified in place.
func Smooth(records []types.IntervalRecord, window int) {
	if window <= 1 {
		return
	}
	forEachDay(records, func(day []types.IntervalRecord) {
		smoothDay(day, window)
	})
}

func smoothDay(day []types.IntervalRecord, window int) {
	n := len(day)
	orig := make([]float64, n)
	for i, r := range day {
		orig[i] = r.DemandKW
	}
	half := window / 2
	for i := range day {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > n {
			hi = n
		}
		var sum float64
		for j := lo; j < hi; j++ {
			sum += orig[j]
		}
		day[i].DemandKW = sum / float64(hi-lo)
	}
}

// ApplyPins overwrites the record at each pin's exact timestamp with the
// mandated value. Pins run last and unconditionally: neither smoothing nor
// reconciliation may dilute a pinned value.
func ApplyPins(records []types.IntervalRecord, pins []types.PeakPin) {
	if len(pins) == 0 {
		return
	}
	byKey := make(map[string]float64, len(pins))
	for _, p := range pins {
		byKey[p.Date+" "+p.Time] = p.DemandKW
	}
	for i := range records {
		if v, ok := byKey[records[i].Date+" "+records[i].Time]; ok {
			records[i].DemandKW = v
		}
	}
}

// forEachDay invokes fn on each run of records sharing a date. The series is
// expected to be ordered by (date, time); generation produces it that way.
func forEachDay(records []types.IntervalRecord, fn func(day []types.IntervalRecord)) {
	start := 0
	for i := 1; i <= len(records); i++ {
		if i == len(records) || records[i].Date != records[start].Date {
			fn(records[start:i])
			start = i
		}
	}
}
