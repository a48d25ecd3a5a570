package series

import (
	"fmt"
	"testing"

	"github.com/digienergy/simulation/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dayRecords(date string, demands []float64) []types.IntervalRecord {
	records := make([]types.IntervalRecord, len(demands))
	for i, d := range demands {
		records[i] = types.IntervalRecord{
			MeterNo:        "m1",
			Date:           date,
			Time:           fmt.Sprintf("%02d:%02d", i/4, (i%4)*15),
			DemandKW:       d,
			CapacityPeriod: types.CapacityPeriodOffPeak,
		}
	}
	return records
}

func TestSmoothCenteredAverage(t *testing.T) {
	records := dayRecords("2024-07-01", []float64{10, 20, 30, 40, 50, 60, 70})
	Smooth(records, 5)

	// interior point uses the full window
	assert.InDelta(t, (10+20+30+40+50)/5.0, records[2].DemandKW, 1e-9)
	// edges shrink symmetrically instead of padding
	assert.InDelta(t, (10+20+30)/3.0, records[0].DemandKW, 1e-9)
	assert.InDelta(t, (10+20+30+40)/4.0, records[1].DemandKW, 1e-9)
	assert.InDelta(t, (50+60+70)/3.0, records[6].DemandKW, 1e-9)
}

func TestSmoothNeverCrossesDays(t *testing.T) {
	day1 := dayRecords("2024-07-01", []float64{0, 0, 0})
	day2 := dayRecords("2024-07-02", []float64{900, 900, 900})
	records := append(day1, day2...)

	Smooth(records, 3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, 0.0, records[i].DemandKW, "day one must not see day two's values")
		assert.Equal(t, 900.0, records[i+3].DemandKW)
	}
}

func TestSmoothWindowOneIsNoop(t *testing.T) {
	records := dayRecords("2024-07-01", []float64{5, 100, 5})
	Smooth(records, 1)
	assert.Equal(t, 100.0, records[1].DemandKW)
}

func TestApplyPins(t *testing.T) {
	records := dayRecords("2024-07-12", []float64{10, 20, 30, 40})
	Smooth(records, 3)
	ApplyPins(records, []types.PeakPin{{Date: "2024-07-12", Time: "00:30", DemandKW: 37000}})

	assert.Equal(t, 37000.0, records[2].DemandKW, "pin must hold exactly even after smoothing")
	assert.NotEqual(t, 10.0, records[0].DemandKW, "smoothing still applied elsewhere")

	// pins for other days are ignored
	ApplyPins(records, []types.PeakPin{{Date: "2024-07-13", Time: "00:00", DemandKW: 1}})
	assert.NotEqual(t, 1.0, records[0].DemandKW)
}

func TestAggregate(t *testing.T) {
	records := []types.IntervalRecord{
		{MeterNo: "m1", Date: "2024-07-01", Time: "17:00", DemandKW: 1000, CapacityPeriod: types.CapacityPeriodPeak},
		{MeterNo: "m1", Date: "2024-07-01", Time: "17:15", DemandKW: 3000, CapacityPeriod: types.CapacityPeriodPeak},
		{MeterNo: "m1", Date: "2024-07-01", Time: "03:00", DemandKW: 500, CapacityPeriod: types.CapacityPeriodOffPeak},
	}
	stats := Aggregate(records, 2024, 7)

	assert.Equal(t, "m1", stats.MeterNo)
	peak := stats.Period(types.CapacityPeriodPeak)
	assert.Equal(t, 3000.0, peak.MaxDemandKW)
	assert.Equal(t, 4000.0, peak.TotalDemandKW)
	assert.InDelta(t, 1000.0, peak.TotalEnergyKWH, 1e-9)
	assert.Equal(t, 2, peak.Count)

	off := stats.Period(types.CapacityPeriodOffPeak)
	assert.Equal(t, 500.0, off.TotalDemandKW)

	// grand totals equal the sum over periods
	var totalDemand, totalEnergy float64
	for _, p := range stats.Periods {
		totalDemand += p.TotalDemandKW
		totalEnergy += p.TotalEnergyKWH
	}
	assert.InDelta(t, totalDemand, stats.TotalDemandKW, 1e-9)
	assert.InDelta(t, totalEnergy, stats.TotalEnergyKWH, 1e-9)

	// aggregation never mutates its input
	assert.Equal(t, 1000.0, records[0].DemandKW)
}

func TestAggregateEmpty(t *testing.T) {
	stats := Aggregate(nil, 2024, 7)
	assert.Equal(t, 0.0, stats.TotalDemandKW)
	assert.Empty(t, stats.Periods)
}

func TestSetUpsertLastWriterWins(t *testing.T) {
	s := NewSet()
	s.Upsert(types.IntervalRecord{MeterNo: "m1", Date: "2024-07-01", Time: "00:00", DemandKW: 100})
	s.Upsert(types.IntervalRecord{MeterNo: "m1", Date: "2024-07-01", Time: "00:15", DemandKW: 200})
	s.Upsert(types.IntervalRecord{MeterNo: "m1", Date: "2024-07-01", Time: "00:00", DemandKW: 999})

	require.Equal(t, 2, s.Len())
	records := s.Records()
	assert.Equal(t, 999.0, records[0].DemandKW, "second write for the same key must win")
	assert.Equal(t, "00:15", records[1].Time)
}

func TestSetRecordsSorted(t *testing.T) {
	s := NewSet()
	s.Upsert(
		types.IntervalRecord{MeterNo: "m1", Date: "2024-07-02", Time: "00:00"},
		types.IntervalRecord{MeterNo: "m1", Date: "2024-07-01", Time: "23:45"},
		types.IntervalRecord{MeterNo: "m1", Date: "2024-07-01", Time: "00:15"},
	)
	records := s.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "2024-07-01", records[0].Date)
	assert.Equal(t, "00:15", records[0].Time)
	assert.Equal(t, "23:45", records[1].Time)
	assert.Equal(t, "2024-07-02", records[2].Date)
}
