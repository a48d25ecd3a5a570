package storage

import (
	"context"
	"testing"
	"time"

	"github.com/digienergy/simulation/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProvider(t *testing.T) *CSVProvider {
	t.Helper()
	p := NewCSVProvider(t.TempDir())
	require.NoError(t, p.Init())
	return p
}

// 2024-04-01 is a non-summer Monday.
func testRecords() []types.IntervalRecord {
	return []types.IntervalRecord{
		{
			MeterNo: "MTR-1", Date: "2024-04-01", Weekday: 0, Time: "00:00",
			DemandKW: 150.25, CapacityPeriod: types.CapacityPeriodOffPeak,
			RatePeriod: types.RatePeriodOffPeak,
		},
		{
			MeterNo: "MTR-1", Date: "2024-04-01", Weekday: 0, Time: "10:00",
			DemandKW: 900.5, CapacityPeriod: types.CapacityPeriodHalfPeak,
			RatePeriod: types.RatePeriodHalfPeak,
		},
		{
			// midday gap: half-peak for capacity but off-peak for pricing
			MeterNo: "MTR-1", Date: "2024-04-01", Weekday: 0, Time: "12:00",
			DemandKW: 850, CapacityPeriod: types.CapacityPeriodHalfPeak,
			RatePeriod: types.RatePeriodOffPeak,
		},
	}
}

func TestCSVIntervalsRoundTrip(t *testing.T) {
	p := testProvider(t)
	ctx := context.Background()

	require.NoError(t, p.UpsertIntervals(ctx, testRecords()))

	got, err := p.GetIntervals(ctx, "MTR-1", 2024, time.April)
	require.NoError(t, err)
	// the rate period is recomputed from date and time, not stored, so the
	// round trip must still restore it
	assert.Equal(t, testRecords(), got)
}

func TestCSVIntervalsUpsertReplaces(t *testing.T) {
	p := testProvider(t)
	ctx := context.Background()

	require.NoError(t, p.UpsertIntervals(ctx, testRecords()))

	updated := testRecords()[1]
	updated.DemandKW = 777
	require.NoError(t, p.UpsertIntervals(ctx, []types.IntervalRecord{updated}))

	got, err := p.GetIntervals(ctx, "MTR-1", 2024, time.April)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 777.0, got[1].DemandKW)
}

func TestCSVIntervalsSpanMonths(t *testing.T) {
	p := testProvider(t)
	ctx := context.Background()

	records := testRecords()
	mayRecord := records[0]
	mayRecord.Date = "2024-05-06"
	require.NoError(t, p.UpsertIntervals(ctx, append(records, mayRecord)))

	april, err := p.GetIntervals(ctx, "MTR-1", 2024, time.April)
	require.NoError(t, err)
	assert.Len(t, april, 3)

	may, err := p.GetIntervals(ctx, "MTR-1", 2024, time.May)
	require.NoError(t, err)
	assert.Len(t, may, 1)
}

func TestCSVIntervalsNotFound(t *testing.T) {
	p := testProvider(t)
	_, err := p.GetIntervals(context.Background(), "MTR-1", 2024, time.April)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCSVStatsRoundTrip(t *testing.T) {
	p := testProvider(t)
	ctx := context.Background()

	stats := types.MonthlyStats{
		MeterNo: "MTR-1",
		Year:    2024,
		Month:   4,
		Periods: map[types.CapacityPeriod]types.PeriodStats{
			types.CapacityPeriodHalfPeak: {MaxDemandKW: 900, TotalDemandKW: 1750.5, TotalEnergyKWH: 437.63, Count: 2},
		},
		TotalDemandKW:  1900.75,
		TotalEnergyKWH: 475.19,
		ResidualKW:     map[types.CapacityPeriod]float64{types.CapacityPeriodHalfPeak: -12.5},
	}
	require.NoError(t, p.UpsertMonthlyStats(ctx, stats))

	got, err := p.GetMonthlyStats(ctx, "MTR-1", 2024, time.April)
	require.NoError(t, err)
	assert.Equal(t, stats, got)

	_, err = p.GetMonthlyStats(ctx, "MTR-2", 2024, time.April)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCSVStatementRoundTrip(t *testing.T) {
	p := testProvider(t)
	ctx := context.Background()

	statement := types.Statement{
		MeterNo:            "MTR-1",
		Year:               2024,
		Month:              4,
		BillingDate:        "2024-04-01",
		ContractCapacityKW: 100,
		BasicCharge:        17320,
		EnergyCharge:       1234.56,
		TotalCharge:        18554.56,
	}
	require.NoError(t, p.UpsertStatement(ctx, statement))

	got, err := p.GetStatement(ctx, "MTR-1", 2024, time.April)
	require.NoError(t, err)
	assert.Equal(t, statement, got)

	_, err = p.GetStatement(ctx, "MTR-1", 2024, time.May)
	require.ErrorIs(t, err, ErrNotFound)
}
