package tariff

import (
	"testing"
	"time"

	"github.com/digienergy/simulation/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var basicRates = map[types.Season]map[string]float64{
	types.SeasonSummer: {
		RateKeyContract:    223.6,
		RateKeyHalfPeak:    166.9,
		RateKeySatHalfPeak: 44.7,
		RateKeyOffPeak:     44.7,
	},
	types.SeasonNonSummer: {
		RateKeyContract:    166.9,
		RateKeyHalfPeak:    166.9,
		RateKeySatHalfPeak: 33.3,
		RateKeyOffPeak:     33.3,
	},
}

var energyRates = map[types.Season]map[types.DayType]map[types.RatePeriod]float64{
	types.SeasonSummer: {
		types.DayTypeWeekday: {
			types.RatePeriodPeak:     6.92,
			types.RatePeriodHalfPeak: 4.33,
			types.RatePeriodOffPeak:  1.93,
		},
		types.DayTypeSaturday: {
			types.RatePeriodHalfPeak: 2.57,
			types.RatePeriodOffPeak:  1.93,
		},
		types.DayTypeSunday: {
			types.RatePeriodOffPeak: 1.93,
		},
	},
	types.SeasonNonSummer: {
		types.DayTypeWeekday: {
			types.RatePeriodHalfPeak: 4.12,
			types.RatePeriodOffPeak:  1.79,
		},
	},
}

func TestBasicCharge(t *testing.T) {
	t.Run("summer weekday uses contract rate", func(t *testing.T) {
		// 2024-07-12 is a summer Friday
		charge, err := BasicCharge(38000, time.Date(2024, time.July, 12, 0, 0, 0, 0, time.UTC), basicRates)
		require.NoError(t, err)
		assert.Equal(t, Round2(38000*223.6), charge)
	})

	t.Run("nonsummer weekday uses half peak rate", func(t *testing.T) {
		// 2024-04-12 is a non-summer Friday
		charge, err := BasicCharge(38000, time.Date(2024, time.April, 12, 0, 0, 0, 0, time.UTC), basicRates)
		require.NoError(t, err)
		assert.Equal(t, Round2(38000*166.9), charge)
	})

	t.Run("saturday uses saturday rate", func(t *testing.T) {
		charge, err := BasicCharge(38000, time.Date(2024, time.July, 13, 0, 0, 0, 0, time.UTC), basicRates)
		require.NoError(t, err)
		assert.Equal(t, Round2(38000*44.7), charge)
	})

	t.Run("sunday uses off peak rate", func(t *testing.T) {
		charge, err := BasicCharge(38000, time.Date(2024, time.July, 14, 0, 0, 0, 0, time.UTC), basicRates)
		require.NoError(t, err)
		assert.Equal(t, Round2(38000*44.7), charge)
	})

	t.Run("missing season fails", func(t *testing.T) {
		_, err := BasicCharge(38000, time.Date(2024, time.July, 12, 0, 0, 0, 0, time.UTC),
			map[types.Season]map[string]float64{})
		require.Error(t, err)
	})
}

func TestEnergyCharge(t *testing.T) {
	records := []types.IntervalRecord{
		// summer Friday, peak rate
		{Date: "2024-07-12", Time: "17:00", DemandKW: 1000, RatePeriod: types.RatePeriodPeak},
		// same day, off-peak rate at midday
		{Date: "2024-07-12", Time: "12:00", DemandKW: 2000, RatePeriod: types.RatePeriodOffPeak},
	}
	charge, err := EnergyCharge(records, energyRates)
	require.NoError(t, err)

	want := 1000*0.25*6.92 + 2000*0.25*1.93
	assert.Equal(t, Round2(want), charge)
}

func TestEnergyChargeUsesRatePeriodNotCapacityPeriod(t *testing.T) {
	// 07:00 on a summer weekday: capacity taxonomy says Off_Peak but the rate
	// taxonomy says Half_Peak, and pricing must follow the rate taxonomy
	records := []types.IntervalRecord{{
		Date:           "2024-07-12",
		Time:           "07:00",
		DemandKW:       1000,
		CapacityPeriod: types.CapacityPeriodOffPeak,
		RatePeriod:     types.RatePeriodHalfPeak,
	}}
	charge, err := EnergyCharge(records, energyRates)
	require.NoError(t, err)
	assert.Equal(t, Round2(1000*0.25*4.33), charge)
}

func TestEnergyChargeRoundsOnceAtEnd(t *testing.T) {
	// three intervals each costing a third of a cent: per-interval rounding
	// would produce 0.00, end rounding produces 0.01
	records := []types.IntervalRecord{
		{Date: "2024-07-14", Time: "01:00", DemandKW: 0.006908, RatePeriod: types.RatePeriodOffPeak},
		{Date: "2024-07-14", Time: "01:15", DemandKW: 0.006908, RatePeriod: types.RatePeriodOffPeak},
		{Date: "2024-07-14", Time: "01:30", DemandKW: 0.006908, RatePeriod: types.RatePeriodOffPeak},
	}
	charge, err := EnergyCharge(records, energyRates)
	require.NoError(t, err)
	assert.Equal(t, 0.01, charge)
}

func TestEnergyChargeMissingRate(t *testing.T) {
	records := []types.IntervalRecord{
		// non-summer day has no Peak energy rate configured
		{Date: "2024-04-12", Time: "17:00", DemandKW: 1000, RatePeriod: types.RatePeriodPeak},
	}
	_, err := EnergyCharge(records, energyRates)
	require.Error(t, err)
}

func TestEnergyChargeInvalidDate(t *testing.T) {
	records := []types.IntervalRecord{
		{Date: "someday", Time: "17:00", DemandKW: 1000, RatePeriod: types.RatePeriodPeak},
	}
	_, err := EnergyCharge(records, energyRates)
	require.Error(t, err)
}
