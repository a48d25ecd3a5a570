// Package tariff prices a finalized, reconciled series under the two-part
// tariff: a fixed contract-capacity charge plus a time-of-use energy charge.
package tariff

import (
	"fmt"
	"math"
	"time"

	"github.com/digienergy/simulation/pkg/schedule"
	"github.com/digienergy/simulation/pkg/types"
)

// Basic charge rate keys within a season's table.
const (
	RateKeyContract    = "Contract"
	RateKeyHalfPeak    = "Half_Peak"
	RateKeySatHalfPeak = "Sat_Half_Peak"
	RateKeyOffPeak     = "Off_Peak"
)

// BasicCharge computes the fixed monthly capacity charge:
// contract capacity x the season/day-type rate of the billing date.
//
// The billing date is an explicit, required parameter: the caller decides
// whether the season and day type come from a fixed contractual reference
// date or from the period actually being billed. Rates apply as-is with no
// unit rescaling; the schedule the table derives from is nominally per-kW and
// the deviation is deliberate.
func BasicCharge(contractCapacityKW float64, billingDate time.Time, rates map[types.Season]map[string]float64) (float64, error) {
	season := schedule.SeasonOf(billingDate.Month(), billingDate.Day())
	dayType, _, err := schedule.DayTypeOf(billingDate.Year(), billingDate.Month(), billingDate.Day())
	if err != nil {
		return 0, err
	}

	var key string
	switch dayType {
	case types.DayTypeWeekday:
		if season == types.SeasonSummer {
			key = RateKeyContract
		} else {
			key = RateKeyHalfPeak
		}
	case types.DayTypeSaturday:
		key = RateKeySatHalfPeak
	default:
		key = RateKeyOffPeak
	}

	seasonRates, ok := rates[season]
	if !ok {
		return 0, fmt.Errorf("no basic charge rates for season %s", season)
	}
	rate, ok := seasonRates[key]
	if !ok {
		return 0, fmt.Errorf("no basic charge rate for %s/%s", season, key)
	}
	return Round2(contractCapacityKW * rate), nil
}

// EnergyCharge computes the usage charge for a series. Each interval's rate
// is looked up by its own date's season and day type and its RatePeriod (the
// rate-table taxonomy, never the capacity one), multiplied by the interval's
// energy. Rounding to 2 decimals happens once at the end, not per interval.
func EnergyCharge(records []types.IntervalRecord, rates map[types.Season]map[types.DayType]map[types.RatePeriod]float64) (float64, error) {
	var total float64

	// per-day lookups are invariant; cache them per date string
	type dayKey struct {
		season  types.Season
		dayType types.DayType
	}
	dayCache := make(map[string]dayKey)

	for _, r := range records {
		dk, ok := dayCache[r.Date]
		if !ok {
			year, month, day, err := schedule.ParseDate(r.Date)
			if err != nil {
				return 0, err
			}
			dayType, _, err := schedule.DayTypeOf(year, month, day)
			if err != nil {
				return 0, err
			}
			dk = dayKey{season: schedule.SeasonOf(month, day), dayType: dayType}
			dayCache[r.Date] = dk
		}

		dayRates, ok := rates[dk.season][dk.dayType]
		if !ok {
			return 0, fmt.Errorf("no energy rates for %s/%s", dk.season, dk.dayType)
		}
		rate, ok := dayRates[r.RatePeriod]
		if !ok {
			return 0, fmt.Errorf("no energy rate for %s/%s/%s", dk.season, dk.dayType, r.RatePeriod)
		}
		total += rate * r.EnergyKWH()
	}
	return Round2(total), nil
}

// Round2 rounds a monetary amount to 2 decimal places. Applied only at final
// aggregation points.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
