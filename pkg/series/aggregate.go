package series

import (
	"github.com/digienergy/simulation/pkg/types"
)

// Aggregate folds a series into MonthlyStats: per capacity period the running
// max and sum of demand plus the energy sum (demand x 0.25 kWh per interval),
// and grand totals across periods. The input is not modified. Stats are
// recomputed from scratch whenever the series changes; they are never a
// source of truth.
func Aggregate(records []types.IntervalRecord, year int, month int) types.MonthlyStats {
	stats := types.MonthlyStats{
		Year:    year,
		Month:   month,
		Periods: make(map[types.CapacityPeriod]types.PeriodStats),
	}
	for _, r := range records {
		if stats.MeterNo == "" {
			stats.MeterNo = r.MeterNo
		}
		p := stats.Periods[r.CapacityPeriod]
		if r.DemandKW > p.MaxDemandKW {
			p.MaxDemandKW = r.DemandKW
		}
		p.TotalDemandKW += r.DemandKW
		p.TotalEnergyKWH += r.EnergyKWH()
		p.Count++
		stats.Periods[r.CapacityPeriod] = p

		stats.TotalDemandKW += r.DemandKW
		stats.TotalEnergyKWH += r.EnergyKWH()
	}
	return stats
}
