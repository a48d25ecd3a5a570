// Package reconcile nudges a generated month toward externally supplied
// reference energy totals. It performs a single corrective pass per call:
// residual differences left by clamping are reported as data, never as
// errors.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/digienergy/simulation/pkg/log"
	"github.com/digienergy/simulation/pkg/series"
	"github.com/digienergy/simulation/pkg/types"
)

// Result reports the outcome of one reconciliation pass.
type Result struct {
	// Stats is the aggregate recomputed after the pass, with ResidualKW and
	// SkippedPeriods filled in.
	Stats types.MonthlyStats
}

// Apply adjusts the series in place so its per-period aggregate demand moves
// toward the reference totals, then re-applies pins and re-aggregates.
//
// referenceKWH is the externally known monthly energy per capacity period in
// kWh; it is converted to an aggregate-kW basis (divided by the 0.25-hour
// interval) before differencing. Every adjusted value is clamped into
// [0, limit[period]], so exact convergence is not guaranteed when bounds are
// tight; the caller reads the residuals from the returned stats.
func Apply(
	ctx context.Context,
	records []types.IntervalRecord,
	referenceKWH map[types.CapacityPeriod]float64,
	limits map[types.CapacityPeriod]float64,
	pins []types.PeakPin,
	year int,
	month int,
) Result {
	before := series.Aggregate(records, year, month)

	// per-period correction in kW per data point
	corrections := make(map[types.CapacityPeriod]float64, len(referenceKWH))
	var skipped []types.CapacityPeriod
	for period, refKWH := range referenceKWH {
		refKW := refKWH / types.IntervalHours
		p := before.Period(period)
		difference := p.TotalDemandKW - refKW
		if p.Count == 0 {
			// a period with reference data but no points cannot be corrected;
			// guard the division instead of producing NaN
			if difference != 0 {
				skipped = append(skipped, period)
				log.Ctx(ctx).WarnContext(
					ctx,
					"skipping reconciliation for period with no data points",
					slog.String("period", string(period)),
					slog.Float64("differenceKW", difference),
				)
			}
			continue
		}
		corrections[period] = difference / float64(p.Count)
		log.Ctx(ctx).DebugContext(
			ctx,
			"computed per-point correction",
			slog.String("period", string(period)),
			slog.Float64("differenceKW", difference),
			slog.Int("count", p.Count),
			slog.Float64("perPointKW", corrections[period]),
		)
	}

	for i := range records {
		// periods without reference data still get clamped here: smoothing
		// averages across period boundaries within a day and can lift a record
		// above its own period's limit
		v := records[i].DemandKW - corrections[records[i].CapacityPeriod]
		if v < 0 {
			v = 0
		}
		if limit, ok := limits[records[i].CapacityPeriod]; ok && v > limit {
			v = limit
		}
		records[i].DemandKW = v
	}

	// pinning always wins over reconciliation
	series.ApplyPins(records, pins)

	after := series.Aggregate(records, year, month)
	after.SkippedPeriods = skipped
	after.ResidualKW = make(map[types.CapacityPeriod]float64, len(referenceKWH))
	for period, refKWH := range referenceKWH {
		refKW := refKWH / types.IntervalHours
		residual := after.Period(period).TotalDemandKW - refKW
		after.ResidualKW[period] = residual
		log.Ctx(ctx).DebugContext(
			ctx,
			"reconciliation residual",
			slog.String("period", string(period)),
			slog.Float64("residualKW", residual),
		)
	}

	return Result{Stats: after}
}
