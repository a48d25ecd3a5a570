// Package generator produces bounded demand values for individual intervals.
// It is the only source of randomness in the pipeline; the random source is
// injected so runs are reproducible.
package generator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/digienergy/simulation/pkg/config"
	"github.com/digienergy/simulation/pkg/types"
)

// ErrBoundsInfeasible indicates the configured ranges, peak value and period
// limit contradict each other so that no non-negative demand value satisfies
// all of them. This is a configuration problem and is never silently reversed.
var ErrBoundsInfeasible = errors.New("demand bounds infeasible")

// Generator draws one demand value per interval within all applicable bounds.
type Generator struct {
	rng *rand.Rand

	base        config.Range
	low         config.Range
	attenuation map[types.CapacityPeriod]float64
}

// New builds a Generator from the simulation config and a seeded random
// source. Callers that need order-independent parallel generation must give
// each worker its own independently seeded source.
func New(cfg *config.Config, rng *rand.Rand) *Generator {
	return &Generator{
		rng:         rng,
		base:        cfg.BaseDemandRange,
		low:         cfg.LowDemandRange,
		attenuation: cfg.SeasonalAdjustment,
	}
}

// Demand returns a demand value for one interval. The value is bounded below
// by zero and above by the day's peak value and the period's demand limit; in
// the low-demand window the configured low range replaces the base range.
// Values are rounded to whole kW like metered demand data.
func (g *Generator) Demand(period types.CapacityPeriod, peakKW, limitKW float64, inLowWindow bool) (float64, error) {
	lower, upper, err := g.bounds(period, peakKW, limitKW, inLowWindow)
	if err != nil {
		return 0, err
	}
	v := lower
	if upper > lower {
		v = lower + g.rng.Float64()*(upper-lower)
	}
	// rounding must not push the value above the peak or the period limit;
	// upper is never negative here, so the floor keeps the zero bound too
	v = math.Round(v)
	if v > upper {
		v = math.Floor(upper)
	}
	return v, nil
}

// bounds computes the [lower, upper] draw range for one interval.
func (g *Generator) bounds(period types.CapacityPeriod, peakKW, limitKW float64, inLowWindow bool) (float64, float64, error) {
	r := g.base
	if inLowWindow {
		r = g.low
	}

	lower, upper := r.Min, r.Max
	if !inLowWindow {
		// attenuate the base range by the period factor; Peak stays closest to
		// the base range and Off_Peak is the most attenuated
		factor, ok := g.attenuation[period]
		if !ok {
			return 0, 0, fmt.Errorf("no seasonal adjustment for period %s", period)
		}
		lower *= factor
		upper *= factor
	}

	// each endpoint is independently capped by the mandated peak and the
	// period's demand limit
	upper = math.Min(upper, math.Min(peakKW, limitKW))
	lower = math.Min(lower, math.Min(peakKW, limitKW))

	// a crossed range collapses onto its lower end
	if lower > upper {
		lower = upper
	}

	if upper < 0 {
		return 0, 0, fmt.Errorf("%w: period %s peak=%v limit=%v gives upper bound %v",
			ErrBoundsInfeasible, period, peakKW, limitKW, upper)
	}
	if lower < 0 {
		lower = 0
	}
	return lower, upper, nil
}
