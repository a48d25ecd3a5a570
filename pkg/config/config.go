// Package config loads and validates the simulation configuration. The
// configuration is a typed, explicitly-passed record: every component receives
// the parts it needs and nothing reads process-wide state.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/digienergy/simulation/pkg/schedule"
	"github.com/digienergy/simulation/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// ErrMissingKey indicates a required configuration key is absent. Loading
// never proceeds with defaults for required keys.
var ErrMissingKey = errors.New("missing configuration key")

// DefaultSmoothingWindow is the moving-average window used when the config
// does not specify one.
const DefaultSmoothingWindow = 5

// Range is an inclusive numeric range in kW.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Config is the full simulation configuration, decoded from a JSON file.
type Config struct {
	MeterNo string `json:"meterNo"`

	// BaseDemandRange bounds generated demand outside the low-demand window,
	// before per-period attenuation and clamping.
	BaseDemandRange Range `json:"baseDemandRange"`

	// DaysInMonth maps month number (1-12) to the number of days to simulate.
	DaysInMonth map[int]int `json:"daysInMonth"`

	// SeasonalAdjustment attenuates the base range per capacity period. Peak
	// should be closest to 1.0 and Off_Peak the most attenuated.
	SeasonalAdjustment map[types.CapacityPeriod]float64 `json:"seasonalAdjustment"`

	// BasicChargeRates is keyed [season][rate key] where the rate key is one of
	// Contract, Half_Peak, Sat_Half_Peak, Off_Peak.
	BasicChargeRates map[types.Season]map[string]float64 `json:"basicChargeRates"`

	// EnergyRates is keyed [season][day type][rate period].
	EnergyRates map[types.Season]map[types.DayType]map[types.RatePeriod]float64 `json:"energyRates"`

	// DemandLimits is keyed [month][capacity period], in kW. No generated or
	// reconciled demand value may exceed its period's limit.
	DemandLimits map[int]map[types.CapacityPeriod]float64 `json:"demandLimits"`

	// ReferenceEnergyKWH is keyed [month][capacity period]: the externally
	// known monthly energy totals the simulated series is reconciled against.
	ReferenceEnergyKWH map[int]map[types.CapacityPeriod]float64 `json:"referenceEnergyKWH"`

	// Low-demand window: between LowDemandStart and LowDemandEnd (inclusive)
	// generation draws from LowDemandRange instead of the base range.
	LowDemandStart string `json:"lowDemandStart"`
	LowDemandEnd   string `json:"lowDemandEnd"`
	LowDemandRange Range  `json:"lowDemandRange"`

	// PeakValues maps "2006-01-02 15:04" timestamps to mandated peak demand
	// values in kW. Each entry both pins the exact value at that timestamp and
	// caps generation for the rest of that day.
	PeakValues map[string]float64 `json:"peakValues"`

	ContractCapacityKW float64 `json:"contractCapacityKW"`

	// SmoothingWindow is the centered moving-average window. Optional; must be
	// odd when set. Defaults to DefaultSmoothingWindow.
	SmoothingWindow int `json:"smoothingWindow"`

	// Seed for the demand generator's random source. Optional; a zero seed
	// makes runs non-reproducible (seeded from the clock).
	Seed int64 `json:"seed"`
}

// Load reads and validates a configuration file.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	var c Config
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate fails fast on any missing or malformed required key.
func (c *Config) Validate() error {
	if c.MeterNo == "" {
		return fmt.Errorf("%w: meterNo", ErrMissingKey)
	}
	if c.BaseDemandRange == (Range{}) {
		return fmt.Errorf("%w: baseDemandRange", ErrMissingKey)
	}
	if c.BaseDemandRange.Max < c.BaseDemandRange.Min || c.BaseDemandRange.Min < 0 {
		return fmt.Errorf("baseDemandRange [%v, %v] is not a valid range", c.BaseDemandRange.Min, c.BaseDemandRange.Max)
	}
	if len(c.DaysInMonth) == 0 {
		return fmt.Errorf("%w: daysInMonth", ErrMissingKey)
	}
	for m, d := range c.DaysInMonth {
		if m < 1 || m > 12 || d < 1 || d > 31 {
			return fmt.Errorf("daysInMonth has invalid entry %d: %d", m, d)
		}
	}
	if len(c.SeasonalAdjustment) == 0 {
		return fmt.Errorf("%w: seasonalAdjustment", ErrMissingKey)
	}
	for _, p := range types.CapacityPeriods {
		if _, ok := c.SeasonalAdjustment[p]; !ok {
			return fmt.Errorf("%w: seasonalAdjustment[%s]", ErrMissingKey, p)
		}
	}
	if len(c.BasicChargeRates) == 0 {
		return fmt.Errorf("%w: basicChargeRates", ErrMissingKey)
	}
	if len(c.EnergyRates) == 0 {
		return fmt.Errorf("%w: energyRates", ErrMissingKey)
	}
	if len(c.DemandLimits) == 0 {
		return fmt.Errorf("%w: demandLimits", ErrMissingKey)
	}
	if len(c.ReferenceEnergyKWH) == 0 {
		return fmt.Errorf("%w: referenceEnergyKWH", ErrMissingKey)
	}
	if c.LowDemandStart == "" {
		return fmt.Errorf("%w: lowDemandStart", ErrMissingKey)
	}
	if c.LowDemandEnd == "" {
		return fmt.Errorf("%w: lowDemandEnd", ErrMissingKey)
	}
	if _, err := schedule.NewClockRange(c.LowDemandStart, c.LowDemandEnd); err != nil {
		return fmt.Errorf("invalid low-demand window: %w", err)
	}
	if c.LowDemandRange == (Range{}) {
		return fmt.Errorf("%w: lowDemandRange", ErrMissingKey)
	}
	if len(c.PeakValues) == 0 {
		return fmt.Errorf("%w: peakValues", ErrMissingKey)
	}
	for ts := range c.PeakValues {
		if _, err := time.Parse("2006-01-02 15:04", ts); err != nil {
			return fmt.Errorf("peakValues has invalid timestamp %q: %w", ts, err)
		}
	}
	if c.ContractCapacityKW <= 0 {
		return fmt.Errorf("%w: contractCapacityKW", ErrMissingKey)
	}
	if c.SmoothingWindow == 0 {
		c.SmoothingWindow = DefaultSmoothingWindow
	}
	if c.SmoothingWindow%2 == 0 {
		return fmt.Errorf("smoothingWindow must be odd, got %d", c.SmoothingWindow)
	}
	return nil
}

// LowDemandWindow returns the parsed low-demand clock window. Validate must
// have succeeded first.
func (c *Config) LowDemandWindow() schedule.ClockRange {
	r, err := schedule.NewClockRange(c.LowDemandStart, c.LowDemandEnd)
	if err != nil {
		panic(fmt.Errorf("low-demand window invalid after validation: %w", err))
	}
	return r
}

// PinsForMonth returns the mandated peak pins that fall in the given month,
// sorted by date and time.
func (c *Config) PinsForMonth(year int, month time.Month) []types.PeakPin {
	var pins []types.PeakPin
	for ts, value := range c.PeakValues {
		t, err := time.Parse("2006-01-02 15:04", ts)
		if err != nil {
			// validated at load
			continue
		}
		if t.Year() != year || t.Month() != month {
			continue
		}
		pins = append(pins, types.PeakPin{
			Date:     t.Format("2006-01-02"),
			Time:     t.Format("15:04"),
			DemandKW: value,
		})
	}
	sortPins(pins)
	return pins
}

// Months returns the (year, month) pairs that have at least one configured
// peak pin, in chronological order. These are the months the simulator runs.
func (c *Config) Months() []time.Time {
	seen := make(map[time.Time]bool)
	var months []time.Time
	for ts := range c.PeakValues {
		t, err := time.Parse("2006-01-02 15:04", ts)
		if err != nil {
			continue
		}
		m := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		if !seen[m] {
			seen[m] = true
			months = append(months, m)
		}
	}
	sortMonths(months)
	return months
}

func sortPins(pins []types.PeakPin) {
	sort.Slice(pins, func(i, j int) bool {
		if pins[i].Date != pins[j].Date {
			return pins[i].Date < pins[j].Date
		}
		return pins[i].Time < pins[j].Time
	})
}

func sortMonths(months []time.Time) {
	sort.Slice(months, func(i, j int) bool {
		return months[i].Before(months[j])
	})
}

// Configured registers the config flag and loads the file once flags are
// parsed. A missing or invalid file is fatal.
func Configured() *Config {
	path := lflag.RequiredString("config", "Path to the simulation config JSON file")

	c := &Config{}
	lflag.Do(func() {
		loaded, err := Load(*path)
		if err != nil {
			panic(fmt.Sprintf("config load failed: %v", err))
		}
		*c = loaded
	})
	return c
}
