package types

// Season splits the year into the two tariff seasons.
type Season string

const (
	SeasonSummer    Season = "Summer"
	SeasonNonSummer Season = "Non_Summer"
)

// DayType classifies a calendar day for tariff purposes.
type DayType string

const (
	DayTypeWeekday  DayType = "Weekday"
	DayTypeSaturday DayType = "Saturday"
	DayTypeSunday   DayType = "Sunday"
)

// CapacityPeriod is the time-of-use bucket used for demand limits, per-period
// statistics and the capacity charge. Its clock boundaries differ from
// RatePeriod even though the labels overlap.
type CapacityPeriod string

const (
	CapacityPeriodPeak        CapacityPeriod = "Peak"
	CapacityPeriodHalfPeak    CapacityPeriod = "Half_Peak"
	CapacityPeriodSatHalfPeak CapacityPeriod = "Saturday_Half_Peak"
	CapacityPeriodOffPeak     CapacityPeriod = "Off_Peak"
)

// CapacityPeriods lists every capacity period in a stable order.
var CapacityPeriods = []CapacityPeriod{
	CapacityPeriodPeak,
	CapacityPeriodHalfPeak,
	CapacityPeriodSatHalfPeak,
	CapacityPeriodOffPeak,
}

// RatePeriod is the time-of-use bucket used strictly for energy-rate lookup.
// It is computed from its own boundary table and may disagree with
// CapacityPeriod for the same interval. Do not merge the two.
type RatePeriod string

const (
	RatePeriodPeak        RatePeriod = "Peak"
	RatePeriodHalfPeak    RatePeriod = "Half_Peak"
	RatePeriodSatHalfPeak RatePeriod = "Saturday_Half_Peak"
	RatePeriodOffPeak     RatePeriod = "Off_Peak"
)

// IntervalHours is the fraction of an hour covered by one demand interval.
const IntervalHours = 0.25

// IntervalRecord is one 15-minute demand measurement slot of the synthesized
// series. Records are mutated in place by smoothing and reconciliation and are
// immutable once priced.
type IntervalRecord struct {
	MeterNo string `json:"meterNo"`
	// Date is the ISO calendar date ("2006-01-02").
	Date string `json:"date"`
	// Weekday is 0=Monday .. 6=Sunday.
	Weekday int `json:"weekday"`
	// Time is the interval start on the 15-minute grid ("15:04").
	Time     string  `json:"time"`
	DemandKW float64 `json:"demandKW"`

	CapacityPeriod CapacityPeriod `json:"period"`
	RatePeriod     RatePeriod     `json:"ratePeriod"`
}

// EnergyKWH returns the energy consumed during the interval.
func (r IntervalRecord) EnergyKWH() float64 {
	return r.DemandKW * IntervalHours
}

// IntervalKey identifies a record for upsert purposes. Writing a record with
// an existing key replaces the previous record (last writer wins).
type IntervalKey struct {
	MeterNo string
	Date    string
	Time    string
}

// Key returns the upsert identity of the record.
func (r IntervalRecord) Key() IntervalKey {
	return IntervalKey{MeterNo: r.MeterNo, Date: r.Date, Time: r.Time}
}

// PeakPin mandates an exact demand value at a specific timestamp. Pins are
// re-applied after every processing stage and always win.
type PeakPin struct {
	Date     string  `json:"date"`
	Time     string  `json:"time"`
	DemandKW float64 `json:"demandKW"`
}
