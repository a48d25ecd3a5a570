package types

// PeriodStats holds the running aggregates for one capacity period.
type PeriodStats struct {
	MaxDemandKW    float64 `json:"maxDemandKW"`
	TotalDemandKW  float64 `json:"totalDemandKW"`
	TotalEnergyKWH float64 `json:"totalEnergyKWH"`
	Count          int     `json:"count"`
}

// MonthlyStats is a pure fold over a month's series. It is recomputed whenever
// the series changes and is never itself a source of truth.
type MonthlyStats struct {
	MeterNo string `json:"meterNo"`
	Year    int    `json:"year"`
	Month   int    `json:"month"`

	Periods map[CapacityPeriod]PeriodStats `json:"periods"`

	TotalDemandKW  float64 `json:"totalDemandKW"`
	TotalEnergyKWH float64 `json:"totalEnergyKWH"`

	// ResidualKW is the signed per-period difference (in aggregate kW) that
	// remained after reconciliation. A nonzero residual is an expected,
	// reportable outcome when bounds prevented full convergence, not an error.
	ResidualKW map[CapacityPeriod]float64 `json:"residualKW,omitempty"`

	// SkippedPeriods lists periods whose reconciliation was skipped because the
	// series contained no data points for them.
	SkippedPeriods []CapacityPeriod `json:"skippedPeriods,omitempty"`
}

// Period returns the stats for p, zero-valued if the period never occurred.
func (m MonthlyStats) Period(p CapacityPeriod) PeriodStats {
	return m.Periods[p]
}

// Statement is the priced result of a reconciled month under the two-part
// tariff.
type Statement struct {
	MeterNo string `json:"meterNo"`
	Year    int    `json:"year"`
	Month   int    `json:"month"`

	// BillingDate is the date whose season and day type governed the basic
	// charge rate lookup. It is always set explicitly by the caller.
	BillingDate string `json:"billingDate"`

	ContractCapacityKW float64 `json:"contractCapacityKW"`

	BasicCharge  float64 `json:"basicCharge"`
	EnergyCharge float64 `json:"energyCharge"`
	TotalCharge  float64 `json:"totalCharge"`
}
