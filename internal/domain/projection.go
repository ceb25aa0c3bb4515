package domain

// ProjectionPoint is one step of a forward value path. PeriodIndex runs from
// 1 to the configured horizon; the starting value is not emitted.
type ProjectionPoint struct {
	PeriodIndex    int     `json:"period_index"`
	ProjectedValue float64 `json:"projected_value"`
}

// ProjectionAssumptions drives the growth projection. The return assumption
// comes in one of two forms: an explicit flat monthly return, or per-class
// expected annual returns blended over the snapshot's class weights. The
// explicit form wins when both are set.
type ProjectionAssumptions struct {
	MonthlyContribution   float64            `json:"monthly_contribution" yaml:"monthly_contribution"`
	HorizonPeriods        int                `json:"horizon_periods" yaml:"horizon_periods"`
	AssumedMonthlyReturn  *float64           `json:"assumed_monthly_return,omitempty" yaml:"assumed_monthly_return,omitempty"`
	ExpectedAnnualReturns map[string]float64 `json:"expected_annual_returns,omitempty" yaml:"expected_annual_returns,omitempty"`
}
