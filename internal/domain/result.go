package domain

// HouseholdProfile describes the investor behind a snapshot. Opaque to the
// analysis itself; rendered into reports.
type HouseholdProfile struct {
	RiskTolerance          string `json:"risk_tolerance,omitempty" yaml:"risk_tolerance,omitempty"`
	InvestmentHorizonYears int    `json:"investment_horizon_years,omitempty" yaml:"investment_horizon_years,omitempty"`
	Objective              string `json:"objective,omitempty" yaml:"objective,omitempty"`
}

// DiagnosticsResult is the complete output of one analysis run: allocation,
// concentration, stress tests, projection, and the action plan, all derived
// from a single snapshot. Constructed once and never mutated after return.
type DiagnosticsResult struct {
	Snapshot           *PortfolioSnapshot `json:"snapshot"`
	Allocation         *AllocationResult  `json:"allocation"`
	ConcentrationIndex float64            `json:"concentration_index"`
	StressResults      []StressResult     `json:"stress_results"`
	Projection         []ProjectionPoint  `json:"projection"`
	Actions            []ActionItem       `json:"actions"`
}
