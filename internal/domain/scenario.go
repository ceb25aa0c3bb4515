package domain

// DefaultShockKey is the reserved shock-map key supplying the shock for any
// asset class without an explicit entry.
const DefaultShockKey = "default"

// ScenarioDefinition is a named what-if: fractional return shocks keyed by
// asset class (-0.15 means a 15% decline). Keys are open strings; the
// reserved key "default" covers classes not listed.
type ScenarioDefinition struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description" yaml:"description"`
	Shocks      map[string]float64 `json:"shocks" yaml:"shocks"`
}

// ShockFor resolves the shock applied to an asset class: the explicit entry
// if present, else the default entry, else zero.
func (s ScenarioDefinition) ShockFor(class string) (float64, bool) {
	if shock, ok := s.Shocks[class]; ok {
		return shock, true
	}
	if shock, ok := s.Shocks[DefaultShockKey]; ok {
		return shock, true
	}
	return 0, false
}

// StressResult is the portfolio P&L under one scenario. Results preserve the
// order scenarios were configured in.
type StressResult struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	PnLAmount   float64 `json:"pnl_amount"`
	PnLPercent  float64 `json:"pnl_percent"`
}
