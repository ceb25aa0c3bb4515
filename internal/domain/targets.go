package domain

// ClassTarget is one asset class target weight. Targets are independent; the
// set need not sum to 1.0.
type ClassTarget struct {
	Class  string  `json:"class" yaml:"class"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// TargetAllocation is the configured policy: ordered class targets plus an
// optional per-position weight ceiling. Target order is configuration order
// and drives the order of emitted rebalance actions.
type TargetAllocation struct {
	Targets           []ClassTarget `json:"targets" yaml:"targets"`
	MaxPositionWeight *float64      `json:"max_position_weight,omitempty" yaml:"max_position_weight,omitempty"`
}

// Target returns the target weight for an asset class, if one is configured.
func (t TargetAllocation) Target(class string) (float64, bool) {
	for _, ct := range t.Targets {
		if ct.Class == class {
			return ct.Weight, true
		}
	}
	return 0, false
}
