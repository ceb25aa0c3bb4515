package domain

import "sort"

// WeightedPosition pairs a holding with its computed portfolio weight.
type WeightedPosition struct {
	Symbol     string  `json:"symbol"`
	AssetClass string  `json:"asset_class"`
	Value      float64 `json:"value"`
	Weight     float64 `json:"weight"`
}

// AllocationResult holds class-level and position-level weights derived from
// one snapshot. Recomputed on every analysis; never cached across snapshots.
// Treat as read-only after construction.
type AllocationResult struct {
	TotalValue      float64            `json:"total_value"`
	ClassWeights    map[string]float64 `json:"class_weights"`
	PositionWeights map[string]float64 `json:"position_weights"`
	Positions       []WeightedPosition `json:"positions"`
}

// Classes returns asset classes in alphabetical order, for deterministic
// rendering and iteration.
func (r *AllocationResult) Classes() []string {
	classes := make([]string, 0, len(r.ClassWeights))
	for class := range r.ClassWeights {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}

// TopPositions returns up to n positions by descending value, ties broken by
// symbol ascending.
func (r *AllocationResult) TopPositions(n int) []WeightedPosition {
	top := make([]WeightedPosition, len(r.Positions))
	copy(top, r.Positions)
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].Value != top[j].Value {
			return top[i].Value > top[j].Value
		}
		return top[i].Symbol < top[j].Symbol
	})
	if n < len(top) {
		top = top[:n]
	}
	return top
}
