// Package domain provides core domain models and types.
package domain

import (
	"math"
	"time"
)

// DefaultTotalTolerance is the maximum absolute difference allowed between a
// snapshot's declared total value and the sum of its position values.
const DefaultTotalTolerance = 1e-6

// Position represents a single holding within a snapshot.
// Asset classes are open string tags ("equities", "bonds", ...), not a closed
// enum; new classes require no code change.
type Position struct {
	Symbol     string    `json:"symbol"`
	AssetClass string    `json:"asset_class"`
	Value      float64   `json:"value"`
	PricedAt   time.Time `json:"priced_at,omitempty"`
}

// PortfolioSnapshot is an immutable point-in-time view of portfolio holdings.
// Position order is the order holdings were supplied in and is preserved
// through analysis into reports.
type PortfolioSnapshot struct {
	AsOf       time.Time  `json:"as_of"`
	Positions  []Position `json:"positions"`
	TotalValue float64    `json:"total_value"`
}

// NewSnapshot validates holdings and constructs a snapshot whose total is the
// sum of position values. Returns InvalidSnapshotError or
// DuplicateSymbolError on malformed input.
func NewSnapshot(asOf time.Time, positions []Position) (*PortfolioSnapshot, error) {
	total := 0.0
	for _, p := range positions {
		total += p.Value
	}
	return NewSnapshotWithTotal(asOf, positions, total, DefaultTotalTolerance)
}

// NewSnapshotWithTotal constructs a snapshot against a caller-declared total,
// verifying it matches the position sum within tolerance. Used by providers
// whose upstream reports its own total (brokerage exports).
func NewSnapshotWithTotal(asOf time.Time, positions []Position, totalValue, tolerance float64) (*PortfolioSnapshot, error) {
	if totalValue <= 0 {
		return nil, &InvalidSnapshotError{Reason: "total value must be positive", TotalValue: totalValue}
	}

	seen := make(map[string]struct{}, len(positions))
	sum := 0.0
	for _, p := range positions {
		if p.Value < 0 {
			return nil, &InvalidSnapshotError{Reason: "position " + p.Symbol + " has negative value", TotalValue: totalValue}
		}
		if _, dup := seen[p.Symbol]; dup {
			return nil, &DuplicateSymbolError{Symbol: p.Symbol}
		}
		seen[p.Symbol] = struct{}{}
		sum += p.Value
	}

	if math.Abs(sum-totalValue) > tolerance {
		return nil, &InvalidSnapshotError{Reason: "total value does not match sum of positions", TotalValue: totalValue}
	}

	snap := &PortfolioSnapshot{
		AsOf:       asOf,
		Positions:  make([]Position, len(positions)),
		TotalValue: totalValue,
	}
	copy(snap.Positions, positions)
	return snap, nil
}
