package domain

import "fmt"

// InvalidSnapshotError reports a snapshot that cannot be analyzed: a
// non-positive total, a negative position value, or a total that disagrees
// with the position sum.
type InvalidSnapshotError struct {
	Reason     string
	TotalValue float64
}

func (e *InvalidSnapshotError) Error() string {
	return fmt.Sprintf("invalid snapshot: %s (total %.2f)", e.Reason, e.TotalValue)
}

// DuplicateSymbolError reports a symbol appearing more than once in a snapshot.
type DuplicateSymbolError struct {
	Symbol string
}

func (e *DuplicateSymbolError) Error() string {
	return fmt.Sprintf("duplicate symbol in snapshot: %s", e.Symbol)
}

// InvalidHorizonError reports a non-positive projection horizon.
type InvalidHorizonError struct {
	Horizon int
}

func (e *InvalidHorizonError) Error() string {
	return fmt.Sprintf("projection horizon must be positive, got %d", e.Horizon)
}

// UnknownAssetClassError reports a portfolio asset class with no shock entry
// under the strict scenario matching policy.
type UnknownAssetClassError struct {
	Scenario string
	Class    string
}

func (e *UnknownAssetClassError) Error() string {
	return fmt.Sprintf("scenario %q has no shock for asset class %q", e.Scenario, e.Class)
}
