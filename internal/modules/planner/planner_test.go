package planner

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akritis/vigil/internal/domain"
)

func floatPtr(v float64) *float64 { return &v }

// referenceAllocation mirrors the $32,700 household portfolio.
func referenceAllocation() *domain.AllocationResult {
	total := 32700.0
	positions := []domain.WeightedPosition{
		{Symbol: "AAPL", AssetClass: "equities", Value: 9500, Weight: 9500 / total},
		{Symbol: "VTI", AssetClass: "equities", Value: 8400, Weight: 8400 / total},
		{Symbol: "AGG", AssetClass: "bonds", Value: 8000, Weight: 8000 / total},
		{Symbol: "CASH", AssetClass: "cash", Value: 5000, Weight: 5000 / total},
		{Symbol: "GLD", AssetClass: "gold", Value: 1800, Weight: 1800 / total},
	}
	alloc := &domain.AllocationResult{
		TotalValue:      total,
		ClassWeights:    map[string]float64{},
		PositionWeights: map[string]float64{},
		Positions:       positions,
	}
	for _, pos := range positions {
		alloc.ClassWeights[pos.AssetClass] += pos.Weight
		alloc.PositionWeights[pos.Symbol] = pos.Weight
	}
	return alloc
}

func TestBuildActionPlanClassDrift(t *testing.T) {
	svc := NewService(zerolog.Nop())

	targets := domain.TargetAllocation{
		Targets: []domain.ClassTarget{
			{Class: "equities", Weight: 0.45},
			{Class: "bonds", Weight: 0.30},
			{Class: "cash", Weight: 0.15},
			{Class: "gold", Weight: 0.10},
		},
	}

	actions := svc.BuildActionPlan(referenceAllocation(), targets, 0.01, nil)
	require.Len(t, actions, 3, "cash is within threshold of its target")

	// Target order is preserved: equities, bonds, gold
	assert.Equal(t, domain.ActionDecreaseClass, actions[0].Kind)
	assert.Equal(t, "equities", actions[0].Subject)
	require.NotNil(t, actions[0].Amount)
	assert.InDelta(t, 3185.0, *actions[0].Amount, 0.01)
	assert.Equal(t, "Trim approximately $3,185 in equities to move toward 45% target.", actions[0].Rationale)

	assert.Equal(t, domain.ActionIncreaseClass, actions[1].Kind)
	assert.Equal(t, "bonds", actions[1].Subject)
	assert.InDelta(t, 1810.0, *actions[1].Amount, 0.01)
	assert.Equal(t, "Add approximately $1,810 in bonds to move toward 30% target.", actions[1].Rationale)

	assert.Equal(t, domain.ActionIncreaseClass, actions[2].Kind)
	assert.Equal(t, "gold", actions[2].Subject)
	assert.InDelta(t, 1470.0, *actions[2].Amount, 0.01)
	assert.Equal(t, "Add approximately $1,470 in gold to move toward 10% target.", actions[2].Rationale)
}

func TestBuildActionPlanNoDriftNoActions(t *testing.T) {
	svc := NewService(zerolog.Nop())

	alloc := &domain.AllocationResult{
		TotalValue: 1000,
		ClassWeights: map[string]float64{
			"equities": 0.75,
			"bonds":    0.25,
		},
	}
	targets := domain.TargetAllocation{
		Targets: []domain.ClassTarget{
			{Class: "equities", Weight: 0.75},
			{Class: "bonds", Weight: 0.25},
		},
	}

	// Exact match emits nothing, even with a zero threshold
	assert.Empty(t, svc.BuildActionPlan(alloc, targets, 0.01, nil))
	assert.Empty(t, svc.BuildActionPlan(alloc, targets, 0, nil))
}

func TestBuildActionPlanThresholdBoundary(t *testing.T) {
	svc := NewService(zerolog.Nop())

	// 0.75 and 0.25 are exact in binary, so drift is exactly 0.25
	alloc := &domain.AllocationResult{
		TotalValue: 1000,
		ClassWeights: map[string]float64{
			"equities": 0.75,
			"bonds":    0.25,
		},
	}
	targets := domain.TargetAllocation{
		Targets: []domain.ClassTarget{
			{Class: "equities", Weight: 0.50},
			{Class: "bonds", Weight: 0.50},
		},
	}

	atBoundary := svc.BuildActionPlan(alloc, targets, 0.25, nil)
	require.Len(t, atBoundary, 2, "drift exactly at the threshold is emitted")
	assert.Equal(t, domain.ActionDecreaseClass, atBoundary[0].Kind)
	assert.Equal(t, domain.ActionIncreaseClass, atBoundary[1].Kind)

	aboveBoundary := svc.BuildActionPlan(alloc, targets, 0.26, nil)
	assert.Empty(t, aboveBoundary, "drift below the threshold is not emitted")
}

func TestBuildActionPlanMissingClassTreatedAsZero(t *testing.T) {
	svc := NewService(zerolog.Nop())

	alloc := &domain.AllocationResult{
		TotalValue:   10000,
		ClassWeights: map[string]float64{"equities": 1.0},
	}
	targets := domain.TargetAllocation{
		Targets: []domain.ClassTarget{
			{Class: "equities", Weight: 0.80},
			{Class: "bonds", Weight: 0.20},
		},
	}

	actions := svc.BuildActionPlan(alloc, targets, 0.01, nil)
	require.Len(t, actions, 2)

	assert.Equal(t, "bonds", actions[1].Subject)
	assert.Equal(t, domain.ActionIncreaseClass, actions[1].Kind)
	assert.InDelta(t, 2000.0, *actions[1].Amount, 1e-9)
}

func TestBuildActionPlanConcentration(t *testing.T) {
	svc := NewService(zerolog.Nop())

	targets := domain.TargetAllocation{
		MaxPositionWeight: floatPtr(0.25),
	}

	actions := svc.BuildActionPlan(referenceAllocation(), targets, 0.01, nil)
	require.Len(t, actions, 2)

	// Descending weight: AAPL (29.1%) then VTI (25.7%)
	assert.Equal(t, domain.ActionReducePosition, actions[0].Kind)
	assert.Equal(t, "AAPL", actions[0].Subject)
	assert.InDelta(t, 1325.0, *actions[0].Amount, 0.01)
	assert.Equal(t, "Reduce AAPL which is 29.1% of the portfolio (above 25% limit).", actions[0].Rationale)

	assert.Equal(t, "VTI", actions[1].Subject)
	assert.InDelta(t, 225.0, *actions[1].Amount, 0.01)
	assert.Equal(t, "Reduce VTI which is 25.7% of the portfolio (above 25% limit).", actions[1].Rationale)
}

func TestBuildActionPlanConcentrationTieBreak(t *testing.T) {
	svc := NewService(zerolog.Nop())

	alloc := &domain.AllocationResult{
		TotalValue: 1000,
		Positions: []domain.WeightedPosition{
			{Symbol: "ZED", AssetClass: "equities", Value: 400, Weight: 0.4},
			{Symbol: "ACK", AssetClass: "equities", Value: 400, Weight: 0.4},
			{Symbol: "MID", AssetClass: "equities", Value: 200, Weight: 0.2},
		},
	}
	targets := domain.TargetAllocation{MaxPositionWeight: floatPtr(0.30)}

	actions := svc.BuildActionPlan(alloc, targets, 0.01, nil)
	require.Len(t, actions, 2)
	assert.Equal(t, "ACK", actions[0].Subject, "equal weights break ties by symbol")
	assert.Equal(t, "ZED", actions[1].Subject)
}

func TestBuildActionPlanNoLimitDisablesConcentration(t *testing.T) {
	svc := NewService(zerolog.Nop())

	actions := svc.BuildActionPlan(referenceAllocation(), domain.TargetAllocation{}, 0.01, nil)
	assert.Empty(t, actions)
}

func TestBuildActionPlanGuidanceAlwaysLast(t *testing.T) {
	svc := NewService(zerolog.Nop())

	targets := domain.TargetAllocation{
		Targets: []domain.ClassTarget{
			{Class: "equities", Weight: 0.45},
		},
		MaxPositionWeight: floatPtr(0.25),
	}
	guidance := []string{
		"Prefer tax-advantaged accounts for bond funds.",
		"Favor low-cost index funds when adding exposure.",
	}

	actions := svc.BuildActionPlan(referenceAllocation(), targets, 0.01, guidance)
	require.Len(t, actions, 5)

	assert.Equal(t, domain.ActionDecreaseClass, actions[0].Kind)
	assert.Equal(t, domain.ActionReducePosition, actions[1].Kind)
	assert.Equal(t, domain.ActionReducePosition, actions[2].Kind)

	assert.Equal(t, domain.ActionGuidance, actions[3].Kind)
	assert.Nil(t, actions[3].Amount)
	assert.Equal(t, guidance[0], actions[3].Rationale)
	assert.Equal(t, guidance[1], actions[4].Rationale)
}

func TestFormatDollars(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{amount: 0, expected: "0"},
		{amount: 950, expected: "950"},
		{amount: 2435.4, expected: "2,435"},
		{amount: 43310.03, expected: "43,310"},
		{amount: 1234567.89, expected: "1,234,568"},
		{amount: -1470, expected: "1,470"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatDollars(tt.amount), "amount %v", tt.amount)
	}
}
