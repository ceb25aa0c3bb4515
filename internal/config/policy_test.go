package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const fullPolicy = `
household:
  risk_tolerance: balanced
  investment_horizon_years: 25
  objective: capital growth with downside awareness
holdings:
  source: yaml
  path: holdings.yaml
targets:
  materiality_threshold: 0.02
  max_position_weight: 0.25
  classes:
    - class: equities
      weight: 0.45
    - class: bonds
      weight: 0.30
    - class: cash
      weight: 0.15
    - class: gold
      weight: 0.10
scenarios:
  - name: equity_shock
    description: Equity drawdown with flight to quality
    shocks:
      equities: -0.15
      bonds: 0.02
      gold: 0.05
  - name: broad_selloff
    shocks:
      default: -0.10
      cash: 0.0
projection:
  monthly_contribution: 750
  horizon_periods: 12
  expected_annual_returns:
    equities: 0.06
    bonds: 0.025
    cash: 0.015
    gold: 0.03
guidance:
  - Prefer tax-advantaged accounts for bond funds.
freshness:
  coverage_threshold: 0.9
  max_price_age_hours: 24
  expected_symbols:
    equities: [AAPL, VTI]
    bonds: [AGG]
`

func TestLoadPolicy(t *testing.T) {
	policy, err := LoadPolicy(writePolicy(t, fullPolicy))
	require.NoError(t, err)

	assert.Equal(t, "balanced", policy.Household.RiskTolerance)
	assert.Equal(t, 25, policy.Household.InvestmentHorizonYears)
	assert.Equal(t, "yaml", policy.Holdings.Source)

	assert.InDelta(t, 0.02, policy.Targets.MaterialityThreshold, 1e-9)
	require.NotNil(t, policy.Targets.MaxPositionWeight)
	assert.InDelta(t, 0.25, *policy.Targets.MaxPositionWeight, 1e-9)

	require.Len(t, policy.Scenarios, 2)
	assert.Equal(t, "equity_shock", policy.Scenarios[0].Name)
	assert.InDelta(t, -0.15, policy.Scenarios[0].Shocks["equities"], 1e-9)
	assert.InDelta(t, -0.10, policy.Scenarios[1].Shocks["default"], 1e-9)

	assert.InDelta(t, 0.9, policy.Freshness.CoverageThreshold, 1e-9)
	assert.Equal(t, 24, policy.Freshness.MaxPriceAgeHours)
	assert.Equal(t, []string{"AAPL", "VTI"}, policy.Freshness.ExpectedSymbols["equities"])
	assert.False(t, policy.StrictScenarios)
}

func TestLoadPolicyDefaults(t *testing.T) {
	policy, err := LoadPolicy(writePolicy(t, `
targets:
  classes:
    - class: equities
      weight: 0.6
    - class: bonds
      weight: 0.4
`))
	require.NoError(t, err)

	assert.InDelta(t, DefaultMaterialityThreshold, policy.Targets.MaterialityThreshold, 1e-9)
	assert.Nil(t, policy.Targets.MaxPositionWeight)
	assert.InDelta(t, DefaultCoverageThreshold, policy.Freshness.CoverageThreshold, 1e-9)
	assert.Equal(t, DefaultMaxPriceAgeHours, policy.Freshness.MaxPriceAgeHours)
	assert.Equal(t, 12, policy.Projection.HorizonPeriods)
	assert.Equal(t, "yaml", policy.Holdings.Source)
}

func TestLoadPolicyValidation(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		errorHas string
	}{
		{
			name:     "max position weight above 1",
			yaml:     "targets:\n  max_position_weight: 1.5\n",
			errorHas: "max_position_weight",
		},
		{
			name:     "negative materiality threshold",
			yaml:     "targets:\n  materiality_threshold: -0.01\n",
			errorHas: "materiality_threshold",
		},
		{
			name:     "target weight above 1",
			yaml:     "targets:\n  classes:\n    - class: equities\n      weight: 1.2\n",
			errorHas: "equities",
		},
		{
			name:     "target missing class name",
			yaml:     "targets:\n  classes:\n    - weight: 0.5\n",
			errorHas: "missing a class",
		},
		{
			name:     "scenario missing name",
			yaml:     "scenarios:\n  - shocks:\n      equities: -0.1\n",
			errorHas: "missing a name",
		},
		{
			name:     "negative horizon",
			yaml:     "projection:\n  horizon_periods: -3\n",
			errorHas: "horizon_periods",
		},
		{
			name:     "coverage threshold above 1",
			yaml:     "freshness:\n  coverage_threshold: 1.2\n",
			errorHas: "coverage_threshold",
		},
		{
			name:     "unknown holdings source",
			yaml:     "holdings:\n  source: carrier-pigeon\n",
			errorHas: "holdings.source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPolicy(writePolicy(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorHas)
		})
	}
}

func TestLoadPolicyMissingFile(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestPolicyConverters(t *testing.T) {
	policy, err := LoadPolicy(writePolicy(t, fullPolicy))
	require.NoError(t, err)

	targets := policy.TargetAllocation()
	require.Len(t, targets.Targets, 4)
	assert.Equal(t, "equities", targets.Targets[0].Class)
	assert.Equal(t, "gold", targets.Targets[3].Class)

	scenarios := policy.ScenarioDefinitions()
	require.Len(t, scenarios, 2)
	assert.Equal(t, "equity_shock", scenarios[0].Name)
	assert.Equal(t, "broad_selloff", scenarios[1].Name)

	assumptions := policy.Assumptions()
	assert.InDelta(t, 750.0, assumptions.MonthlyContribution, 1e-9)
	assert.Equal(t, 12, assumptions.HorizonPeriods)
	assert.Nil(t, assumptions.AssumedMonthlyReturn)

	profile := policy.Profile()
	assert.Equal(t, "balanced", profile.RiskTolerance)
	assert.Equal(t, 25, profile.InvestmentHorizonYears)
}
