package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/akritis/vigil/internal/domain"
)

// Policy defaults applied when the file omits a value.
const (
	DefaultMaterialityThreshold = 0.01
	DefaultCoverageThreshold    = 0.8
	DefaultMaxPriceAgeHours     = 48
)

// Policy is the household policy file: who the investor is, where holdings
// come from, what the portfolio should look like, and which scenarios and
// freshness expectations each run checks. One file drives every pipeline.
type Policy struct {
	Household  HouseholdPolicy  `yaml:"household"`
	Holdings   HoldingsPolicy   `yaml:"holdings"`
	Targets    TargetsPolicy    `yaml:"targets"`
	Scenarios  []ScenarioPolicy `yaml:"scenarios"`
	Projection ProjectionPolicy `yaml:"projection"`
	Guidance   []string         `yaml:"guidance"`
	Freshness  FreshnessPolicy  `yaml:"freshness"`

	// StrictScenarios makes a shock key that matches no held class an error
	// instead of being ignored.
	StrictScenarios bool `yaml:"strict_scenarios"`
}

// HouseholdPolicy describes the investor; rendered into report headers.
type HouseholdPolicy struct {
	RiskTolerance          string `yaml:"risk_tolerance"`
	InvestmentHorizonYears int    `yaml:"investment_horizon_years"`
	Objective              string `yaml:"objective"`
}

// HoldingsPolicy selects and configures the holdings provider.
type HoldingsPolicy struct {
	Source        string            `yaml:"source"` // "yaml", "csv", or "alpaca"
	Path          string            `yaml:"path"`
	Classes       map[string]string `yaml:"classes"` // symbol -> asset class, for providers without class data
	FallbackClass string            `yaml:"fallback_class"`
}

// TargetsPolicy holds the desired allocation and the planner's thresholds.
type TargetsPolicy struct {
	MaterialityThreshold float64       `yaml:"materiality_threshold"`
	MaxPositionWeight    *float64      `yaml:"max_position_weight"`
	Classes              []ClassTarget `yaml:"classes"`
}

// ClassTarget is one target row; order in the file is preserved into the
// action plan.
type ClassTarget struct {
	Class  string  `yaml:"class"`
	Weight float64 `yaml:"weight"`
}

// ScenarioPolicy is one stress scenario; order in the file is preserved.
type ScenarioPolicy struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Shocks      map[string]float64 `yaml:"shocks"`
}

// ProjectionPolicy holds growth projection assumptions.
type ProjectionPolicy struct {
	MonthlyContribution   float64            `yaml:"monthly_contribution"`
	HorizonPeriods        int                `yaml:"horizon_periods"`
	AssumedMonthlyReturn  *float64           `yaml:"assumed_monthly_return"`
	ExpectedAnnualReturns map[string]float64 `yaml:"expected_annual_returns"`
}

// FreshnessPolicy holds data quality expectations.
type FreshnessPolicy struct {
	CoverageThreshold float64             `yaml:"coverage_threshold"`
	MaxPriceAgeHours  int                 `yaml:"max_price_age_hours"`
	ExpectedSymbols   map[string][]string `yaml:"expected_symbols"`
}

// LoadPolicy reads and validates the policy file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	policy.applyDefaults()
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	return &policy, nil
}

func (p *Policy) applyDefaults() {
	if p.Targets.MaterialityThreshold == 0 {
		p.Targets.MaterialityThreshold = DefaultMaterialityThreshold
	}
	if p.Freshness.CoverageThreshold == 0 {
		p.Freshness.CoverageThreshold = DefaultCoverageThreshold
	}
	if p.Freshness.MaxPriceAgeHours == 0 {
		p.Freshness.MaxPriceAgeHours = DefaultMaxPriceAgeHours
	}
	if p.Projection.HorizonPeriods == 0 {
		p.Projection.HorizonPeriods = 12
	}
	if p.Holdings.Source == "" {
		p.Holdings.Source = "yaml"
	}
}

// Validate checks every numeric field the engine will consume. Errors name
// the offending key so a policy typo is findable without a debugger.
func (p *Policy) Validate() error {
	if p.Targets.MaterialityThreshold < 0 {
		return fmt.Errorf("targets.materiality_threshold must be >= 0, got %v", p.Targets.MaterialityThreshold)
	}
	if limit := p.Targets.MaxPositionWeight; limit != nil && (*limit <= 0 || *limit > 1) {
		return fmt.Errorf("targets.max_position_weight must be in (0, 1], got %v", *limit)
	}
	for _, target := range p.Targets.Classes {
		if target.Class == "" {
			return fmt.Errorf("targets.classes entry with weight %v is missing a class name", target.Weight)
		}
		if target.Weight < 0 || target.Weight > 1 {
			return fmt.Errorf("targets.classes weight for %q must be in [0, 1], got %v", target.Class, target.Weight)
		}
	}

	for _, scenario := range p.Scenarios {
		if scenario.Name == "" {
			return fmt.Errorf("scenarios entry is missing a name")
		}
		for class, shock := range scenario.Shocks {
			if math.IsNaN(shock) || math.IsInf(shock, 0) {
				return fmt.Errorf("scenarios.%s shock for %q is not a finite number", scenario.Name, class)
			}
		}
	}

	if p.Projection.HorizonPeriods <= 0 {
		return fmt.Errorf("projection.horizon_periods must be > 0, got %d", p.Projection.HorizonPeriods)
	}
	if p.Projection.MonthlyContribution < 0 {
		return fmt.Errorf("projection.monthly_contribution must be >= 0, got %v", p.Projection.MonthlyContribution)
	}

	if p.Freshness.CoverageThreshold < 0 || p.Freshness.CoverageThreshold > 1 {
		return fmt.Errorf("freshness.coverage_threshold must be in [0, 1], got %v", p.Freshness.CoverageThreshold)
	}
	if p.Freshness.MaxPriceAgeHours < 0 {
		return fmt.Errorf("freshness.max_price_age_hours must be >= 0, got %d", p.Freshness.MaxPriceAgeHours)
	}

	switch p.Holdings.Source {
	case "yaml", "csv", "alpaca":
	default:
		return fmt.Errorf("holdings.source must be yaml, csv, or alpaca, got %q", p.Holdings.Source)
	}

	return nil
}

// Profile converts the household section to the domain type.
func (p *Policy) Profile() domain.HouseholdProfile {
	return domain.HouseholdProfile{
		RiskTolerance:          p.Household.RiskTolerance,
		InvestmentHorizonYears: p.Household.InvestmentHorizonYears,
		Objective:              p.Household.Objective,
	}
}

// TargetAllocation converts the targets section to the domain type,
// preserving file order.
func (p *Policy) TargetAllocation() domain.TargetAllocation {
	targets := make([]domain.ClassTarget, 0, len(p.Targets.Classes))
	for _, target := range p.Targets.Classes {
		targets = append(targets, domain.ClassTarget{Class: target.Class, Weight: target.Weight})
	}
	return domain.TargetAllocation{
		Targets:           targets,
		MaxPositionWeight: p.Targets.MaxPositionWeight,
	}
}

// ScenarioDefinitions converts the scenario section to the domain type,
// preserving file order.
func (p *Policy) ScenarioDefinitions() []domain.ScenarioDefinition {
	scenarios := make([]domain.ScenarioDefinition, 0, len(p.Scenarios))
	for _, scenario := range p.Scenarios {
		scenarios = append(scenarios, domain.ScenarioDefinition{
			Name:        scenario.Name,
			Description: scenario.Description,
			Shocks:      scenario.Shocks,
		})
	}
	return scenarios
}

// Assumptions converts the projection section to the domain type.
func (p *Policy) Assumptions() domain.ProjectionAssumptions {
	return domain.ProjectionAssumptions{
		MonthlyContribution:   p.Projection.MonthlyContribution,
		HorizonPeriods:        p.Projection.HorizonPeriods,
		AssumedMonthlyReturn:  p.Projection.AssumedMonthlyReturn,
		ExpectedAnnualReturns: p.Projection.ExpectedAnnualReturns,
	}
}
