// Package scenarios applies configured shock scenarios to a portfolio
// allocation and computes the resulting profit or loss.
package scenarios

import (
	"github.com/rs/zerolog"

	"github.com/akritis/vigil/internal/domain"
)

// Service evaluates stress scenarios. Each scenario is independent of the
// others; results preserve the configured scenario order.
type Service struct {
	strict bool
	log    zerolog.Logger
}

// NewService creates a new scenario service. With strict enabled, every
// portfolio asset class must have a shock entry (an explicit one or the
// scenario's "default"); otherwise unmatched classes contribute zero P&L.
func NewService(strict bool, log zerolog.Logger) *Service {
	return &Service{
		strict: strict,
		log:    log.With().Str("service", "scenarios").Logger(),
	}
}

// RunStressTests computes portfolio P&L under each scenario. For every asset
// class: class_pnl = total_value * class_weight * shock. Classes without a
// shock entry fall back to the scenario's "default" entry, then to zero.
//
// Under the strict policy, a portfolio class with no matching entry fails the
// run with UnknownAssetClassError instead.
func (s *Service) RunStressTests(alloc *domain.AllocationResult, scenarios []domain.ScenarioDefinition) ([]domain.StressResult, error) {
	results := make([]domain.StressResult, 0, len(scenarios))
	classes := alloc.Classes()

	for _, scenario := range scenarios {
		pnl := 0.0
		for _, class := range classes {
			shock, matched := scenario.ShockFor(class)
			if !matched && s.strict {
				return nil, &domain.UnknownAssetClassError{Scenario: scenario.Name, Class: class}
			}
			pnl += alloc.TotalValue * alloc.ClassWeights[class] * shock
		}

		pnlPercent := 0.0
		if alloc.TotalValue != 0 {
			pnlPercent = pnl / alloc.TotalValue
		}

		results = append(results, domain.StressResult{
			Name:        scenario.Name,
			Description: scenario.Description,
			PnLAmount:   pnl,
			PnLPercent:  pnlPercent,
		})
	}

	s.log.Debug().
		Int("scenarios", len(results)).
		Bool("strict", s.strict).
		Msg("Ran stress tests")

	return results, nil
}
