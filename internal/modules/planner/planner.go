// Package planner turns allocation drift and concentration breaches into an
// ordered list of recommended actions.
package planner

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/akritis/vigil/internal/domain"
)

// Service builds rebalancing action plans. It recommends; it never trades.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new planner service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("service", "planner").Logger(),
	}
}

// BuildActionPlan emits actions in a fixed, report-stable order:
//
//  1. Class rebalance actions, one per drifted target, in target order.
//     A drift at or beyond the materiality threshold is emitted; an exactly
//     matching allocation never is.
//  2. Position reductions for weights strictly above the concentration
//     limit, by descending weight, ties broken by symbol.
//  3. Configured guidance notes, unconditionally, in configured order.
func (s *Service) BuildActionPlan(
	alloc *domain.AllocationResult,
	targets domain.TargetAllocation,
	materialityThreshold float64,
	guidance []string,
) []domain.ActionItem {
	actions := make([]domain.ActionItem, 0, len(targets.Targets)+len(guidance))

	// Step 1: Class-level drift against targets
	for _, target := range targets.Targets {
		current := alloc.ClassWeights[target.Class]
		drift := current - target.Weight
		if math.Abs(drift) < materialityThreshold || drift == 0 {
			continue
		}

		amount := math.Abs(drift) * alloc.TotalValue
		kind := domain.ActionIncreaseClass
		verb := "Add"
		if drift > 0 {
			kind = domain.ActionDecreaseClass
			verb = "Trim"
		}

		amountCopy := amount
		actions = append(actions, domain.ActionItem{
			Kind:    kind,
			Subject: target.Class,
			Amount:  &amountCopy,
			Rationale: fmt.Sprintf("%s approximately $%s in %s to move toward %.0f%% target.",
				verb, formatDollars(amount), target.Class, target.Weight*100),
		})
	}

	// Step 2: Positions above the concentration limit
	if targets.MaxPositionWeight != nil && *targets.MaxPositionWeight < 1 {
		limit := *targets.MaxPositionWeight
		over := make([]domain.WeightedPosition, 0)
		for _, pos := range alloc.Positions {
			if pos.Weight > limit {
				over = append(over, pos)
			}
		}
		sort.SliceStable(over, func(i, j int) bool {
			if over[i].Weight != over[j].Weight {
				return over[i].Weight > over[j].Weight
			}
			return over[i].Symbol < over[j].Symbol
		})

		for _, pos := range over {
			// Amount is the excess above the ceiling, the slice to sell off
			amount := (pos.Weight - limit) * alloc.TotalValue
			actions = append(actions, domain.ActionItem{
				Kind:    domain.ActionReducePosition,
				Subject: pos.Symbol,
				Amount:  &amount,
				Rationale: fmt.Sprintf("Reduce %s which is %.1f%% of the portfolio (above %.0f%% limit).",
					pos.Symbol, pos.Weight*100, limit*100),
			})
		}
	}

	// Step 3: Static guidance, always last
	for _, note := range guidance {
		actions = append(actions, domain.ActionItem{
			Kind:      domain.ActionGuidance,
			Rationale: note,
		})
	}

	s.log.Debug().
		Int("actions", len(actions)).
		Float64("threshold", materialityThreshold).
		Msg("Built action plan")

	return actions
}

// formatDollars renders a whole-dollar amount with thousands separators,
// matching the report style ("2,435").
func formatDollars(amount float64) string {
	whole := int64(math.Round(math.Abs(amount)))
	str := fmt.Sprintf("%d", whole)

	var out []byte
	for i, digit := range []byte(str) {
		if i > 0 && (len(str)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digit)
	}
	return string(out)
}
