// Package allocation maps snapshot holdings to asset classes and computes
// class-level and position-level portfolio weights.
package allocation

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/akritis/vigil/internal/domain"
)

// Service computes allocation breakdowns. Stateless; one instance serves any
// number of snapshots.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new allocation service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("service", "allocation").Logger(),
	}
}

// Classify derives weights for every position and asset class in the
// snapshot. Weights are recomputed from scratch on every call; nothing is
// cached across snapshots.
//
// Fails with InvalidSnapshotError when the total is not positive or a
// position value is negative, and DuplicateSymbolError on symbol collisions.
func (s *Service) Classify(snap *domain.PortfolioSnapshot) (*domain.AllocationResult, error) {
	// Step 1: Validate the snapshot before any arithmetic
	if snap == nil || snap.TotalValue <= 0 {
		total := 0.0
		if snap != nil {
			total = snap.TotalValue
		}
		return nil, &domain.InvalidSnapshotError{Reason: "total value must be positive", TotalValue: total}
	}

	values := make([]float64, 0, len(snap.Positions))
	seen := make(map[string]struct{}, len(snap.Positions))
	for _, pos := range snap.Positions {
		if pos.Value < 0 {
			return nil, &domain.InvalidSnapshotError{Reason: "position " + pos.Symbol + " has negative value", TotalValue: snap.TotalValue}
		}
		if _, dup := seen[pos.Symbol]; dup {
			return nil, &domain.DuplicateSymbolError{Symbol: pos.Symbol}
		}
		seen[pos.Symbol] = struct{}{}
		values = append(values, pos.Value)
	}

	// Step 2: Compute position weights against the snapshot total
	total := snap.TotalValue
	result := &domain.AllocationResult{
		TotalValue:      total,
		ClassWeights:    make(map[string]float64),
		PositionWeights: make(map[string]float64, len(snap.Positions)),
		Positions:       make([]domain.WeightedPosition, 0, len(snap.Positions)),
	}

	for _, pos := range snap.Positions {
		weight := pos.Value / total
		result.PositionWeights[pos.Symbol] = weight
		result.ClassWeights[pos.AssetClass] += weight
		result.Positions = append(result.Positions, domain.WeightedPosition{
			Symbol:     pos.Symbol,
			AssetClass: pos.AssetClass,
			Value:      pos.Value,
			Weight:     weight,
		})
	}

	s.log.Debug().
		Int("positions", len(result.Positions)).
		Int("asset_classes", len(result.ClassWeights)).
		Float64("total_value", total).
		Float64("position_sum", floats.Sum(values)).
		Msg("Computed allocation weights")

	return result, nil
}
