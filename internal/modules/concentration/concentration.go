// Package concentration measures how concentrated a portfolio is across its
// positions.
package concentration

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/akritis/vigil/internal/domain"
)

// Service computes the Herfindahl-Hirschman concentration index.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new concentration service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("service", "concentration").Logger(),
	}
}

// Index returns the sum of squared position weights. Ranges from 1/n for n
// equally weighted positions up to 1.0 for a single position; higher means
// more concentrated.
func (s *Service) Index(alloc *domain.AllocationResult) float64 {
	weights := make([]float64, 0, len(alloc.Positions))
	for _, pos := range alloc.Positions {
		weights = append(weights, pos.Weight)
	}

	index := floats.Dot(weights, weights)

	s.log.Debug().
		Int("positions", len(weights)).
		Float64("index", index).
		Msg("Computed concentration index")

	return index
}
