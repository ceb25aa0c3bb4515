// Package projection simulates forward portfolio value under contribution
// and return assumptions.
package projection

import (
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/akritis/vigil/internal/domain"
)

// Service builds deterministic growth projections. A single path, no
// randomness.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new projection service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("service", "projection").Logger(),
	}
}

// BlendedMonthlyReturn derives a flat monthly return from per-class expected
// annual returns, weighted by the portfolio's class weights. Classes missing
// from the return map contribute zero. The class weights are assumed to sum
// to 1.
func BlendedMonthlyReturn(classWeights, expectedAnnualReturns map[string]float64) float64 {
	if len(classWeights) == 0 {
		return 0
	}

	classes := make([]string, 0, len(classWeights))
	for class := range classWeights {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	monthly := make([]float64, len(classes))
	weights := make([]float64, len(classes))
	for i, class := range classes {
		monthly[i] = expectedAnnualReturns[class] / 12
		weights[i] = classWeights[class]
	}

	return stat.Mean(monthly, weights)
}

// Project applies value[t] = value[t-1] * (1 + r) + contribution for
// t = 1..horizon, starting from totalValue. The starting value itself is not
// part of the output. Fails with InvalidHorizonError when the horizon is not
// positive.
//
// The monthly return r is the explicit override when set, otherwise the
// blend of the assumptions' expected annual returns over classWeights.
func (s *Service) Project(totalValue float64, classWeights map[string]float64, assumptions domain.ProjectionAssumptions) ([]domain.ProjectionPoint, error) {
	if assumptions.HorizonPeriods <= 0 {
		return nil, &domain.InvalidHorizonError{Horizon: assumptions.HorizonPeriods}
	}

	var monthlyReturn float64
	if assumptions.AssumedMonthlyReturn != nil {
		monthlyReturn = *assumptions.AssumedMonthlyReturn
	} else {
		monthlyReturn = BlendedMonthlyReturn(classWeights, assumptions.ExpectedAnnualReturns)
	}

	points := make([]domain.ProjectionPoint, 0, assumptions.HorizonPeriods)
	value := totalValue
	for period := 1; period <= assumptions.HorizonPeriods; period++ {
		value = value*(1+monthlyReturn) + assumptions.MonthlyContribution
		points = append(points, domain.ProjectionPoint{
			PeriodIndex:    period,
			ProjectedValue: value,
		})
	}

	s.log.Debug().
		Int("horizon", assumptions.HorizonPeriods).
		Float64("monthly_return", monthlyReturn).
		Float64("contribution", assumptions.MonthlyContribution).
		Float64("final_value", value).
		Msg("Built growth projection")

	return points, nil
}
