// Package diagnostics runs the full analysis pipeline against one portfolio
// snapshot: allocation, concentration, stress tests, projection, and the
// rebalancing action plan.
package diagnostics

import (
	"github.com/rs/zerolog"

	"github.com/akritis/vigil/internal/domain"
	"github.com/akritis/vigil/internal/modules/allocation"
	"github.com/akritis/vigil/internal/modules/concentration"
	"github.com/akritis/vigil/internal/modules/planner"
	"github.com/akritis/vigil/internal/modules/projection"
	"github.com/akritis/vigil/internal/modules/scenarios"
)

// Request carries everything one analysis run needs. The snapshot is the only
// mandatory field; empty scenarios, targets, and guidance simply produce empty
// sections in the result.
type Request struct {
	Snapshot             *domain.PortfolioSnapshot
	Scenarios            []domain.ScenarioDefinition
	Targets              domain.TargetAllocation
	MaterialityThreshold float64
	Assumptions          domain.ProjectionAssumptions
	Guidance             []string
}

// Service wires the five analysis services into a single pipeline.
type Service struct {
	allocationService    *allocation.Service
	concentrationService *concentration.Service
	scenariosService     *scenarios.Service
	projectionService    *projection.Service
	plannerService       *planner.Service
	log                  zerolog.Logger
}

// NewService creates the diagnostics pipeline from its component services.
func NewService(
	allocationService *allocation.Service,
	concentrationService *concentration.Service,
	scenariosService *scenarios.Service,
	projectionService *projection.Service,
	plannerService *planner.Service,
	log zerolog.Logger,
) *Service {
	return &Service{
		allocationService:    allocationService,
		concentrationService: concentrationService,
		scenariosService:     scenariosService,
		projectionService:    projectionService,
		plannerService:       plannerService,
		log:                  log.With().Str("service", "diagnostics").Logger(),
	}
}

// Run executes the pipeline end to end. Failures from component services are
// returned unchanged so callers can match the typed errors with errors.As.
func (s *Service) Run(req Request) (*domain.DiagnosticsResult, error) {
	// Step 1: Allocation weights (validates the snapshot)
	alloc, err := s.allocationService.Classify(req.Snapshot)
	if err != nil {
		return nil, err
	}

	// Step 2: Concentration index over position weights
	index := s.concentrationService.Index(alloc)

	// Step 3: Stress tests in scenario order
	stressResults, err := s.scenariosService.RunStressTests(alloc, req.Scenarios)
	if err != nil {
		return nil, err
	}

	// Step 4: Growth projection from the current balance
	points, err := s.projectionService.Project(alloc.TotalValue, alloc.ClassWeights, req.Assumptions)
	if err != nil {
		return nil, err
	}

	// Step 5: Action plan from drift and concentration limits
	actions := s.plannerService.BuildActionPlan(alloc, req.Targets, req.MaterialityThreshold, req.Guidance)

	s.log.Info().
		Int("positions", len(alloc.Positions)).
		Float64("total_value", alloc.TotalValue).
		Float64("concentration_index", index).
		Int("stress_results", len(stressResults)).
		Int("projection_points", len(points)).
		Int("actions", len(actions)).
		Msg("Diagnostics run complete")

	return &domain.DiagnosticsResult{
		Snapshot:           req.Snapshot,
		Allocation:         alloc,
		ConcentrationIndex: index,
		StressResults:      stressResults,
		Projection:         points,
		Actions:            actions,
	}, nil
}
