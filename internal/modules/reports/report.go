// Package reports renders a diagnostics run into Markdown, JSON, CSV, HTML,
// and terminal output. All number formatting happens while building the
// Report view model; the templates only lay out pre-formatted strings.
package reports

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Rhymond/go-money"

	"github.com/akritis/vigil/internal/domain"
	"github.com/akritis/vigil/internal/modules/freshness"
)

// topPositionCount caps the Top Positions table.
const topPositionCount = 5

// Inputs collects everything a single run report is built from. Result must
// be non-nil; Profile, Assumptions, and Freshness sections are skipped when
// absent.
type Inputs struct {
	RunID       string
	Pipeline    string
	GeneratedAt time.Time
	Result      *domain.DiagnosticsResult
	Profile     *domain.HouseholdProfile
	Assumptions *domain.ProjectionAssumptions
	Freshness   *freshness.Result
}

// Report is the render-ready view of one diagnostics run.
type Report struct {
	RunID       string
	Pipeline    string
	AsOf        string
	GeneratedAt string

	Profile *ProfileSection

	TotalValue    string
	PositionCount int
	Classes       []ClassRow
	TopPositions  []PositionRow

	Concentration string
	StressTests   []StressRow

	Projection *ProjectionSection

	Actions []ActionRow

	Quality *QualitySection
}

// ProfileSection describes the investor the diagnostics were run for.
type ProfileSection struct {
	RiskTolerance string
	Horizon       string
	Objective     string
}

// ClassRow is one asset class line in the snapshot table.
type ClassRow struct {
	Class  string
	Value  string
	Weight string
}

// PositionRow is one holding line in the top positions table.
type PositionRow struct {
	Symbol string
	Class  string
	Value  string
	Weight string
}

// StressRow is one scenario outcome.
type StressRow struct {
	Name    string
	PnL     string
	Percent string
}

// ProjectionSection holds the growth projection table plus the assumptions
// behind it when they were provided.
type ProjectionSection struct {
	Contribution string
	Horizon      int
	Points       []ProjectionRow
	FinalValue   string
}

// ProjectionRow is one projected month.
type ProjectionRow struct {
	Month int
	Value string
}

// ActionRow is one recommendation line.
type ActionRow struct {
	Kind   string
	Detail string
}

// QualitySection summarizes the freshness check.
type QualitySection struct {
	Healthy  bool
	Coverage []CoverageRow
	Stale    []StaleRow
}

// CoverageRow is one asset class coverage line.
type CoverageRow struct {
	Class    string
	Coverage string
	Symbols  string
	Status   string
	Missing  string
}

// StaleRow is one position with an out-of-date price.
type StaleRow struct {
	Symbol   string
	PricedAt string
	Age      string
}

// wholeDollars renders whole-dollar amounts: $3,185 and -$2,435.
var wholeDollars = money.NewFormatter(0, ".", ",", "$", "$1")

func usd(v float64) string {
	return wholeDollars.Format(int64(math.Round(v)))
}

func signedUSD(v float64) string {
	if v >= 0 {
		return "+" + usd(v)
	}
	return usd(v)
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func signedPct(v float64) string {
	return fmt.Sprintf("%+.1f%%", v*100)
}

// NewReport builds the view model for one run. The result's allocation drives
// the snapshot and positions tables; optional inputs fill in their sections.
func NewReport(in Inputs) *Report {
	result := in.Result
	rep := &Report{
		RunID:       in.RunID,
		Pipeline:    in.Pipeline,
		GeneratedAt: in.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
	}
	if result == nil {
		return rep
	}

	if result.Snapshot != nil {
		rep.AsOf = result.Snapshot.AsOf.Format("2006-01-02")
		rep.PositionCount = len(result.Snapshot.Positions)
	}

	if in.Profile != nil {
		rep.Profile = &ProfileSection{
			RiskTolerance: in.Profile.RiskTolerance,
			Horizon:       fmt.Sprintf("%d years", in.Profile.InvestmentHorizonYears),
			Objective:     in.Profile.Objective,
		}
	}

	if alloc := result.Allocation; alloc != nil {
		rep.TotalValue = usd(alloc.TotalValue)
		for _, class := range alloc.Classes() {
			rep.Classes = append(rep.Classes, ClassRow{
				Class:  class,
				Value:  usd(alloc.ClassWeights[class] * alloc.TotalValue),
				Weight: pct(alloc.ClassWeights[class]),
			})
		}

		positions := make([]domain.WeightedPosition, len(alloc.Positions))
		copy(positions, alloc.Positions)
		sort.Slice(positions, func(i, j int) bool {
			if positions[i].Weight != positions[j].Weight {
				return positions[i].Weight > positions[j].Weight
			}
			return positions[i].Symbol < positions[j].Symbol
		})
		if len(positions) > topPositionCount {
			positions = positions[:topPositionCount]
		}
		for _, pos := range positions {
			rep.TopPositions = append(rep.TopPositions, PositionRow{
				Symbol: pos.Symbol,
				Class:  pos.AssetClass,
				Value:  usd(pos.Value),
				Weight: pct(pos.Weight),
			})
		}
	}

	rep.Concentration = fmt.Sprintf("%.3f", result.ConcentrationIndex)

	for _, stress := range result.StressResults {
		rep.StressTests = append(rep.StressTests, StressRow{
			Name:    stress.Name,
			PnL:     signedUSD(stress.PnLAmount),
			Percent: signedPct(stress.PnLPercent),
		})
	}

	if len(result.Projection) > 0 {
		section := &ProjectionSection{
			Horizon:    len(result.Projection),
			FinalValue: usd(result.Projection[len(result.Projection)-1].ProjectedValue),
		}
		if in.Assumptions != nil {
			section.Contribution = usd(in.Assumptions.MonthlyContribution)
			if in.Assumptions.HorizonPeriods > 0 {
				section.Horizon = in.Assumptions.HorizonPeriods
			}
		}
		for _, point := range result.Projection {
			section.Points = append(section.Points, ProjectionRow{
				Month: point.PeriodIndex,
				Value: usd(point.ProjectedValue),
			})
		}
		rep.Projection = section
	}

	for _, action := range result.Actions {
		rep.Actions = append(rep.Actions, ActionRow{
			Kind:   string(action.Kind),
			Detail: action.Rationale,
		})
	}

	if in.Freshness != nil {
		rep.Quality = newQualitySection(in.Freshness)
	}

	return rep
}

func newQualitySection(fresh *freshness.Result) *QualitySection {
	section := &QualitySection{Healthy: fresh.Healthy}
	for _, cov := range fresh.Coverage {
		row := CoverageRow{
			Class:    cov.Class,
			Coverage: pct(cov.Coverage),
			Symbols:  fmt.Sprintf("%d of %d", cov.Present, cov.Expected),
			Status:   "ok",
			Missing:  strings.Join(cov.MissingSymbols, ", "),
		}
		if cov.BelowThreshold {
			row.Status = "below threshold"
		}
		section.Coverage = append(section.Coverage, row)
	}
	for _, stale := range fresh.StaleSymbols {
		section.Stale = append(section.Stale, StaleRow{
			Symbol:   stale.Symbol,
			PricedAt: stale.PricedAt.Format("2006-01-02 15:04"),
			Age:      fmt.Sprintf("%.0fh", stale.Age.Hours()),
		})
	}
	return section
}
