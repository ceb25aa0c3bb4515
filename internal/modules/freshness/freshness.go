// Package freshness checks a snapshot's data quality against policy
// expectations: are the symbols we expect per asset class actually present,
// and are the prices recent enough to trust.
package freshness

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/akritis/vigil/internal/domain"
)

// Expectations describes what a healthy snapshot looks like.
type Expectations struct {
	// ExpectedSymbols lists the symbols each asset class should contain.
	ExpectedSymbols map[string][]string

	// CoverageThreshold is the minimum present/expected ratio per class.
	CoverageThreshold float64

	// MaxPriceAge is how old a position's price may be before it counts as
	// stale. Zero disables the staleness check.
	MaxPriceAge time.Duration
}

// ClassCoverage is the coverage report for one expected asset class.
type ClassCoverage struct {
	Class          string   `json:"class"`
	Expected       int      `json:"expected"`
	Present        int      `json:"present"`
	Coverage       float64  `json:"coverage"`
	BelowThreshold bool     `json:"below_threshold"`
	MissingSymbols []string `json:"missing_symbols,omitempty"`
}

// StaleSymbol is one position whose price is older than allowed.
type StaleSymbol struct {
	Symbol   string        `json:"symbol"`
	PricedAt time.Time     `json:"priced_at"`
	Age      time.Duration `json:"age"`
}

// Result is the full data quality report for one snapshot.
type Result struct {
	AsOf         time.Time       `json:"as_of"`
	Coverage     []ClassCoverage `json:"coverage"`
	StaleSymbols []StaleSymbol   `json:"stale_symbols,omitempty"`
	Healthy      bool            `json:"healthy"`
}

// Service runs freshness checks. Pure given a snapshot, expectations, and a
// reference time.
type Service struct {
	log zerolog.Logger
}

// NewService creates a freshness checker.
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("service", "freshness").Logger(),
	}
}

// Check evaluates coverage and staleness. Coverage rows are ordered by class
// name; classes with nothing expected report coverage 1.0 and are omitted.
func (s *Service) Check(snap *domain.PortfolioSnapshot, expectations Expectations, now time.Time) *Result {
	result := &Result{
		AsOf:    snap.AsOf,
		Healthy: true,
	}

	// Step 1: Coverage per expected class
	present := make(map[string]struct{}, len(snap.Positions))
	for _, pos := range snap.Positions {
		present[pos.Symbol] = struct{}{}
	}

	classes := make([]string, 0, len(expectations.ExpectedSymbols))
	for class := range expectations.ExpectedSymbols {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	for _, class := range classes {
		expected := expectations.ExpectedSymbols[class]
		if len(expected) == 0 {
			continue
		}

		row := ClassCoverage{Class: class, Expected: len(expected)}
		for _, symbol := range expected {
			if _, ok := present[symbol]; ok {
				row.Present++
			} else {
				row.MissingSymbols = append(row.MissingSymbols, symbol)
			}
		}
		sort.Strings(row.MissingSymbols)

		row.Coverage = float64(row.Present) / float64(row.Expected)
		row.BelowThreshold = row.Coverage < expectations.CoverageThreshold
		if row.BelowThreshold {
			result.Healthy = false
			s.log.Warn().
				Str("asset_class", class).
				Float64("coverage", row.Coverage).
				Float64("threshold", expectations.CoverageThreshold).
				Strs("missing", row.MissingSymbols).
				Msg("Asset class coverage below threshold")
		}
		result.Coverage = append(result.Coverage, row)
	}

	// Step 2: Price staleness. Positions without a timestamp cannot be
	// assessed and are left alone.
	if expectations.MaxPriceAge > 0 {
		for _, pos := range snap.Positions {
			if pos.PricedAt.IsZero() {
				continue
			}
			age := now.Sub(pos.PricedAt)
			if age > expectations.MaxPriceAge {
				result.StaleSymbols = append(result.StaleSymbols, StaleSymbol{
					Symbol:   pos.Symbol,
					PricedAt: pos.PricedAt,
					Age:      age,
				})
				result.Healthy = false
			}
		}
		if len(result.StaleSymbols) > 0 {
			s.log.Warn().
				Int("stale_symbols", len(result.StaleSymbols)).
				Dur("max_age", expectations.MaxPriceAge).
				Msg("Positions have stale prices")
		}
	}

	return result
}

// BelowThreshold returns the coverage rows that failed the threshold, in
// report order.
func (r *Result) BelowThreshold() []ClassCoverage {
	var flagged []ClassCoverage
	for _, row := range r.Coverage {
		if row.BelowThreshold {
			flagged = append(flagged, row)
		}
	}
	return flagged
}
