// Package holdings loads portfolio snapshots from local files or the
// brokerage API. Every provider funnels through the same snapshot
// constructor, so malformed holdings fail identically regardless of source.
package holdings

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/akritis/vigil/internal/config"
	"github.com/akritis/vigil/internal/domain"
)

// Provider returns a validated snapshot of current holdings.
type Provider interface {
	// Name identifies the provider in logs and run records.
	Name() string

	// Fetch builds a snapshot for the given as-of date. File providers may
	// override the date with one recorded in the file itself.
	Fetch(asOf time.Time) (*domain.PortfolioSnapshot, error)
}

// FromPolicy builds the provider the policy file selects.
func FromPolicy(policy *config.Policy, cfg *config.Config, log zerolog.Logger) (Provider, error) {
	switch policy.Holdings.Source {
	case "yaml":
		return NewYAMLProvider(policy.Holdings.Path, log), nil
	case "csv":
		return NewCSVProvider(policy.Holdings.Path, log), nil
	case "alpaca":
		if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
			return nil, fmt.Errorf("holdings source is alpaca but ALPACA_API_KEY/ALPACA_API_SECRET are not set")
		}
		return NewAlpacaProvider(cfg.Alpaca, policy.Holdings.Classes, policy.Holdings.FallbackClass, log), nil
	default:
		return nil, fmt.Errorf("unknown holdings source %q", policy.Holdings.Source)
	}
}
