package holdings

import (
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/rs/zerolog"

	"github.com/akritis/vigil/internal/config"
	"github.com/akritis/vigil/internal/domain"
)

// AlpacaProvider reads live positions from the Alpaca trading API. The SDK
// reports market value per position but no asset class we can use directly,
// so classes come from the policy's symbol map with a fallback for anything
// unmapped.
type AlpacaProvider struct {
	client        *alpaca.Client
	classes       map[string]string
	fallbackClass string
	log           zerolog.Logger
}

// NewAlpacaProvider creates a provider using the configured API credentials.
func NewAlpacaProvider(cfg config.AlpacaConfig, classes map[string]string, fallbackClass string, log zerolog.Logger) *AlpacaProvider {
	if fallbackClass == "" {
		fallbackClass = "equities"
	}
	return &AlpacaProvider{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			BaseURL:   cfg.BaseURL,
		}),
		classes:       classes,
		fallbackClass: fallbackClass,
		log:           log.With().Str("provider", "holdings_alpaca").Logger(),
	}
}

// Name identifies the provider in logs and run records.
func (p *AlpacaProvider) Name() string { return "alpaca" }

// Fetch pulls current positions and builds a snapshot priced as of now.
func (p *AlpacaProvider) Fetch(asOf time.Time) (*domain.PortfolioSnapshot, error) {
	alpacaPositions, err := p.client.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch positions from alpaca: %w", err)
	}

	positions := p.convertPositions(alpacaPositions, time.Now().UTC())

	snap, err := domain.NewSnapshot(asOf, positions)
	if err != nil {
		return nil, err
	}

	p.log.Debug().
		Int("positions", len(snap.Positions)).
		Float64("total_value", snap.TotalValue).
		Msg("Loaded holdings from Alpaca")

	return snap, nil
}

// convertPositions maps SDK positions to domain positions. Market value is a
// pointer in the SDK; positions without one (unpriced, just-opened) are
// skipped with a warning rather than failing the whole snapshot.
func (p *AlpacaProvider) convertPositions(alpacaPositions []alpaca.Position, pricedAt time.Time) []domain.Position {
	positions := make([]domain.Position, 0, len(alpacaPositions))
	for _, pos := range alpacaPositions {
		if pos.MarketValue == nil {
			p.log.Warn().Str("symbol", pos.Symbol).Msg("Skipping position without market value")
			continue
		}
		positions = append(positions, domain.Position{
			Symbol:     pos.Symbol,
			AssetClass: p.classFor(pos.Symbol),
			Value:      pos.MarketValue.Round(2).InexactFloat64(),
			PricedAt:   pricedAt,
		})
	}
	return positions
}

func (p *AlpacaProvider) classFor(symbol string) string {
	if class, ok := p.classes[symbol]; ok {
		return class
	}
	return p.fallbackClass
}
