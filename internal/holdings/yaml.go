package holdings

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/akritis/vigil/internal/domain"
)

// YAMLProvider reads holdings from a YAML file of quantity and price rows.
// Position values are computed in decimal arithmetic and rounded to cents
// before snapshot construction, so a 38-share lot at $249.99 never picks up
// float dust on the way in.
type YAMLProvider struct {
	path string
	log  zerolog.Logger
}

// NewYAMLProvider creates a provider reading from the given file path.
func NewYAMLProvider(path string, log zerolog.Logger) *YAMLProvider {
	return &YAMLProvider{
		path: path,
		log:  log.With().Str("provider", "holdings_yaml").Logger(),
	}
}

// Name identifies the provider in logs and run records.
func (p *YAMLProvider) Name() string { return "yaml" }

// holdingsFile is the on-disk shape. Numeric fields are strings so decimal
// parsing reports the offending row instead of silently truncating.
type holdingsFile struct {
	AsOf      time.Time     `yaml:"as_of"`
	Positions []positionRow `yaml:"positions"`
}

type positionRow struct {
	Symbol   string    `yaml:"symbol"`
	Class    string    `yaml:"class"`
	Quantity string    `yaml:"quantity"`
	Price    string    `yaml:"price"`
	Value    string    `yaml:"value"`
	PricedAt time.Time `yaml:"priced_at"`
}

// Fetch reads, prices, and validates the holdings file.
func (p *YAMLProvider) Fetch(asOf time.Time) (*domain.PortfolioSnapshot, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read holdings file: %w", err)
	}

	var file holdingsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse holdings file: %w", err)
	}

	// A date recorded in the file wins over the caller's
	if !file.AsOf.IsZero() {
		asOf = file.AsOf
	}

	positions := make([]domain.Position, 0, len(file.Positions))
	for _, row := range file.Positions {
		value, err := row.value()
		if err != nil {
			return nil, err
		}
		positions = append(positions, domain.Position{
			Symbol:     row.Symbol,
			AssetClass: row.Class,
			Value:      value,
			PricedAt:   row.PricedAt,
		})
	}

	snap, err := domain.NewSnapshot(asOf, positions)
	if err != nil {
		return nil, err
	}

	p.log.Debug().
		Str("path", p.path).
		Int("positions", len(snap.Positions)).
		Float64("total_value", snap.TotalValue).
		Msg("Loaded holdings from YAML")

	return snap, nil
}

// value resolves a row to dollars: an explicit value wins, otherwise
// quantity times price, rounded to cents.
func (r positionRow) value() (float64, error) {
	if r.Value != "" {
		v, err := decimal.NewFromString(r.Value)
		if err != nil {
			return 0, fmt.Errorf("invalid value for %s: %w", r.Symbol, err)
		}
		return v.Round(2).InexactFloat64(), nil
	}

	if r.Quantity == "" || r.Price == "" {
		return 0, fmt.Errorf("position %s needs either a value or both quantity and price", r.Symbol)
	}

	quantity, err := decimal.NewFromString(r.Quantity)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity for %s: %w", r.Symbol, err)
	}
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return 0, fmt.Errorf("invalid price for %s: %w", r.Symbol, err)
	}

	return quantity.Mul(price).Round(2).InexactFloat64(), nil
}
