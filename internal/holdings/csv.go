package holdings

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/akritis/vigil/internal/domain"
)

// CSVProvider reads holdings from a brokerage-export style CSV with columns
// symbol, asset_class, quantity, price, and an optional priced_at (RFC 3339).
// Column order is taken from the header row.
type CSVProvider struct {
	path string
	log  zerolog.Logger
}

// NewCSVProvider creates a provider reading from the given file path.
func NewCSVProvider(path string, log zerolog.Logger) *CSVProvider {
	return &CSVProvider{
		path: path,
		log:  log.With().Str("provider", "holdings_csv").Logger(),
	}
}

// Name identifies the provider in logs and run records.
func (p *CSVProvider) Name() string { return "csv" }

// Fetch reads, prices, and validates the holdings export.
func (p *CSVProvider) Fetch(asOf time.Time) (*domain.PortfolioSnapshot, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open holdings file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read holdings header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"symbol", "asset_class", "quantity", "price"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("holdings file is missing column %q", required)
		}
	}

	var positions []domain.Position
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read holdings row: %w", err)
		}
		line++

		symbol := strings.TrimSpace(record[columns["symbol"]])
		quantity, err := decimal.NewFromString(strings.TrimSpace(record[columns["quantity"]]))
		if err != nil {
			return nil, fmt.Errorf("invalid quantity for %s on line %d: %w", symbol, line, err)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(record[columns["price"]]))
		if err != nil {
			return nil, fmt.Errorf("invalid price for %s on line %d: %w", symbol, line, err)
		}

		var pricedAt time.Time
		if idx, ok := columns["priced_at"]; ok && strings.TrimSpace(record[idx]) != "" {
			pricedAt, err = time.Parse(time.RFC3339, strings.TrimSpace(record[idx]))
			if err != nil {
				return nil, fmt.Errorf("invalid priced_at for %s on line %d: %w", symbol, line, err)
			}
		}

		positions = append(positions, domain.Position{
			Symbol:     symbol,
			AssetClass: strings.TrimSpace(record[columns["asset_class"]]),
			Value:      quantity.Mul(price).Round(2).InexactFloat64(),
			PricedAt:   pricedAt,
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
		Msg("Loaded holdings from CSV")

	return snap, nil
}
