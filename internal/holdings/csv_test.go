package holdings

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVProviderFetch(t *testing.T) {
	path := writeFile(t, "holdings.csv", `symbol,asset_class,quantity,price,priced_at
AAPL,equities,38,250.00,2026-08-21T16:00:00Z
AGG,bonds,80,100.00,
CASH,cash,5000,1,
`)

	provider := NewCSVProvider(path, zerolog.Nop())
	assert.Equal(t, "csv", provider.Name())

	asOf := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	snap, err := provider.Fetch(asOf)
	require.NoError(t, err)

	assert.Equal(t, asOf, snap.AsOf)
	require.Len(t, snap.Positions, 3)
	assert.InDelta(t, 22500.0, snap.TotalValue, 1e-9)

	assert.Equal(t, "AAPL", snap.Positions[0].Symbol)
	assert.Equal(t, "equities", snap.Positions[0].AssetClass)
	assert.InDelta(t, 9500.0, snap.Positions[0].Value, 1e-9)
	assert.Equal(t, time.Date(2026, 8, 21, 16, 0, 0, 0, time.UTC), snap.Positions[0].PricedAt)
	assert.True(t, snap.Positions[1].PricedAt.IsZero())
}

func TestCSVProviderColumnOrderFromHeader(t *testing.T) {
	path := writeFile(t, "holdings.csv", `price,symbol,quantity,asset_class
100.00,AGG,80,bonds
`)

	snap, err := NewCSVProvider(path, zerolog.Nop()).Fetch(time.Now())
	require.NoError(t, err)
	require.Len(t, snap.Positions, 1)
	assert.Equal(t, "AGG", snap.Positions[0].Symbol)
	assert.Equal(t, "bonds", snap.Positions[0].AssetClass)
	assert.InDelta(t, 8000.0, snap.Positions[0].Value, 1e-9)
}

func TestCSVProviderErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		errorHas string
	}{
		{
			name:     "missing required column",
			content:  "symbol,quantity,price\nAAPL,10,100\n",
			errorHas: `missing column "asset_class"`,
		},
		{
			name:     "bad quantity",
			content:  "symbol,asset_class,quantity,price\nAAPL,equities,ten,100\n",
			errorHas: "invalid quantity for AAPL on line 2",
		},
		{
			name:     "bad priced_at",
			content:  "symbol,asset_class,quantity,price,priced_at\nAAPL,equities,10,100,yesterday\n",
			errorHas: "invalid priced_at for AAPL on line 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "holdings.csv", tt.content)
			_, err := NewCSVProvider(path, zerolog.Nop()).Fetch(time.Now())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorHas)
		})
	}
}
