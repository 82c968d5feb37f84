package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkSelection(t *testing.T) {
	s := &Settings{
		Testnet:         true,
		BaseURLTestnet:  "https://testnet.binancefuture.com",
		BaseURLMainnet:  "https://fapi.binance.com",
		WSMarketTestnet: "wss://stream.binancefuture.com",
		WSMarketMainnet: "wss://fstream.binance.com",
	}

	assert.Equal(t, "https://testnet.binancefuture.com", s.RESTBase())
	assert.Equal(t, "wss://stream.binancefuture.com", s.MarketWSBase())
	assert.Equal(t, s.MarketWSBase(), s.UserWSBase())

	s.Testnet = false
	assert.Equal(t, "https://fapi.binance.com", s.RESTBase())
	assert.Equal(t, "wss://fstream.binance.com", s.MarketWSBase())
}

func TestDefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "k")
	t.Setenv("BINANCE_API_SECRET", "s")
	t.Setenv("DATABASE_DSN", "postgres://override")

	s, err := New()
	require.NoError(t, err)

	assert.Equal(t, "k", s.APIKey)
	assert.Equal(t, "s", s.APISecret)
	assert.Equal(t, "postgres://override", s.DatabaseDSN)
	assert.Greater(t, s.RiskPerTrade, 0.0)
	assert.Greater(t, s.MaxLeverage, 0)
	assert.NotEmpty(t, s.RESTBase())
}
