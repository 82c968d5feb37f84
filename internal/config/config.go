package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const configFileENV = "CONFIG_FILE"

// Settings is the file-backed part of the configuration. API credentials come
// from the environment only and are never written to disk.
type Settings struct {
	Testnet bool `mapstructure:"testnet"`

	BaseURLTestnet  string `mapstructure:"base_url_testnet"`
	BaseURLMainnet  string `mapstructure:"base_url_mainnet"`
	WSMarketTestnet string `mapstructure:"wss_market_testnet"`
	WSMarketMainnet string `mapstructure:"wss_market_mainnet"`

	RiskPerTrade float64 `mapstructure:"risk_per_trade"`
	MaxLeverage  int     `mapstructure:"max_leverage"`
	TakerFeeRate float64 `mapstructure:"taker_fee_rate"`
	SlippageBps  float64 `mapstructure:"slippage_bps"`

	DatabaseDSN    string `mapstructure:"database_dsn"`
	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID int64  `mapstructure:"telegram_chat_id"`

	JaegerHost string `mapstructure:"jaeger_host"`
	JaegerPort int    `mapstructure:"jaeger_port"`

	APIKey    string
	APISecret string
}

// RESTBase picks the REST endpoint for the configured network.
func (s *Settings) RESTBase() string {
	if s.Testnet {
		return s.BaseURLTestnet
	}
	return s.BaseURLMainnet
}

// MarketWSBase picks the streaming endpoint. The user stream shares it.
func (s *Settings) MarketWSBase() string {
	if s.Testnet {
		return s.WSMarketTestnet
	}
	return s.WSMarketMainnet
}

func (s *Settings) UserWSBase() string { return s.MarketWSBase() }

func New() (*Settings, error) {
	v := viper.New()

	name := os.Getenv(configFileENV)
	if name == "" {
		name = "settings"
	}
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	v.AddConfigPath(".")

	v.SetDefault("testnet", true)
	v.SetDefault("base_url_testnet", "https://testnet.binancefuture.com")
	v.SetDefault("base_url_mainnet", "https://fapi.binance.com")
	v.SetDefault("wss_market_testnet", "wss://stream.binancefuture.com")
	v.SetDefault("wss_market_mainnet", "wss://fstream.binance.com")
	v.SetDefault("risk_per_trade", 0.01)
	v.SetDefault("max_leverage", 20)
	v.SetDefault("taker_fee_rate", 0.0004)
	v.SetDefault("slippage_bps", 1.0)
	v.SetDefault("jaeger_port", 6831)

	if err := v.ReadInConfig(); err != nil {
		// Missing file is fine, defaults + env cover everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read settings")
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "decode settings")
	}

	s.APIKey = os.Getenv("BINANCE_API_KEY")
	s.APISecret = os.Getenv("BINANCE_API_SECRET")
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		s.DatabaseDSN = dsn
	}
	if tok := os.Getenv("TELEGRAM_TOKEN"); tok != "" {
		s.TelegramToken = tok
	}
	return &s, nil
}
