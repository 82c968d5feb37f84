package binance

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"binance_trader/internal/config"
)

func Module() fx.Option {
	return fx.Module("binance",
		fx.Provide(
			func(cfg *config.Settings, log *zap.Logger) *Client {
				return NewClient(Config{
					APIKey:    cfg.APIKey,
					APISecret: cfg.APISecret,
					BaseURL:   cfg.RESTBase(),
				}, log)
			},
		),
	)
}
