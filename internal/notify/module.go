package notify

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"binance_trader/internal/config"
)

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			func(cfg *config.Settings, log *zap.Logger) (Notifier, error) {
				if cfg.TelegramToken == "" {
					return NewLog(log), nil
				}
				return NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
			},
		),
	)
}
