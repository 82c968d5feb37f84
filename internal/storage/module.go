package storage

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"binance_trader/internal/config"
	"binance_trader/pkg/db"
)

// Module provides a Journal: postgres-backed when a DSN is configured,
// otherwise a no-op.
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(
			func(lc fx.Lifecycle, cfg *config.Settings, log *zap.Logger) (Journal, error) {
				if cfg.DatabaseDSN == "" {
					log.Info("order journal disabled, no database_dsn")
					return Noop{}, nil
				}

				ctx := context.Background()
				pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
				if err != nil {
					return nil, err
				}
				j, err := NewPgJournal(ctx, pool)
				if err != nil {
					pool.Close()
					return nil, err
				}
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						j.Close()
						return nil
					},
				})
				return j, nil
			},
		),
	)
}
