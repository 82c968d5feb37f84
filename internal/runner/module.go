package runner

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"binance_trader/internal/binance"
	"binance_trader/internal/config"
	"binance_trader/internal/execution"
	"binance_trader/internal/notify"
	"binance_trader/internal/storage"
	"binance_trader/internal/strategy"
)

// Module wires the live runner. Building the strategy happens here, before
// anything touches the network, so an unknown name fails app start.
func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			func(
				opts Options,
				cfg *config.Settings,
				client *binance.Client,
				journal storage.Journal,
				n notify.Notifier,
				log *zap.Logger,
			) (*Runner, error) {
				strat, err := strategy.New(opts.StrategyName, opts.StrategyParams)
				if err != nil {
					return nil, err
				}

				opts.RiskPerTrade = cfg.RiskPerTrade
				opts.MaxLeverage = cfg.MaxLeverage

				market := binance.NewMarketStream(cfg.MarketWSBase(), opts.Symbols, opts.Interval, log)
				user := binance.NewUserStream(cfg.UserWSBase(), client, log)

				exec := make(map[string]OrderEngine, len(opts.Symbols))
				for _, sym := range opts.Symbols {
					exec[sym] = execution.NewEngine(client, sym, log)
				}
				return New(opts, client, market, user, exec, strat, journal, n, log), nil
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, r *Runner, sd fx.Shutdowner, log *zap.Logger) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						if err := r.Run(ctx); err != nil && ctx.Err() == nil {
							log.Error("runner exited", zap.Error(err))
							_ = sd.Shutdown()
						}
					}()
					return nil
				},
				OnStop: func(context.Context) error {
					r.Stop()
					cancel()
					return nil
				},
			})
		}),
	)
}
