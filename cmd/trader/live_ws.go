package main

import (
	"context"
	"flag"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"binance_trader/internal/binance"
	"binance_trader/internal/config"
	"binance_trader/internal/notify"
	"binance_trader/internal/runner"
	"binance_trader/internal/storage"
	"binance_trader/internal/strategy"
	"binance_trader/pkg/logger"
	"binance_trader/pkg/tracing"
)

// cmdLiveWS runs the multi-symbol websocket runner under fx. A bad strategy
// name fails app start before any network activity.
func cmdLiveWS(args []string) {
	fs := flag.NewFlagSet("live-ws", flag.ExitOnError)
	symbols := fs.String("symbols", "", "comma separated, e.g. BTCUSDT,ETHUSDT")
	interval := fs.String("interval", "1m", "kline interval")
	name := fs.String("strategy", strategy.NameSMACross, "strategy name")
	fast := fs.Int("fast", 20, "fast SMA window")
	slow := fs.Int("slow", 60, "slow SMA window")
	lookback := fs.Int("lookback", 500, "candle buffer length per symbol")
	qty := fs.Float64("qty", 0, "fixed quantity; 0 sizes from equity")
	_ = fs.Parse(args)

	log, err := logger.New("live-ws")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if *symbols == "" {
		log.Fatal("live-ws requires --symbols")
	}
	var syms []string
	for _, s := range strings.Split(*symbols, ",") {
		if s = strings.TrimSpace(s); s != "" {
			syms = append(syms, strings.ToUpper(s))
		}
	}

	opts := runner.Options{
		Symbols:        syms,
		Interval:       *interval,
		StrategyName:   *name,
		StrategyParams: strategy.Params{"fast": float64(*fast), "slow": float64(*slow)},
		Lookback:       *lookback,
		FixedQty:       *qty,
	}

	app := fx.New(
		fx.Supply(opts),
		fx.Provide(func() *zap.Logger { return log }),
		config.Module(),
		binance.Module(),
		storage.Module(),
		notify.Module(),
		runner.Module(),
		fx.Invoke(initTracing),
	)
	app.Run()
}

func initTracing(lc fx.Lifecycle, cfg *config.Settings, log *zap.Logger) {
	if cfg.JaegerHost == "" {
		return
	}
	_, closer, err := tracing.InitTracer("binance_trader", tracing.Config{
		Host: cfg.JaegerHost,
		Port: cfg.JaegerPort,
	})
	if err != nil {
		log.Warn("jaeger init failed", zap.Error(err))
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return closer() },
	})
}
