package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"binance_trader/internal/binance"
	"binance_trader/internal/config"
	"binance_trader/internal/execution"
	"binance_trader/internal/history"
	"binance_trader/internal/strategy"
	"binance_trader/pkg/logger"
)

const pollDelay = 5 * time.Second

// cmdLive is the polling variant: refetch the trailing window, evaluate and
// trade on a signal change. The websocket runner (live-ws) supersedes it but
// it stays useful on networks where streaming is flaky.
func cmdLive(args []string) {
	fs := flag.NewFlagSet("live", flag.ExitOnError)
	symbol := fs.String("symbol", "", "symbol, e.g. BTCUSDT")
	interval := fs.String("interval", "1m", "kline interval")
	name := fs.String("strategy", strategy.NameSMACross, "strategy name")
	fast := fs.Int("fast", 20, "fast SMA window")
	slow := fs.Int("slow", 60, "slow SMA window")
	qty := fs.Float64("qty", 0, "fixed quantity; 0 sizes from equity")
	_ = fs.Parse(args)

	log, err := logger.New("live")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if *symbol == "" {
		log.Fatal("live requires --symbol")
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatal("load settings", zap.Error(err))
	}
	strat, err := strategy.New(*name, strategy.Params{"fast": float64(*fast), "slow": float64(*slow)})
	if err != nil {
		log.Fatal("build strategy", zap.Error(err))
	}

	client := binance.NewClient(binance.Config{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.RESTBase(),
	}, log)
	exe := execution.NewEngine(client, *symbol, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exe.EnsureMarginType(ctx, "ISOLATED")
	exe.EnsureLeverage(ctx, cfg.MaxLeverage)

	iv := history.IntervalDuration(*interval)
	if iv <= 0 {
		iv = time.Minute
	}

	lastSignal := 0
	for ctx.Err() == nil {
		endMs := time.Now().UnixMilli()
		startMs := endMs - iv.Milliseconds()*500

		bars, err := history.FetchKlines(ctx, client, *symbol, *interval, startMs, endMs)
		if err != nil {
			log.Warn("fetch failed", zap.Error(err))
			sleep(ctx, pollDelay)
			continue
		}
		if len(bars) == 0 {
			sleep(ctx, pollDelay)
			continue
		}

		sigs := strat.GenerateSignals(bars)
		sig := sigs[len(sigs)-1]
		px := bars[len(bars)-1].Close

		if sig != 0 && sig != lastSignal {
			amount := *qty
			if amount <= 0 {
				acct, err := client.Account(ctx)
				if err != nil {
					log.Warn("sizing failed, tick skipped", zap.Error(err))
					sleep(ctx, pollDelay)
					continue
				}
				amount = acct.Equity() * cfg.RiskPerTrade / px
			}

			if sig > 0 {
				log.Info("signal BUY", zap.Float64("qty", amount), zap.Float64("px", px))
				if _, err := exe.MarketBuy(ctx, amount, false); err != nil {
					log.Error("order failed", zap.Error(err))
					sleep(ctx, pollDelay)
					continue
				}
			} else {
				log.Info("signal SELL", zap.Float64("qty", amount), zap.Float64("px", px))
				if _, err := exe.MarketSell(ctx, amount, false); err != nil {
					log.Error("order failed", zap.Error(err))
					sleep(ctx, pollDelay)
					continue
				}
			}
			lastSignal = sig
		}
		sleep(ctx, pollDelay)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
