package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"binance_trader/internal/binance"
	"binance_trader/internal/config"
	"binance_trader/internal/history"
	"binance_trader/pkg/logger"
)

func cmdFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	symbol := fs.String("symbol", "", "symbol, e.g. BTCUSDT")
	interval := fs.String("interval", "1m", "kline interval")
	start := fs.String("start", "", "UTC start, e.g. 2024-01-01")
	end := fs.String("end", "", "UTC end, e.g. 2024-02-01")
	out := fs.String("out", "", "output CSV path")
	_ = fs.Parse(args)

	log, err := logger.New("fetch")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if *symbol == "" || *start == "" || *end == "" || *out == "" {
		log.Fatal("fetch requires --symbol, --start, --end and --out")
	}

	startMs, err := parseUTC(*start)
	if err != nil {
		log.Fatal("bad --start", zap.Error(err))
	}
	endMs, err := parseUTC(*end)
	if err != nil {
		log.Fatal("bad --end", zap.Error(err))
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatal("load settings", zap.Error(err))
	}
	client := binance.NewClient(binance.Config{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.RESTBase(),
	}, log)

	bars, err := history.FetchKlines(context.Background(), client, *symbol, *interval, startMs, endMs)
	if err != nil {
		log.Fatal("fetch klines", zap.Error(err))
	}
	if err := history.WriteBarsCSV(*out, bars); err != nil {
		log.Fatal("write csv", zap.Error(err))
	}
	log.Info("saved", zap.Int("rows", len(bars)), zap.String("out", *out))
}

func parseUTC(s string) (int64, error) {
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UnixMilli(), nil
		}
	}
	_, err := time.Parse("2006-01-02", s)
	return 0, err
}
