package main

import (
	"encoding/csv"
	"flag"
	"os"
	"strconv"

	"go.uber.org/zap"

	"binance_trader/internal/convert"
	"binance_trader/pkg/logger"
)

func cmdConvertFreqtrade(args []string) {
	fs := flag.NewFlagSet("convert-freqtrade", flag.ExitOnError)
	input := fs.String("input", "", "freqtrade backtest result JSON")
	equity0 := fs.Float64("equity0", 1.0, "initial equity")
	out := fs.String("out", "", "output CSV path")
	_ = fs.Parse(args)

	log, err := logger.New("convert-freqtrade")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if *input == "" || *out == "" {
		log.Fatal("convert-freqtrade requires --input and --out")
	}

	points, err := convert.FromBacktestJSON(*input, *equity0)
	if err != nil {
		log.Fatal("convert failed", zap.Error(err))
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatal("create output", zap.Error(err))
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write([]string{"timestamp", "close", "equity"})
	for _, p := range points {
		_ = w.Write([]string{
			strconv.FormatInt(p.TimestampMs, 10),
			"", // no close price in freqtrade trade rows
			strconv.FormatFloat(p.Equity, 'f', -1, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatal("write output", zap.Error(err))
	}
	log.Info("saved", zap.Int("rows", len(points)), zap.String("out", *out))
}
