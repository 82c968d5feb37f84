package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"binance_trader/internal/backtest"
	"binance_trader/internal/config"
	"binance_trader/internal/history"
	"binance_trader/internal/models"
	"binance_trader/internal/strategy"
	"binance_trader/pkg/logger"
)

func cmdBacktest(args []string) {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	symbol := fs.String("symbol", "", "symbol, used for the report name")
	interval := fs.String("interval", "1m", "interval, used for the report name")
	data := fs.String("data", "", "candle CSV path")
	name := fs.String("strategy", strategy.NameSMACross, "strategy name")
	fast := fs.Int("fast", 20, "fast SMA window")
	slow := fs.Int("slow", 60, "slow SMA window")
	report := fs.String("report", "", "equity CSV path (default backtest_<symbol>_<interval>.csv)")
	_ = fs.Parse(args)

	log, err := logger.New("backtest")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if *data == "" {
		log.Fatal("backtest requires --data")
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatal("load settings", zap.Error(err))
	}
	bars, err := history.ReadBarsCSV(*data)
	if err != nil {
		log.Fatal("read data", zap.Error(err))
	}

	strat, err := strategy.New(*name, strategy.Params{"fast": float64(*fast), "slow": float64(*slow)})
	if err != nil {
		log.Fatal("build strategy", zap.Error(err))
	}
	sig := strat.GenerateSignals(bars)
	res := backtest.Symmetric(bars, sig, cfg.TakerFeeRate, cfg.SlippageBps)

	fmt.Printf("Return%%=%.2f Sharpe=%.2f MaxDD%%=%.2f Trades=%d\n",
		res.ReturnPct, res.Sharpe, res.MaxDDPct, res.Trades)

	out := *report
	if out == "" {
		out = fmt.Sprintf("backtest_%s_%s.csv", *symbol, *interval)
	}
	if err := writeEquityCSV(out, bars, res.Equity); err != nil {
		log.Fatal("write report", zap.Error(err))
	}
	log.Info("equity curve saved", zap.String("out", out))
}

func writeEquityCSV(path string, bars []models.Bar, equity []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "close", "equity"}); err != nil {
		return err
	}
	for i, b := range bars {
		eq := ""
		if i < len(equity) {
			eq = strconv.FormatFloat(equity[i], 'f', -1, 64)
		}
		row := []string{
			strconv.FormatInt(b.OpenTime, 10),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			eq,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
