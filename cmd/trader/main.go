package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "fetch":
		cmdFetch(args)
	case "backtest":
		cmdBacktest(args)
	case "live":
		cmdLive(args)
	case "live-ws":
		cmdLiveWS(args)
	case "convert-freqtrade":
		cmdConvertFreqtrade(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: trader <command> [flags]

commands:
  fetch              fetch historical klines to CSV
  backtest           run a backtest over a candle CSV
  live               live trading, polling loop
  live-ws            live trading, websocket multi-symbol runner
  convert-freqtrade  convert a freqtrade backtest result to equity CSV`)
}
