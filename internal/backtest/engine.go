package backtest

import (
	"math"

	"binance_trader/internal/models"
)

// Result of a symmetric long/short backtest.
type Result struct {
	Equity    []float64
	PnL       []float64
	ReturnPct float64
	Sharpe    float64
	MaxDDPct  float64
	Trades    int
}

// Symmetric replays a signal series close-to-close with taker fee and
// slippage. The position flips whenever signal != 0.
func Symmetric(bars []models.Bar, signal []int, feeRate, slippageBps float64) Result {
	n := len(bars)
	res := Result{
		Equity: make([]float64, n),
		PnL:    make([]float64, n),
	}
	if n == 0 {
		return res
	}

	slip := slippageBps * 1e-4
	pos := 0
	for i := 0; i < n; i++ {
		var ret float64
		if i > 0 && bars[i-1].Close != 0 {
			ret = bars[i].Close/bars[i-1].Close - 1
		}

		var cost float64
		sig := 0
		if i < len(signal) {
			sig = signal[i]
		}
		if sig != 0 {
			if pos != 0 {
				cost += feeRate // close the old side
			}
			cost += feeRate + slip // open the new side
			if sig > 0 {
				pos = 1
			} else {
				pos = -1
			}
			res.Trades++
		}
		res.PnL[i] = float64(pos)*ret - cost
	}

	eq := 1.0
	peak := 1.0
	for i, p := range res.PnL {
		eq *= 1 + p
		res.Equity[i] = eq
		if eq > peak {
			peak = eq
		}
		if dd := (1 - eq/peak) * 100; dd > res.MaxDDPct {
			res.MaxDDPct = dd
		}
	}
	res.ReturnPct = (eq - 1) * 100

	mean := 0.0
	for _, p := range res.PnL {
		mean += p
	}
	mean /= float64(n)
	variance := 0.0
	for _, p := range res.PnL {
		variance += (p - mean) * (p - mean)
	}
	std := math.Sqrt(variance / float64(n))
	// minute-bar annualization, same rough convention as the backtest report
	res.Sharpe = mean / (std + 1e-12) * math.Sqrt(365*24*60)
	return res
}
