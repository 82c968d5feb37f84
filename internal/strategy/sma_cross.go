package strategy

import (
	"math"

	"binance_trader/internal/models"
)

// SMACross signals on fast/slow simple-moving-average crossovers. The raw
// state is +1 while fast > slow, -1 while fast < slow and 0 while either
// average still lacks a full window; the emitted signal is the change of that
// state clamped to [-1, 1], so it fires once per crossing.
type SMACross struct {
	fast int
	slow int
}

func NewSMACross(p Params) *SMACross {
	return &SMACross{
		fast: p.Int("fast", 20),
		slow: p.Int("slow", 60),
	}
}

func (s *SMACross) GenerateSignals(bars []models.Bar) []int {
	out := make([]int, len(bars))
	if len(bars) == 0 {
		return out
	}

	fast := rollingMean(bars, s.fast)
	slow := rollingMean(bars, s.slow)

	prev := 0
	for i := range bars {
		state := 0
		if !math.IsNaN(fast[i]) && !math.IsNaN(slow[i]) {
			switch {
			case fast[i] > slow[i]:
				state = 1
			case fast[i] < slow[i]:
				state = -1
			}
		}

		d := state - prev
		if d > 1 {
			d = 1
		} else if d < -1 {
			d = -1
		}
		if i == 0 {
			d = 0 // no prior state to diff against
		}
		out[i] = d
		prev = state
	}
	return out
}

// rollingMean returns the window-sized mean of closes, NaN until the window
// is full.
func rollingMean(bars []models.Bar, window int) []float64 {
	out := make([]float64, len(bars))
	if window <= 0 {
		window = 1
	}
	var sum float64
	for i, b := range bars {
		sum += b.Close
		if i >= window {
			sum -= bars[i-window].Close
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}
