package strategy

import "binance_trader/internal/models"

// Signal values per evaluated bar. A nonzero value is an instruction to flip,
// not a target position.
const (
	Long  = 1
	Short = -1
	Flat  = 0
)

// Params holds numeric strategy parameters. Unknown keys are carried along so
// callers can pass overrides for parameters a strategy may ignore.
type Params map[string]float64

// Int reads a parameter as int, falling back to def when absent.
func (p Params) Int(key string, def int) int {
	if v, ok := p[key]; ok {
		return int(v)
	}
	return def
}

// Strategy turns a candle window into one signal per input bar. Pure and
// deterministic: same window and params, same output.
type Strategy interface {
	GenerateSignals(bars []models.Bar) []int
}
