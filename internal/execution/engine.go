package execution

import (
	"context"

	"go.uber.org/zap"

	"binance_trader/internal/binance"
	"binance_trader/internal/models"
)

type orderAPI interface {
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	SetMarginType(ctx context.Context, symbol, marginType string) error
	NewOrder(ctx context.Context, o models.OrderRequest) (binance.OrderAck, error)
}

// Engine translates a signal into exchange side effects for one symbol.
type Engine struct {
	api    orderAPI
	symbol string
	log    *zap.Logger
}

func NewEngine(api orderAPI, symbol string, log *zap.Logger) *Engine {
	return &Engine{api: api, symbol: symbol, log: log.With(zap.String("symbol", symbol))}
}

// EnsureLeverage is best-effort: the exchange rejects no-op changes, so a
// failure here must not stop live trading.
func (e *Engine) EnsureLeverage(ctx context.Context, leverage int) {
	if err := e.api.SetLeverage(ctx, e.symbol, leverage); err != nil {
		e.log.Warn("leverage set failed", zap.Int("leverage", leverage), zap.Error(err))
		return
	}
	e.log.Info("leverage set", zap.Int("leverage", leverage))
}

// EnsureMarginType is best-effort, same as EnsureLeverage.
func (e *Engine) EnsureMarginType(ctx context.Context, marginType string) {
	if err := e.api.SetMarginType(ctx, e.symbol, marginType); err != nil {
		e.log.Warn("margin type set failed", zap.String("marginType", marginType), zap.Error(err))
		return
	}
	e.log.Info("margin type set", zap.String("marginType", marginType))
}

// MarketBuy places a market buy. Unlike the setup calls the result is the
// caller's problem.
func (e *Engine) MarketBuy(ctx context.Context, qty float64, reduceOnly bool) (binance.OrderAck, error) {
	return e.api.NewOrder(ctx, models.OrderRequest{
		Symbol:     e.symbol,
		Side:       models.SideBuy,
		Type:       models.TypeMarket,
		Quantity:   qty,
		ReduceOnly: reduceOnly,
	})
}

func (e *Engine) MarketSell(ctx context.Context, qty float64, reduceOnly bool) (binance.OrderAck, error) {
	return e.api.NewOrder(ctx, models.OrderRequest{
		Symbol:     e.symbol,
		Side:       models.SideSell,
		Type:       models.TypeMarket,
		Quantity:   qty,
		ReduceOnly: reduceOnly,
	})
}
