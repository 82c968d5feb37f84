package runner

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"binance_trader/internal/binance"
	"binance_trader/internal/models"
	"binance_trader/internal/storage"
	"binance_trader/internal/strategy"
)

// evaluate runs one strategy tick for a symbol. It holds evalMu for the whole
// read-lastSignal → size → order → write-lastSignal sequence; a failure
// anywhere abandons this tick only.
func (r *Runner) evaluate(ctx context.Context, symbol string, st *symbolState) {
	st.evalMu.Lock()
	defer st.evalMu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("evaluation panic", zap.String("symbol", symbol), zap.Any("panic", p))
		}
	}()

	st.mu.Lock()
	bars := make([]models.Bar, len(st.bars))
	copy(bars, st.bars)
	st.mu.Unlock()

	if len(bars) < minEvalBars {
		return
	}

	sigs := r.strat.GenerateSignals(bars)
	if len(sigs) == 0 {
		return
	}
	sig := sigs[len(sigs)-1]
	if sig == strategy.Flat || sig == st.lastSignal {
		return
	}

	px := bars[len(bars)-1].Close
	qty := r.opts.FixedQty
	if qty <= 0 {
		var err error
		qty, err = r.sizeByEquity(ctx, px)
		if err != nil {
			r.log.Warn("sizing failed, tick skipped", zap.String("symbol", symbol), zap.Error(err))
			return
		}
	}
	if qty <= 0 {
		r.log.Warn("zero quantity, tick skipped", zap.String("symbol", symbol))
		return
	}

	span := opentracing.StartSpan("place_order")
	span.SetTag("symbol", symbol)
	defer span.Finish()

	eng := r.exec[symbol]
	var (
		ack  binance.OrderAck
		err  error
		side string
	)
	if sig > 0 {
		side = models.SideBuy
		r.log.Info("signal BUY", zap.String("symbol", symbol), zap.Float64("qty", qty), zap.Float64("px", px))
		ack, err = eng.MarketBuy(ctx, qty, false)
	} else {
		side = models.SideSell
		r.log.Info("signal SELL", zap.String("symbol", symbol), zap.Float64("qty", qty), zap.Float64("px", px))
		ack, err = eng.MarketSell(ctx, qty, false)
	}
	if err != nil {
		span.SetTag("error", true)
		r.log.Error("order failed", zap.String("symbol", symbol), zap.Error(err))
		return
	}
	st.lastSignal = sig

	if err := r.journal.RecordOrder(ctx, storage.OrderRecord{
		PlacedAt:  time.Now().UnixMilli(),
		Symbol:    symbol,
		Side:      side,
		Quantity:  qty,
		LastClose: px,
		OrderID:   ack.OrderID,
		Status:    ack.Status,
	}); err != nil {
		r.log.Warn("order journal write failed", zap.Error(err))
	}
	r.n.Sendf("%s %s qty=%v px~%v (order %d %s)", symbol, side, qty, px, ack.OrderID, ack.Status)
}

// sizeByEquity computes quantity = equity * riskPerTrade / lastClose.
func (r *Runner) sizeByEquity(ctx context.Context, px float64) (float64, error) {
	acct, err := r.api.Account(ctx)
	if err != nil {
		return 0, err
	}
	qty := acct.Equity() * r.opts.RiskPerTrade / px
	if qty < 0 {
		qty = 0
	}
	return qty, nil
}
