package runner

import (
	"go.uber.org/zap"

	"binance_trader/internal/binance"
)

// onUser logs user-stream events by recognized type. Nothing here feeds back
// into trading state; the stream is observational in this implementation.
func (r *Runner) onUser(ev binance.UserEvent) {
	switch ev.Type {
	case binance.EventOrderTradeUpdate:
		o := ev.OrderUpdate
		r.log.Info("user order update",
			zap.String("symbol", o.Symbol),
			zap.String("side", o.Side),
			zap.String("status", o.Status),
			zap.Int64("orderId", o.OrderID),
			zap.String("filled", o.FilledTotal),
			zap.String("avgPrice", o.AvgPrice),
		)
	case binance.EventAccountUpdate:
		a := ev.AccountUpdate
		fields := []zap.Field{zap.String("reason", a.Reason)}
		for _, b := range a.Balances {
			fields = append(fields, zap.String("balance."+b.Asset, b.WalletBalance))
		}
		r.log.Info("user account update", fields...)
	case binance.EventListenKeyExpired:
		r.log.Warn("listenKey expired, stream will reconnect")
	default:
		r.log.Info("user event", zap.ByteString("raw", ev.Raw))
	}
}
