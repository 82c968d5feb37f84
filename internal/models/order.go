package models

const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	TypeMarket = "MARKET"
	TypeLimit  = "LIMIT"
)

// OrderRequest describes one order to be sent to the exchange.
type OrderRequest struct {
	Symbol        string
	Side          string // BUY / SELL
	Type          string // MARKET / LIMIT
	Quantity      float64
	Price         float64 // LIMIT only
	TimeInForce   string  // LIMIT only
	ReduceOnly    bool
	ClientOrderID string
}
