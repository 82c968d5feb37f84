package storage

import "context"

// OrderRecord is one placed order as the runner saw it.
type OrderRecord struct {
	PlacedAt  int64 // epoch ms
	Symbol    string
	Side      string
	Quantity  float64
	LastClose float64
	OrderID   int64
	Status    string
}

// Journal persists placed orders. Failures are the caller's to log; the
// runner treats journaling as best-effort.
type Journal interface {
	RecordOrder(ctx context.Context, rec OrderRecord) error
	Close()
}

// Noop is used when no database is configured.
type Noop struct{}

func (Noop) RecordOrder(context.Context, OrderRecord) error { return nil }
func (Noop) Close()                                         {}
