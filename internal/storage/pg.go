package storage

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const ordersSchema = `
CREATE TABLE IF NOT EXISTS orders (
    id         BIGSERIAL PRIMARY KEY,
    placed_at  BIGINT           NOT NULL,
    symbol     TEXT             NOT NULL,
    side       TEXT             NOT NULL,
    quantity   DOUBLE PRECISION NOT NULL,
    last_close DOUBLE PRECISION NOT NULL,
    order_id   BIGINT           NOT NULL,
    status     TEXT             NOT NULL
)`

// PgJournal writes every placed order to postgres.
type PgJournal struct {
	pool *pgxpool.Pool
}

func NewPgJournal(ctx context.Context, pool *pgxpool.Pool) (*PgJournal, error) {
	if _, err := pool.Exec(ctx, ordersSchema); err != nil {
		return nil, errors.Wrap(err, "ensure orders table")
	}
	return &PgJournal{pool: pool}, nil
}

func (j *PgJournal) RecordOrder(ctx context.Context, rec OrderRecord) error {
	_, err := j.pool.Exec(ctx,
		`INSERT INTO orders (placed_at, symbol, side, quantity, last_close, order_id, status)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.PlacedAt, rec.Symbol, rec.Side, rec.Quantity, rec.LastClose, rec.OrderID, rec.Status,
	)
	return errors.Wrap(err, "insert order")
}

func (j *PgJournal) Close() { j.pool.Close() }
