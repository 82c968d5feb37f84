package history

import (
	"context"
	"time"

	"binance_trader/internal/models"
)

const (
	pageLimit = 1500
	pageDelay = 200 * time.Millisecond // rate limit buffer between pages
)

type klinesAPI interface {
	Klines(ctx context.Context, symbol, interval string, limit int, startMs, endMs int64) ([]models.Bar, error)
}

// FetchKlines pages through /klines, advancing startTime to the last returned
// close time + 1 until the requested end is covered or a short page arrives.
func FetchKlines(ctx context.Context, api klinesAPI, symbol, interval string, startMs, endMs int64) ([]models.Bar, error) {
	var out []models.Bar
	cur := startMs
	for {
		page, err := api.Klines(ctx, symbol, interval, pageLimit, cur, endMs)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		out = append(out, page...)

		lastClose := page[len(page)-1].CloseTime
		if lastClose >= endMs || len(page) < pageLimit {
			break
		}
		cur = lastClose + 1

		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-time.After(pageDelay):
		}
	}
	return out, nil
}

// IntervalDuration maps a kline interval string to its duration, 0 when
// unknown.
func IntervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "3m":
		return 3 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "2h":
		return 2 * time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return 0
	}
}
