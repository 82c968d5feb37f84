package binance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"binance_trader/internal/models"
)

const marketReconnectDelay = 3 * time.Second

// Kline is the embedded candle payload of a kline stream frame.
type Kline struct {
	OpenTime  int64  `json:"t"`
	CloseTime int64  `json:"T"`
	Symbol    string `json:"s"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Close     string `json:"c"`
	Volume    string `json:"v"`
	Closed    bool   `json:"x"`
}

// Bar converts the string-typed wire candle into a models.Bar.
func (k Kline) Bar() models.Bar {
	return models.Bar{
		OpenTime:  k.OpenTime,
		Open:      asFloat(k.Open),
		High:      asFloat(k.High),
		Low:       asFloat(k.Low),
		Close:     asFloat(k.Close),
		Volume:    asFloat(k.Volume),
		CloseTime: k.CloseTime,
	}
}

// KlineEvent is one per-symbol candle update from the combined stream.
type KlineEvent struct {
	Symbol    string
	EventTime int64
	Kline     Kline
}

type combinedFrame struct {
	Stream string `json:"stream"`
	Data   struct {
		Event     string `json:"e"`
		EventTime int64  `json:"E"`
		Symbol    string `json:"s"`
		Kline     Kline  `json:"k"`
	} `json:"data"`
}

// MarketStream consumes one combined kline stream for the whole symbol set.
// URL: {base}/stream?streams=btcusdt@kline_1m/ethusdt@kline_1m
type MarketStream struct {
	url    string
	dialer *websocket.Dialer
	log    *zap.Logger
}

func NewMarketStream(base string, symbols []string, interval string, log *zap.Logger) *MarketStream {
	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		streams = append(streams, fmt.Sprintf("%s@kline_%s", strings.ToLower(s), interval))
	}
	return &MarketStream{
		url:    strings.TrimRight(base, "/") + "/stream?streams=" + strings.Join(streams, "/"),
		dialer: &websocket.Dialer{},
		log:    log,
	}
}

// Run delivers events in arrival order until ctx is cancelled. Any stream
// error is logged and followed by a fixed-delay reconnect; Run never gives up
// on its own.
func (s *MarketStream) Run(ctx context.Context, onEvent func(KlineEvent)) {
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
		if err != nil {
			s.log.Warn("market ws dial failed", zap.Error(err))
			if !sleepCtx(ctx, marketReconnectDelay) {
				return
			}
			continue
		}
		s.log.Info("market ws connected", zap.String("url", s.url))

		// Closing the socket on cancellation unblocks ReadMessage so Run can
		// observe ctx and return during shutdown.
		connCtx, cancel := context.WithCancel(ctx)
		go func() {
			<-connCtx.Done()
			_ = conn.Close()
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				s.log.Warn("market ws read failed, reconnecting", zap.Error(err))
				break
			}

			var frame combinedFrame
			if err := sonic.Unmarshal(msg, &frame); err != nil {
				continue
			}
			if frame.Data.Event != "kline" {
				continue
			}
			sym := frame.Data.Symbol
			if sym == "" {
				sym = frame.Data.Kline.Symbol
			}
			onEvent(KlineEvent{
				Symbol:    strings.ToUpper(sym),
				EventTime: frame.Data.EventTime,
				Kline:     frame.Data.Kline,
			})
		}

		if !sleepCtx(ctx, marketReconnectDelay) {
			return
		}
	}
}

// sleepCtx reports false when ctx fired before the delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
