package binance

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	userReconnectDelay = 5 * time.Second
	keepAliveInterval  = 30 * time.Minute
)

// User event markers as sent by the exchange.
const (
	EventOrderTradeUpdate = "ORDER_TRADE_UPDATE"
	EventAccountUpdate    = "ACCOUNT_UPDATE"
	EventListenKeyExpired = "listenKeyExpired"
)

// OrderUpdate is the `o` payload of ORDER_TRADE_UPDATE.
type OrderUpdate struct {
	Symbol       string `json:"s"`
	Side         string `json:"S"`
	Type         string `json:"o"`
	Status       string `json:"X"`
	OrderID      int64  `json:"i"`
	OrigQty      string `json:"q"`
	AvgPrice     string `json:"ap"`
	LastFilled   string `json:"l"`
	FilledTotal  string `json:"z"`
	RealizedPnl  string `json:"rp"`
	ReduceOnly   bool   `json:"R"`
	ExecutionTyp string `json:"x"`
}

// AccountUpdate is the `a` payload of ACCOUNT_UPDATE.
type AccountUpdate struct {
	Reason   string `json:"m"`
	Balances []struct {
		Asset         string `json:"a"`
		WalletBalance string `json:"wb"`
	} `json:"B"`
}

// UserEvent is one decoded user-stream message. Type is empty for shapes we
// do not recognize; Raw always carries the verbatim frame.
type UserEvent struct {
	Type          string
	EventTime     int64
	OrderUpdate   *OrderUpdate
	AccountUpdate *AccountUpdate
	Raw           []byte
}

type listenKeyAPI interface {
	CreateListenKey(ctx context.Context) (string, error)
	KeepAliveListenKey(ctx context.Context, key string) error
}

// UserStream owns the listen-key lifecycle: create on connect, renew every 30
// minutes while the connection lives, discard and recreate on reconnect.
type UserStream struct {
	base    string
	api     listenKeyAPI
	dialer  *websocket.Dialer
	log     *zap.Logger
	stopped atomic.Bool
}

func NewUserStream(base string, api listenKeyAPI, log *zap.Logger) *UserStream {
	return &UserStream{
		base:   strings.TrimRight(base, "/"),
		api:    api,
		dialer: &websocket.Dialer{},
		log:    log,
	}
}

// Stop requests cooperative shutdown. It is observed at the next reconnect
// boundary, never mid-connection.
func (s *UserStream) Stop() { s.stopped.Store(true) }

// Run loops create-key → connect → read until ctx is cancelled or Stop was
// requested. The keepalive goroutine is bound to its connection's context and
// cannot outlive it.
func (s *UserStream) Run(ctx context.Context, onEvent func(UserEvent)) {
	for !s.stopped.Load() {
		if ctx.Err() != nil {
			return
		}

		key, err := s.api.CreateListenKey(ctx)
		if err != nil {
			s.log.Warn("listenKey create failed", zap.Error(err))
			if !sleepCtx(ctx, userReconnectDelay) {
				return
			}
			continue
		}

		wsURL := s.base + "/ws/" + key
		conn, _, err := s.dialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			s.log.Warn("user ws dial failed", zap.Error(err))
			if !sleepCtx(ctx, userReconnectDelay) {
				return
			}
			continue
		}
		s.log.Info("user ws connected")

		// connCtx owns both the keepalive goroutine and the connection
		// itself: cancelling it (read error or parent shutdown) closes the
		// socket, which unblocks ReadMessage.
		connCtx, cancel := context.WithCancel(ctx)
		go s.keepAlive(connCtx, key)
		go func() {
			<-connCtx.Done()
			_ = conn.Close()
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				s.log.Warn("user ws read failed, reconnecting", zap.Error(err))
				break
			}
			onEvent(decodeUserEvent(msg))
		}

		if !sleepCtx(ctx, userReconnectDelay) {
			return
		}
	}
}

func (s *UserStream) keepAlive(ctx context.Context, key string) {
	t := time.NewTicker(keepAliveInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.api.KeepAliveListenKey(ctx, key); err != nil {
				s.log.Warn("listenKey keepalive failed", zap.Error(err))
				continue
			}
			s.log.Info("listenKey keepalive sent")
		}
	}
}

func decodeUserEvent(msg []byte) UserEvent {
	var head struct {
		Event     string `json:"e"`
		EventTime int64  `json:"E"`
	}
	ev := UserEvent{Raw: msg}
	if err := sonic.Unmarshal(msg, &head); err != nil {
		return ev
	}
	ev.EventTime = head.EventTime

	switch head.Event {
	case EventOrderTradeUpdate:
		var body struct {
			Order OrderUpdate `json:"o"`
		}
		if err := sonic.Unmarshal(msg, &body); err == nil {
			ev.Type = EventOrderTradeUpdate
			ev.OrderUpdate = &body.Order
		}
	case EventAccountUpdate:
		var body struct {
			Account AccountUpdate `json:"a"`
		}
		if err := sonic.Unmarshal(msg, &body); err == nil {
			ev.Type = EventAccountUpdate
			ev.AccountUpdate = &body.Account
		}
	case EventListenKeyExpired:
		ev.Type = EventListenKeyExpired
	}
	return ev
}
