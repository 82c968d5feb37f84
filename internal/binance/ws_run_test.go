package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// wsServer serves one frame per connection and then drops it, forcing the
// client through its reconnect path.
func wsServer(t *testing.T, frame func(conn int32) string) (*httptest.Server, *atomic.Int32, func() []string) {
	t.Helper()
	var conns atomic.Int32
	var mu sync.Mutex
	var paths []string
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := conns.Add(1)
		_ = c.WriteMessage(websocket.TextMessage, []byte(frame(n)))
		_ = c.Close()
	}))
	t.Cleanup(srv.Close)

	seenPaths := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), paths...)
	}
	return srv, &conns, seenPaths
}

func wsBase(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestMarketStreamResumesAfterDisconnect(t *testing.T) {
	srv, conns, _ := wsServer(t, func(n int32) string {
		return fmt.Sprintf(`{"stream":"btcusdt@kline_1m","data":{"e":"kline","E":%d,"s":"BTCUSDT","k":{"t":%d,"T":%d,"s":"BTCUSDT","i":"1m","o":"1","h":"1","l":"1","c":"1","v":"1","x":true}}}`,
			n, n*60_000, n*60_000+59_999)
	})

	s := NewMarketStream(wsBase(srv), []string{"BTCUSDT"}, "1m", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan KlineEvent, 8)
	done := make(chan struct{})
	go func() {
		s.Run(ctx, func(ev KlineEvent) { events <- ev })
		close(done)
	}()

	// One event per connection: the second only arrives after the server
	// dropped the first connection and the client redialed.
	for i := 0; i < 2; i++ {
		select {
		case ev := <-events:
			assert.Equal(t, "BTCUSDT", ev.Symbol)
			assert.True(t, ev.Kline.Closed)
		case <-time.After(15 * time.Second):
			t.Fatalf("no event on connection %d", i+1)
		}
	}
	assert.GreaterOrEqual(t, conns.Load(), int32(2))

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

type fakeListenKeyAPI struct {
	mu         sync.Mutex
	created    int
	keepalives int
}

func (f *fakeListenKeyAPI) CreateListenKey(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return fmt.Sprintf("key-%d", f.created), nil
}

func (f *fakeListenKeyAPI) KeepAliveListenKey(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keepalives++
	return nil
}

func (f *fakeListenKeyAPI) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

func TestUserStreamReconnectsWithFreshKey(t *testing.T) {
	srv, _, seenPaths := wsServer(t, func(n int32) string {
		return fmt.Sprintf(`{"e":"ORDER_TRADE_UPDATE","E":%d,"o":{"s":"BTCUSDT","S":"BUY","X":"FILLED","i":%d}}`, n, n)
	})

	api := &fakeListenKeyAPI{}
	s := NewUserStream(wsBase(srv), api, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan UserEvent, 8)
	done := make(chan struct{})
	go func() {
		s.Run(ctx, func(ev UserEvent) { events <- ev })
		close(done)
	}()

	for i := 0; i < 2; i++ {
		select {
		case ev := <-events:
			assert.Equal(t, EventOrderTradeUpdate, ev.Type)
		case <-time.After(20 * time.Second):
			t.Fatalf("no event on connection %d", i+1)
		}
	}

	// Every reconnect starts a new session rather than reusing the old key.
	assert.GreaterOrEqual(t, api.createdCount(), 2)
	paths := seenPaths()
	require.GreaterOrEqual(t, len(paths), 2)
	assert.Equal(t, "/ws/key-1", paths[0])
	assert.Equal(t, "/ws/key-2", paths[1])

	// Stop is honored at the next iteration boundary, not mid-connection.
	s.Stop()
	select {
	case <-done:
	case <-time.After(20 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestKeepAliveBoundToConnectionContext(t *testing.T) {
	api := &fakeListenKeyAPI{}
	s := NewUserStream("ws://unused", api, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.keepAlive(ctx, "key-1")
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("keepAlive outlived its connection context")
	}
	assert.Zero(t, api.keepalives, "no renewal may fire after teardown")
}
