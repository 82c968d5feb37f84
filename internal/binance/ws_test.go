package binance

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMarketStreamURL(t *testing.T) {
	s := NewMarketStream("wss://stream.binancefuture.com/", []string{"BTCUSDT", "ethusdt"}, "1m", zap.NewNop())
	assert.Equal(t,
		"wss://stream.binancefuture.com/stream?streams=btcusdt@kline_1m/ethusdt@kline_1m",
		s.url)
}

func TestCombinedFrameDecode(t *testing.T) {
	msg := []byte(`{
		"stream": "btcusdt@kline_1m",
		"data": {
			"e": "kline", "E": 1700000060123, "s": "BTCUSDT",
			"k": {
				"t": 1700000000000, "T": 1700000059999, "s": "BTCUSDT", "i": "1m",
				"o": "100.1", "h": "101.2", "l": "99.5", "c": "100.9", "v": "12.3",
				"x": true
			}
		}
	}`)

	var frame combinedFrame
	require.NoError(t, sonic.Unmarshal(msg, &frame))
	assert.Equal(t, "kline", frame.Data.Event)
	assert.Equal(t, "BTCUSDT", frame.Data.Symbol)
	assert.True(t, frame.Data.Kline.Closed)

	bar := frame.Data.Kline.Bar()
	assert.Equal(t, int64(1700000000000), bar.OpenTime)
	assert.Equal(t, int64(1700000059999), bar.CloseTime)
	assert.Equal(t, 100.9, bar.Close)
	assert.Equal(t, 12.3, bar.Volume)
}

func TestDecodeUserEventOrderUpdate(t *testing.T) {
	msg := []byte(`{
		"e": "ORDER_TRADE_UPDATE", "E": 1700000060123,
		"o": {
			"s": "BTCUSDT", "S": "BUY", "o": "MARKET", "X": "FILLED",
			"i": 42, "q": "0.010", "ap": "100.9", "z": "0.010", "rp": "0"
		}
	}`)

	ev := decodeUserEvent(msg)
	assert.Equal(t, EventOrderTradeUpdate, ev.Type)
	assert.Equal(t, int64(1700000060123), ev.EventTime)
	require.NotNil(t, ev.OrderUpdate)
	assert.Equal(t, "BTCUSDT", ev.OrderUpdate.Symbol)
	assert.Equal(t, "FILLED", ev.OrderUpdate.Status)
	assert.Equal(t, int64(42), ev.OrderUpdate.OrderID)
	assert.Nil(t, ev.AccountUpdate)
}

func TestDecodeUserEventAccountUpdate(t *testing.T) {
	msg := []byte(`{
		"e": "ACCOUNT_UPDATE", "E": 1700000060456,
		"a": {"m": "ORDER", "B": [{"a": "USDT", "wb": "999.5"}]}
	}`)

	ev := decodeUserEvent(msg)
	assert.Equal(t, EventAccountUpdate, ev.Type)
	require.NotNil(t, ev.AccountUpdate)
	require.Len(t, ev.AccountUpdate.Balances, 1)
	assert.Equal(t, "USDT", ev.AccountUpdate.Balances[0].Asset)
	assert.Equal(t, "999.5", ev.AccountUpdate.Balances[0].WalletBalance)
}

func TestDecodeUserEventListenKeyExpired(t *testing.T) {
	ev := decodeUserEvent([]byte(`{"e": "listenKeyExpired", "E": 1700000060789}`))
	assert.Equal(t, EventListenKeyExpired, ev.Type)
	assert.Equal(t, int64(1700000060789), ev.EventTime)
}

func TestDecodeUserEventUnrecognized(t *testing.T) {
	raw := []byte(`{"e": "MARGIN_CALL", "E": 1700000061000, "p": "whatever"}`)
	ev := decodeUserEvent(raw)
	assert.Empty(t, ev.Type, "unknown shapes fall back to raw delivery")
	assert.Equal(t, raw, ev.Raw)
	assert.Equal(t, int64(1700000061000), ev.EventTime)

	ev = decodeUserEvent([]byte("not json"))
	assert.Empty(t, ev.Type)
	assert.NotEmpty(t, ev.Raw)
}
