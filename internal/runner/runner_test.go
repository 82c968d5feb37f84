package runner

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"binance_trader/internal/binance"
	"binance_trader/internal/models"
	"binance_trader/internal/notify"
	"binance_trader/internal/storage"
	"binance_trader/internal/strategy"
)

// fixedStrategy always reports the same last signal once enough bars exist.
type fixedStrategy struct {
	sig int
}

func (f fixedStrategy) GenerateSignals(bars []models.Bar) []int {
	out := make([]int, len(bars))
	if len(out) > 0 {
		out[len(out)-1] = f.sig
	}
	return out
}

// panicStrategy exercises per-tick panic isolation.
type panicStrategy struct{}

func (panicStrategy) GenerateSignals([]models.Bar) []int { panic("boom") }

type mockEngine struct {
	mu          sync.Mutex
	buys, sells int
	lastQty     float64
	err         error
}

func (m *mockEngine) EnsureLeverage(context.Context, int)      {}
func (m *mockEngine) EnsureMarginType(context.Context, string) {}

func (m *mockEngine) MarketBuy(_ context.Context, qty float64, _ bool) (binance.OrderAck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return binance.OrderAck{}, m.err
	}
	m.buys++
	m.lastQty = qty
	return binance.OrderAck{OrderID: 1, Status: "NEW"}, nil
}

func (m *mockEngine) MarketSell(_ context.Context, qty float64, _ bool) (binance.OrderAck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return binance.OrderAck{}, m.err
	}
	m.sells++
	m.lastQty = qty
	return binance.OrderAck{OrderID: 2, Status: "NEW"}, nil
}

func (m *mockEngine) buysCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buys
}

type mockAPI struct {
	equity string
	bars   []models.Bar
	err    error
}

func (m *mockAPI) Account(context.Context) (binance.Account, error) {
	if m.err != nil {
		return binance.Account{}, m.err
	}
	return binance.Account{TotalWalletBalance: m.equity}, nil
}

func (m *mockAPI) Klines(context.Context, string, string, int, int64, int64) ([]models.Bar, error) {
	return m.bars, nil
}

type noopMarket struct{}

func (noopMarket) Run(ctx context.Context, _ func(binance.KlineEvent)) { <-ctx.Done() }

type noopUser struct{ stopped bool }

func (u *noopUser) Run(ctx context.Context, _ func(binance.UserEvent)) { <-ctx.Done() }
func (u *noopUser) Stop()                                              { u.stopped = true }

func mkBars(n int, close float64) []models.Bar {
	out := make([]models.Bar, n)
	for i := range out {
		out[i] = models.Bar{OpenTime: int64(i) * 60_000, Close: close, CloseTime: int64(i+1)*60_000 - 1}
	}
	return out
}

func newTestRunner(t *testing.T, opts Options, api *mockAPI, eng *mockEngine, strat strategy.Strategy) *Runner {
	t.Helper()
	if opts.Symbols == nil {
		opts.Symbols = []string{"BTCUSDT"}
	}
	exec := make(map[string]OrderEngine, len(opts.Symbols))
	for _, s := range opts.Symbols {
		exec[s] = eng
	}
	return New(opts, api, noopMarket{}, &noopUser{}, exec, strat,
		storage.Noop{}, notify.NewLog(zap.NewNop()), zap.NewNop())
}

func klineEvent(symbol string, openTime int64, close float64, closed bool) binance.KlineEvent {
	return binance.KlineEvent{
		Symbol: symbol,
		Kline: binance.Kline{
			OpenTime:  openTime,
			CloseTime: openTime + 59_999,
			Symbol:    symbol,
			Close:     formatClose(close),
			Closed:    closed,
		},
	}
}

func formatClose(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func TestBufferReplaceAndAppend(t *testing.T) {
	r := newTestRunner(t, Options{Lookback: 3, FixedQty: 1}, &mockAPI{}, &mockEngine{}, fixedStrategy{sig: 0})
	st := r.states["BTCUSDT"]

	// Updates sharing the tail's open time replace in place.
	r.onMarket(klineEvent("BTCUSDT", 0, 100, false))
	r.onMarket(klineEvent("BTCUSDT", 0, 101, false))
	require.Len(t, st.bars, 1)
	assert.Equal(t, 101.0, st.bars[0].Close)

	// New open times append and trim to lookback.
	r.onMarket(klineEvent("BTCUSDT", 60_000, 102, false))
	r.onMarket(klineEvent("BTCUSDT", 120_000, 103, false))
	r.onMarket(klineEvent("BTCUSDT", 180_000, 104, false))
	require.Len(t, st.bars, 3, "buffer never exceeds lookback")
	assert.Equal(t, int64(60_000), st.bars[0].OpenTime)
	assert.Equal(t, 104.0, st.bars[2].Close)
}

func TestIgnoresUnknownSymbol(t *testing.T) {
	r := newTestRunner(t, Options{Lookback: 3, FixedQty: 1}, &mockAPI{}, &mockEngine{}, fixedStrategy{sig: 0})
	r.onMarket(klineEvent("DOGEUSDT", 0, 1, true))
	assert.Empty(t, r.states["BTCUSDT"].bars)
}

func TestOrderOnlyOnSignalFlip(t *testing.T) {
	eng := &mockEngine{}
	r := newTestRunner(t, Options{Lookback: 100, FixedQty: 0.5}, &mockAPI{}, eng, fixedStrategy{sig: strategy.Long})
	st := r.states["BTCUSDT"]
	st.bars = mkBars(20, 100)

	ctx := context.Background()

	r.evaluate(ctx, "BTCUSDT", st)
	assert.Equal(t, 1, eng.buys)
	assert.Equal(t, strategy.Long, st.lastSignal)

	// Same signal again, e.g. after a stream reconnect: no duplicate order.
	r.evaluate(ctx, "BTCUSDT", st)
	assert.Equal(t, 1, eng.buys)

	// A flip to short places exactly one sell.
	r.strat = fixedStrategy{sig: strategy.Short}
	r.evaluate(ctx, "BTCUSDT", st)
	assert.Equal(t, 1, eng.sells)
	assert.Equal(t, strategy.Short, st.lastSignal)
	assert.Equal(t, 0.5, eng.lastQty)
}

func TestFlatSignalPlacesNothing(t *testing.T) {
	eng := &mockEngine{}
	r := newTestRunner(t, Options{Lookback: 100, FixedQty: 1}, &mockAPI{}, eng, fixedStrategy{sig: strategy.Flat})
	st := r.states["BTCUSDT"]
	st.bars = mkBars(20, 100)

	r.evaluate(context.Background(), "BTCUSDT", st)
	assert.Zero(t, eng.buys+eng.sells)
	assert.Equal(t, strategy.Flat, st.lastSignal)
}

func TestTooFewBarsSkipsEvaluation(t *testing.T) {
	eng := &mockEngine{}
	r := newTestRunner(t, Options{Lookback: 100, FixedQty: 1}, &mockAPI{}, eng, fixedStrategy{sig: strategy.Long})
	st := r.states["BTCUSDT"]
	st.bars = mkBars(minEvalBars-1, 100)

	r.evaluate(context.Background(), "BTCUSDT", st)
	assert.Zero(t, eng.buys)
	assert.Equal(t, strategy.Flat, st.lastSignal)
}

func TestEquitySizing(t *testing.T) {
	eng := &mockEngine{}
	api := &mockAPI{equity: "10000"}
	r := newTestRunner(t, Options{Lookback: 100, RiskPerTrade: 0.01}, api, eng, fixedStrategy{sig: strategy.Long})
	st := r.states["BTCUSDT"]
	st.bars = mkBars(20, 200)

	r.evaluate(context.Background(), "BTCUSDT", st)
	require.Equal(t, 1, eng.buys)
	// 10000 * 0.01 / 200
	assert.InDelta(t, 0.5, eng.lastQty, 1e-12)
}

func TestSizingFailureSkipsTick(t *testing.T) {
	eng := &mockEngine{}
	api := &mockAPI{err: errors.New("account unavailable")}
	r := newTestRunner(t, Options{Lookback: 100, RiskPerTrade: 0.01}, api, eng, fixedStrategy{sig: strategy.Long})
	st := r.states["BTCUSDT"]
	st.bars = mkBars(20, 200)

	r.evaluate(context.Background(), "BTCUSDT", st)
	assert.Zero(t, eng.buys)
	assert.Equal(t, strategy.Flat, st.lastSignal, "failed tick must not consume the flip")
}

func TestOrderErrorKeepsLastSignal(t *testing.T) {
	eng := &mockEngine{err: errors.New("insufficient margin")}
	r := newTestRunner(t, Options{Lookback: 100, FixedQty: 1}, &mockAPI{}, eng, fixedStrategy{sig: strategy.Long})
	st := r.states["BTCUSDT"]
	st.bars = mkBars(20, 100)

	r.evaluate(context.Background(), "BTCUSDT", st)
	assert.Equal(t, strategy.Flat, st.lastSignal)

	// Once the venue recovers the same flip is retried on the next tick.
	eng.err = nil
	r.evaluate(context.Background(), "BTCUSDT", st)
	assert.Equal(t, 1, eng.buys)
	assert.Equal(t, strategy.Long, st.lastSignal)
}

func TestEvaluationPanicIsContained(t *testing.T) {
	eng := &mockEngine{}
	r := newTestRunner(t, Options{Lookback: 100, FixedQty: 1}, &mockAPI{}, eng, panicStrategy{})
	st := r.states["BTCUSDT"]
	st.bars = mkBars(20, 100)

	assert.NotPanics(t, func() {
		r.evaluate(context.Background(), "BTCUSDT", st)
	})
	assert.Zero(t, eng.buys)
}

func TestPrimeTrimsToLookback(t *testing.T) {
	api := &mockAPI{bars: mkBars(30, 100)}
	r := newTestRunner(t, Options{Lookback: 25, FixedQty: 1, Interval: "1m"}, api, &mockEngine{}, fixedStrategy{sig: 0})

	require.NoError(t, r.Prime(context.Background()))
	st := r.states["BTCUSDT"]
	require.Len(t, st.bars, 25)
	assert.Equal(t, int64(5*60_000), st.bars[0].OpenTime)
	assert.Equal(t, strategy.Flat, st.lastSignal, "priming never seeds a position")
}

func TestClosedCandleEvaluatesThroughWorker(t *testing.T) {
	eng := &mockEngine{}
	api := &mockAPI{bars: mkBars(20, 100)}
	r := newTestRunner(t, Options{Lookback: 100, FixedQty: 1, Interval: "1m"}, api, eng, fixedStrategy{sig: strategy.Long})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()

	st := r.states["BTCUSDT"]
	require.Eventually(t, func() bool {
		st.mu.Lock()
		defer st.mu.Unlock()
		return len(st.bars) == 20
	}, 5*time.Second, 10*time.Millisecond, "priming never finished")

	// A closed candle queues exactly one evaluation on the symbol's worker.
	r.onMarket(klineEvent("BTCUSDT", 20*60_000, 101, true))
	require.Eventually(t, func() bool {
		return eng.buysCount() == 1
	}, 5*time.Second, 10*time.Millisecond, "worker never evaluated the tick")

	// Further ticks with an unchanged signal stay order-free.
	r.onMarket(klineEvent("BTCUSDT", 21*60_000, 102, true))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, eng.buysCount())

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestStopForwardsToUserStream(t *testing.T) {
	user := &noopUser{}
	r := New(Options{Symbols: []string{"BTCUSDT"}, Lookback: 10, FixedQty: 1},
		&mockAPI{}, noopMarket{}, user, map[string]OrderEngine{"BTCUSDT": &mockEngine{}},
		fixedStrategy{sig: 0}, storage.Noop{}, notify.NewLog(zap.NewNop()), zap.NewNop())

	r.Stop()
	assert.True(t, user.stopped)
}
