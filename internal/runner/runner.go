package runner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"binance_trader/internal/binance"
	"binance_trader/internal/history"
	"binance_trader/internal/models"
	"binance_trader/internal/notify"
	"binance_trader/internal/storage"
	"binance_trader/internal/strategy"
)

// minEvalBars gates strategy evaluation until the buffer has enough history.
const minEvalBars = 10

// primeMargin is the extra bar count fetched over lookback during priming.
const primeMargin = 50

// MarketFeed delivers candle updates until cancelled.
type MarketFeed interface {
	Run(ctx context.Context, onEvent func(binance.KlineEvent))
}

// UserFeed delivers account/order events until cancelled or stopped.
type UserFeed interface {
	Run(ctx context.Context, onEvent func(binance.UserEvent))
	Stop()
}

// OrderEngine is the per-symbol execution adapter.
type OrderEngine interface {
	EnsureLeverage(ctx context.Context, leverage int)
	EnsureMarginType(ctx context.Context, marginType string)
	MarketBuy(ctx context.Context, qty float64, reduceOnly bool) (binance.OrderAck, error)
	MarketSell(ctx context.Context, qty float64, reduceOnly bool) (binance.OrderAck, error)
}

type restAPI interface {
	Account(ctx context.Context) (binance.Account, error)
	Klines(ctx context.Context, symbol, interval string, limit int, startMs, endMs int64) ([]models.Bar, error)
}

// Options is the CLI-facing runner configuration.
type Options struct {
	Symbols        []string
	Interval       string
	StrategyName   string
	StrategyParams strategy.Params
	Lookback       int
	FixedQty       float64 // 0 means size from equity
	RiskPerTrade   float64
	MaxLeverage    int
}

// symbolState is owned by the runner. bars is guarded by mu (touched from the
// stream reader); evalMu serializes the whole evaluate→size→order→lastSignal
// path so two evaluations for one symbol can never race. Closed-candle ticks
// funnel through evalCh into one worker per symbol, so evaluations also run
// strictly in arrival order.
type symbolState struct {
	mu     sync.Mutex
	bars   []models.Bar
	evalMu sync.Mutex
	// lastSignal is read and written only under evalMu.
	lastSignal int
	evalCh     chan struct{}
}

// Runner drives the live trading loop: primed candle buffers, one combined
// market stream, one user stream, at most one order per signal flip.
type Runner struct {
	opts    Options
	api     restAPI
	market  MarketFeed
	user    UserFeed
	exec    map[string]OrderEngine
	strat   strategy.Strategy
	journal storage.Journal
	n       notify.Notifier
	log     *zap.Logger

	states map[string]*symbolState
}

func New(
	opts Options,
	api restAPI,
	market MarketFeed,
	user UserFeed,
	exec map[string]OrderEngine,
	strat strategy.Strategy,
	journal storage.Journal,
	n notify.Notifier,
	log *zap.Logger,
) *Runner {
	states := make(map[string]*symbolState, len(opts.Symbols))
	for _, s := range opts.Symbols {
		states[s] = &symbolState{evalCh: make(chan struct{}, 1)}
	}
	return &Runner{
		opts:    opts,
		api:     api,
		market:  market,
		user:    user,
		exec:    exec,
		strat:   strat,
		journal: journal,
		n:       n,
		log:     log,
		states:  states,
	}
}

// Prime fills every symbol's buffer from REST before streaming starts.
func (r *Runner) Prime(ctx context.Context) error {
	iv := history.IntervalDuration(r.opts.Interval)
	if iv <= 0 {
		iv = time.Minute
	}
	endMs := time.Now().UnixMilli()
	startMs := endMs - iv.Milliseconds()*int64(r.opts.Lookback+primeMargin)

	for _, sym := range r.opts.Symbols {
		bars, err := history.FetchKlines(ctx, r.api, sym, r.opts.Interval, startMs, endMs)
		if err != nil {
			return err
		}
		if len(bars) > r.opts.Lookback {
			bars = bars[len(bars)-r.opts.Lookback:]
		}
		st := r.states[sym]
		st.mu.Lock()
		st.bars = bars
		st.mu.Unlock()
		r.log.Info("primed", zap.String("symbol", sym), zap.Int("bars", len(bars)))
	}
	return nil
}

// Run primes, applies best-effort leverage/margin setup and then blocks on
// both streams. Each stream reconnects forever internally, so under normal
// operation Run only returns on cancellation.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Prime(ctx); err != nil {
		return err
	}

	if len(r.opts.Symbols) > 0 {
		// Kept from the reference behavior: setup applies to the first
		// configured symbol only.
		e := r.exec[r.opts.Symbols[0]]
		e.EnsureMarginType(ctx, "ISOLATED")
		e.EnsureLeverage(ctx, r.opts.MaxLeverage)
	}

	for sym, st := range r.states {
		go r.evalLoop(ctx, sym, st)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.market.Run(ctx, r.onMarket)
	}()
	go func() {
		defer wg.Done()
		r.user.Run(ctx, r.onUser)
	}()
	wg.Wait()
	return ctx.Err()
}

// Stop requests cooperative shutdown of the user stream.
func (r *Runner) Stop() { r.user.Stop() }

// onMarket applies the buffer update rule: an update with the tail's open
// time replaces the still-open candle in place, anything else appends and
// trims to lookback from the tail.
func (r *Runner) onMarket(ev binance.KlineEvent) {
	st, ok := r.states[ev.Symbol]
	if !ok {
		return
	}
	bar := ev.Kline.Bar()

	st.mu.Lock()
	if n := len(st.bars); n > 0 && st.bars[n-1].OpenTime == bar.OpenTime {
		st.bars[n-1] = bar
	} else {
		st.bars = append(st.bars, bar)
		if len(st.bars) > r.opts.Lookback {
			st.bars = st.bars[len(st.bars)-r.opts.Lookback:]
		}
	}
	st.mu.Unlock()

	if ev.Kline.Closed {
		select {
		case st.evalCh <- struct{}{}:
		default:
			// a tick is already queued; the pending evaluation will see the
			// latest buffer anyway
		}
	}
}

// evalLoop drains a symbol's tick channel one evaluation at a time, keeping
// blocking REST calls off the stream reader goroutine.
func (r *Runner) evalLoop(ctx context.Context, symbol string, st *symbolState) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-st.evalCh:
			r.evaluate(ctx, symbol, st)
		}
	}
}
