package scanner

import (
	"context"
	"sync"
	"testing"
	"time"

	"signal_bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(src CandleSource, backoffs *[]time.Duration) *Fetcher {
	f := NewFetcher(src, RetryPolicy{MaxAttempts: 3, Backoff: 2 * time.Second}, 0, nil)
	f.sleep = func(_ context.Context, d time.Duration) error {
		if backoffs != nil {
			*backoffs = append(*backoffs, d)
		}
		return nil
	}
	return f
}

func TestFetch_TwoFailuresThenSuccess(t *testing.T) {
	src := newFakeSource()
	src.set("BTC_USDT", flatCandles(20, time.Minute))
	src.fails["BTC_USDT"] = 2

	var backoffs []time.Duration
	candles, err := newTestFetcher(src, &backoffs).Fetch(context.Background(), Request{Symbol: "BTC_USDT", Timeframe: "1m", Limit: 20, MinCandles: 10})

	require.NoError(t, err)
	assert.Len(t, candles, 20)
	assert.Equal(t, 3, src.callCount("BTC_USDT"))
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, backoffs)
}

func TestFetch_UnavailableAfterThreeAttempts(t *testing.T) {
	src := newFakeSource()
	src.fails["BTC_USDT"] = 10

	_, err := newTestFetcher(src, nil).Fetch(context.Background(), Request{Symbol: "BTC_USDT", Timeframe: "1m", Limit: 20})

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, errTransient)
	assert.True(t, Soft(err))
	assert.Equal(t, 3, src.callCount("BTC_USDT"))
}

func TestFetch_PermanentNotRetried(t *testing.T) {
	src := newFakeSource()
	src.perm["NOPE_USDT"] = true

	_, err := newTestFetcher(src, nil).Fetch(context.Background(), Request{Symbol: "NOPE_USDT", Timeframe: "1m"})

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, src.callCount("NOPE_USDT"))
}

func TestFetch_InsufficientHistoryNotRetried(t *testing.T) {
	src := newFakeSource()
	src.set("NEW_USDT", flatCandles(5, time.Minute))

	_, err := newTestFetcher(src, nil).Fetch(context.Background(), Request{Symbol: "NEW_USDT", Timeframe: "1m", Limit: 300, MinCandles: 256})

	assert.ErrorIs(t, err, ErrInsufficientHistory)
	assert.True(t, Soft(err))
	assert.Equal(t, 1, src.callCount("NEW_USDT"))
}

func TestFetch_Cancelled(t *testing.T) {
	src := newFakeSource()
	src.fails["BTC_USDT"] = 10
	ctx, cancel := context.WithCancel(context.Background())

	f := newTestFetcher(src, nil)
	f.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := f.Fetch(ctx, Request{Symbol: "BTC_USDT", Timeframe: "1m"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, Soft(err))
}

func TestFetch_MinIntervalBetweenCalls(t *testing.T) {
	src := newFakeSource()
	src.set("BTC_USDT", flatCandles(5, time.Minute))
	f := NewFetcher(src, DefaultRetryPolicy(), 40*time.Millisecond, nil)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), Request{Symbol: "BTC_USDT", Timeframe: "1m"})
		require.NoError(t, err)
	}

	// первый вызов сразу, дальше не чаще раза в 40ms
	assert.GreaterOrEqual(t, time.Since(start), 75*time.Millisecond)
}

// gatedSource держит запросы, пока не закрыт release, и считает параллельные по символу.
type gatedSource struct {
	mu       sync.Mutex
	inFlight map[string]int
	peak     map[string]int
	release  chan struct{}
}

func (g *gatedSource) FetchCandles(ctx context.Context, symbol, _ string, _ int) ([]models.Candle, error) {
	g.mu.Lock()
	g.inFlight[symbol]++
	g.peak[symbol] = max(g.peak[symbol], g.inFlight[symbol])
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.inFlight[symbol]--
		g.mu.Unlock()
	}()
	select {
	case <-g.release:
		return flatCandles(5, time.Minute), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedSource) running(symbol string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight[symbol]
}

func TestFetch_OneInFlightPerSymbol(t *testing.T) {
	src := &gatedSource{inFlight: map[string]int{}, peak: map[string]int{}, release: make(chan struct{})}
	f := newTestFetcher(src, nil)

	var wg sync.WaitGroup
	for _, sym := range []string{"BTC_USDT", "BTC_USDT", "ETH_USDT"} {
		sym := sym
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.Fetch(context.Background(), Request{Symbol: sym, Timeframe: "1m"})
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool {
		return src.running("BTC_USDT") == 1 && src.running("ETH_USDT") == 1
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, src.running("BTC_USDT"))

	close(src.release)
	wg.Wait()

	assert.Equal(t, 1, src.peak["BTC_USDT"])
	assert.Equal(t, 1, src.peak["ETH_USDT"])
	assert.Zero(t, f.symbols.size())
}

func TestFetch_WaitForSymbolCancelled(t *testing.T) {
	src := newFakeSource()
	src.set("BTC_USDT", flatCandles(5, time.Minute))
	f := newTestFetcher(src, nil)

	release, err := f.symbols.acquire(context.Background(), "BTC_USDT")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Fetch(ctx, Request{Symbol: "BTC_USDT", Timeframe: "1m"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.callCount("BTC_USDT"))

	release()
	assert.Zero(t, f.symbols.size())
}
