package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"signal_bot/internal/models"
)

var (
	t0           = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	errTransient = errors.New("429 too many requests")
)

func noSleep(context.Context, time.Duration) error { return nil }

type fakeSource struct {
	mu      sync.Mutex
	candles map[string][]models.Candle
	fails   map[string]int
	perm    map[string]bool
	calls   map[string]int
	order   []string
	tickers []models.Ticker
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		candles: make(map[string][]models.Candle),
		fails:   make(map[string]int),
		perm:    make(map[string]bool),
		calls:   make(map[string]int),
	}
}

func (f *fakeSource) set(symbol string, candles []models.Candle) {
	f.mu.Lock()
	f.candles[symbol] = candles
	f.mu.Unlock()
}

func (f *fakeSource) FetchCandles(_ context.Context, symbol, tf string, limit int) ([]models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	f.order = append(f.order, symbol+"@"+tf)

	if f.perm[symbol] {
		return nil, Permanent(fmt.Errorf("contract %s not found", symbol))
	}
	if f.fails[symbol] > 0 {
		f.fails[symbol]--
		return nil, errTransient
	}
	c, ok := f.candles[symbol]
	if !ok {
		return nil, errTransient
	}
	if limit > 0 && len(c) > limit {
		c = c[len(c)-limit:]
	}
	return c, nil
}

func (f *fakeSource) FetchTickers(context.Context) ([]models.Ticker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickers, nil
}

func (f *fakeSource) callCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

func (f *fakeSource) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}

type recordingSink struct {
	mu       sync.Mutex
	alerts   []models.Alert
	digests  []*models.ScanStats
	progress []int
	alertErr error
}

func (s *recordingSink) Alert(_ context.Context, _ int64, a models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return s.alertErr
}

func (s *recordingSink) Digest(_ context.Context, _ int64, stats *models.ScanStats, _ []models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.digests = append(s.digests, stats)
	return nil
}

func (s *recordingSink) Progress(_ context.Context, _ int64, _ string, done, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, done)
	return nil
}

// flatCandles: close 100, high/low ±0.5 — касаются любой EMA около 100.
func flatCandles(n int, tf time.Duration) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{
			OpenTime: t0.Add(time.Duration(i) * tf),
			Open:     100, High: 100.5, Low: 99.5, Close: 100, Volume: 10,
		}
	}
	return out
}

func symbols(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("S%03d_USDT", i)
	}
	return out
}

// touchProfile — короткий EMA-профиль для тестов движка.
func touchProfile() models.Profile {
	return models.Profile{
		Name:         "touch",
		Timeframes:   []string{"1m"},
		FetchLimit:   30,
		EMALengths:   []int{5, 10},
		TolerancePct: 0.001,
		Touch:        true,
		Cooldown:     300 * time.Second,
	}
}
