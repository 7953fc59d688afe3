package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"signal_bot/internal/metrics"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// CandleSource — удалённый источник свечей.
type CandleSource interface {
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error)
}

// TickerSource — срез тикеров для ранжирования.
type TickerSource interface {
	FetchTickers(ctx context.Context) ([]models.Ticker, error)
}

// RetryPolicy — ограниченные ретраи с фиксированной паузой.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 2 * time.Second}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

type Request struct {
	Symbol     string
	Timeframe  string
	Limit      int
	MinCandles int
}

// Fetcher оборачивает источник ретраями и минимальной паузой между вызовами.
// По одному символу в полёте не больше одного запроса, даже если монитор
// и скан вселенной идут одновременно.
type Fetcher struct {
	source  CandleSource
	policy  RetryPolicy
	limiter *rate.Limiter
	metrics *metrics.Metrics
	symbols symbolLocks

	sleep func(ctx context.Context, d time.Duration) error
}

func NewFetcher(source CandleSource, policy RetryPolicy, minInterval time.Duration, m *metrics.Metrics) *Fetcher {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Fetcher{
		source:  source,
		policy:  policy,
		limiter: rate.NewLimiter(limit, 1),
		metrics: m,
		symbols: symbolLocks{held: make(map[string]*symbolLock)},
		sleep:   sleepCtx,
	}
}

type symbolLock struct {
	sem  *semaphore.Weighted
	refs int
}

// symbolLocks — семафор на символ, живёт пока есть ждущие.
type symbolLocks struct {
	mu   sync.Mutex
	held map[string]*symbolLock
}

func (l *symbolLocks) acquire(ctx context.Context, symbol string) (func(), error) {
	l.mu.Lock()
	sl := l.held[symbol]
	if sl == nil {
		sl = &symbolLock{sem: semaphore.NewWeighted(1)}
		l.held[symbol] = sl
	}
	sl.refs++
	l.mu.Unlock()

	if err := sl.sem.Acquire(ctx, 1); err != nil {
		l.drop(symbol, sl)
		return nil, err
	}
	return func() {
		sl.sem.Release(1)
		l.drop(symbol, sl)
	}, nil
}

func (l *symbolLocks) drop(symbol string, sl *symbolLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if sl.refs--; sl.refs == 0 {
		delete(l.held, symbol)
	}
}

func (l *symbolLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

// Fetch возвращает не меньше req.MinCandles свечей. Транзиентные ошибки
// ретраятся, после последней попытки — ErrUnavailable. Короткая история —
// ErrInsufficientHistory сразу.
func (f *Fetcher) Fetch(ctx context.Context, req Request) ([]models.Candle, error) {
	release, err := f.symbols.acquire(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}
	defer release()

	attempts := f.policy.attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		candles, err := f.source.FetchCandles(ctx, req.Symbol, req.Timeframe, req.Limit)
		if err == nil {
			if len(candles) < req.MinCandles {
				f.metrics.FetchAttempt("short")
				return nil, fmt.Errorf("%s %s: got %d of %d: %w",
					req.Symbol, req.Timeframe, len(candles), req.MinCandles, ErrInsufficientHistory)
			}
			f.metrics.FetchAttempt("ok")
			return candles, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err

		if IsPermanent(err) {
			f.metrics.FetchAttempt("permanent")
			logger.Warn("[FETCH] %s %s: %v", req.Symbol, req.Timeframe, err)
			break
		}

		f.metrics.FetchAttempt("transient")
		logger.Warn("[FETCH] %s %s attempt %d/%d: %v", req.Symbol, req.Timeframe, attempt, attempts, err)

		if attempt < attempts {
			if err := f.sleep(ctx, f.policy.Backoff); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("%s %s: %w: %w", req.Symbol, req.Timeframe, ErrUnavailable, lastErr)
}

// Soft — ошибки, после которых символ просто пропускается в этом проходе.
func Soft(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrInsufficientHistory)
}
