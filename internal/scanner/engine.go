package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"signal_bot/internal/cooldown"
	"signal_bot/internal/indicator"
	"signal_bot/internal/metrics"
	"signal_bot/internal/models"
	"signal_bot/internal/signal"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/tracing"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
)

// Sink доставляет результаты наружу: формат сообщения — его забота.
type Sink interface {
	Alert(ctx context.Context, dest int64, a models.Alert) error
	Digest(ctx context.Context, dest int64, stats *models.ScanStats, alerts []models.Alert) error
	Progress(ctx context.Context, dest int64, profile string, done, total int) error
}

// Journal хранит историю сработавших алертов.
type Journal interface {
	Record(ctx context.Context, a models.Alert) error
	Recent(ctx context.Context, limit int) ([]models.Alert, error)
}

// GateFactory создаёт гейт кулдауна для профиля.
type GateFactory func(profile string, cooldown time.Duration) cooldown.Gate

func MemoryGates(_ string, d time.Duration) cooldown.Gate { return cooldown.NewMemory(d) }

type Universe struct {
	Suffix      string
	TopN        int
	BatchSize   int
	SymbolDelay time.Duration
	BatchPause  time.Duration
	Progress    bool
}

type EngineDeps struct {
	Tickers  TickerSource
	Fetcher  *Fetcher
	Profiles map[string]models.Profile
	Gates    GateFactory
	Sink     Sink
	Journal  Journal
	Metrics  *metrics.Metrics
	Universe Universe
	// OnFinish вызывается в конце каждого прохода (health, дашборды)
	OnFinish func(stats *models.ScanStats)
}

// Engine — прогон символов через фетч, индикаторы, условия и кулдаун.
type Engine struct {
	tickers  TickerSource
	fetcher  *Fetcher
	sink     Sink
	journal  Journal
	metrics  *metrics.Metrics
	universe Universe
	onFinish func(stats *models.ScanStats)

	profiles map[string]*profileRuntime

	scanning atomic.Bool
	lastMu   sync.Mutex
	last     *models.ScanStats

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type profileRuntime struct {
	profile models.Profile
	eval    *signal.Evaluator
	gate    cooldown.Gate
	watch   *WatchBook
}

func NewEngine(deps EngineDeps) (*Engine, error) {
	if deps.Fetcher == nil {
		return nil, errors.New("scanner: fetcher is required")
	}
	if deps.Sink == nil {
		return nil, errors.New("scanner: sink is required")
	}
	gates := deps.Gates
	if gates == nil {
		gates = MemoryGates
	}

	e := &Engine{
		tickers:  deps.Tickers,
		fetcher:  deps.Fetcher,
		sink:     deps.Sink,
		journal:  deps.Journal,
		metrics:  deps.Metrics,
		universe: deps.Universe,
		onFinish: deps.OnFinish,
		profiles: make(map[string]*profileRuntime, len(deps.Profiles)),
		now:      time.Now,
		sleep:    sleepCtx,
	}
	for name, p := range deps.Profiles {
		if p.Name == "" {
			p.Name = name
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		rt := &profileRuntime{
			profile: p,
			eval:    signal.NewEvaluator(p),
			gate:    gates(p.Name, p.Cooldown),
		}
		if p.Watch {
			rt.watch = NewWatchBook(p.WatchWindow, p.FlatPct)
		}
		e.profiles[name] = rt
	}
	return e, nil
}

// Profiles — имена профилей по алфавиту.
func (e *Engine) Profiles() []string {
	out := make([]string, 0, len(e.profiles))
	for name := range e.profiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (e *Engine) Profile(name string) (models.Profile, bool) {
	rt, ok := e.profiles[name]
	if !ok {
		return models.Profile{}, false
	}
	return rt.profile, true
}

func (e *Engine) Scanning() bool { return e.scanning.Load() }

// LastStats — итоги последнего прохода по вселенной.
func (e *Engine) LastStats() *models.ScanStats {
	e.lastMu.Lock()
	defer e.lastMu.Unlock()
	return e.last
}

// ScanUniverse: топ символов по объёму, батчами, с паузой между батчами.
// Пока идёт один проход, второй получает ErrScanInProgress.
func (e *Engine) ScanUniverse(ctx context.Context, profile string, dest int64) (*models.ScanStats, error) {
	rt, ok := e.profiles[profile]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, profile)
	}
	if !e.scanning.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer e.scanning.Store(false)

	span, ctx := opentracing.StartSpanFromContext(ctx, "scan.universe")
	span.SetTag("profile", profile)
	defer span.Finish()

	stats := models.NewScanStats(profile, e.now())

	symbols := e.rankUniverse(ctx)
	if len(symbols) == 0 {
		logger.Warn("[SCAN] %s: empty universe, skipping cycle", profile)
		stats.Elapsed = e.now().Sub(stats.StartedAt)
		return stats, nil
	}

	size := e.universe.BatchSize
	if rt.profile.Batches > 0 {
		size = SizeForCount(len(symbols), rt.profile.Batches)
	}
	batches := Partition(symbols, size)
	stats.Symbols, stats.Batches = len(symbols), len(batches)
	logger.Info("[SCAN] %s: %d symbols in %d batches", profile, len(symbols), len(batches))
	if id := tracing.TraceID(ctx); id != "" {
		logger.Debug("[SCAN] %s trace %s", profile, id)
	}

	var alerts []models.Alert
	sched := &Scheduler{Pause: e.universe.BatchPause, Sleep: e.sleep}
	err := sched.Run(ctx, batches, func(ctx context.Context, idx int, batch []string) error {
		bspan, bctx := opentracing.StartSpanFromContext(ctx, "scan.batch")
		bspan.SetTag("batch", idx+1)
		defer bspan.Finish()

		for _, sym := range batch {
			got, err := e.scanSymbol(bctx, rt, sym, dest, stats)
			if err != nil {
				return err
			}
			alerts = append(alerts, got...)
			if err := e.sleep(bctx, e.universe.SymbolDelay); err != nil {
				return err
			}
		}

		logger.Info("[SCAN] %s: batch %d/%d done", profile, idx+1, len(batches))
		if e.universe.Progress && dest != 0 {
			if err := e.sink.Progress(bctx, dest, profile, idx+1, len(batches)); err != nil {
				logger.Warn("[SCAN] progress delivery failed: %v", err)
			}
		}
		return nil
	})

	stats.Elapsed = e.now().Sub(stats.StartedAt)
	e.finish(ctx, rt, dest, stats, alerts)

	e.lastMu.Lock()
	e.last = stats
	e.lastMu.Unlock()
	return stats, err
}

// ScanSymbols — один проход по заданному списку (вотчлист монитора).
// keepGoing проверяется перед каждым символом: после выключения новых фетчей нет.
func (e *Engine) ScanSymbols(ctx context.Context, profile string, symbols []string, dest int64, keepGoing func() bool) (*models.ScanStats, error) {
	rt, ok := e.profiles[profile]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, profile)
	}

	stats := models.NewScanStats(profile, e.now())
	stats.Symbols, stats.Batches = len(symbols), 1

	var alerts []models.Alert
	var err error
	for _, sym := range symbols {
		if keepGoing != nil && !keepGoing() {
			break
		}
		var got []models.Alert
		got, err = e.scanSymbol(ctx, rt, sym, dest, stats)
		if err != nil {
			break
		}
		alerts = append(alerts, got...)
		if err = e.sleep(ctx, e.universe.SymbolDelay); err != nil {
			break
		}
	}

	stats.Elapsed = e.now().Sub(stats.StartedAt)
	e.finish(ctx, rt, dest, stats, alerts)
	return stats, err
}

func (e *Engine) finish(ctx context.Context, rt *profileRuntime, dest int64, stats *models.ScanStats, alerts []models.Alert) {
	e.metrics.ScanFinished(stats.Profile, stats.Elapsed)
	logger.Info("[SCAN] %s done in %s: processed=%d scanned=%d filtered=%d skipped=%d unavailable=%d fired=%d suppressed=%d",
		stats.Profile, stats.Elapsed.Round(time.Second), stats.Processed, stats.Scanned, stats.Filtered,
		stats.Skipped, stats.Unavailable, stats.Fired, stats.Suppressed)

	if p, ok := rt.gate.(interface{ Prune(time.Time) int }); ok {
		if n := p.Prune(e.now()); n > 0 {
			logger.Debug("[COOLDOWN] %s pruned %d keys", stats.Profile, n)
		}
	}
	if e.onFinish != nil {
		e.onFinish(stats)
	}

	if rt.profile.Digest && dest != 0 && ctx.Err() == nil {
		if err := e.sink.Digest(ctx, dest, stats, alerts); err != nil {
			e.metrics.NotifyFailed()
			logger.Error("[ALERT] digest delivery failed: %v", err)
		}
	}
}

func (e *Engine) rankUniverse(ctx context.Context) []string {
	if e.tickers == nil {
		return nil
	}
	tickers, err := e.tickers.FetchTickers(ctx)
	if err != nil {
		logger.Error("[SCAN] fetch tickers: %v", err)
		return nil
	}
	return TopByVolume(tickers, e.universe.Suffix, e.universe.TopN)
}

// scanSymbol возвращает ошибку только при отмене контекста, всё остальное —
// мягкие пропуски в статистике.
func (e *Engine) scanSymbol(ctx context.Context, rt *profileRuntime, symbol string, dest int64, stats *models.ScanStats) ([]models.Alert, error) {
	p := &rt.profile
	stats.Processed++

	span, ctx := opentracing.StartSpanFromContext(ctx, "scan.symbol")
	span.SetTag("symbol", symbol)
	defer span.Finish()

	bias := models.TrendNone
	if len(p.HTFTimeframes) > 0 {
		var err error
		bias, err = e.htfBias(ctx, p, symbol)
		if err != nil {
			return nil, err
		}
		// осциллятор от старших таймфреймов не зависит
		if bias == models.TrendNone && !p.Oscillator {
			stats.Filtered++
			e.metrics.Symbol(p.Name, "filtered")
			return nil, nil
		}
	}

	var fired []models.Alert
	for _, tf := range p.Timeframes {
		candles, err := e.fetcher.Fetch(ctx, Request{
			Symbol:     symbol,
			Timeframe:  tf,
			Limit:      max(p.FetchLimit, rt.eval.Required()),
			MinCandles: rt.eval.Required(),
		})
		switch {
		case errors.Is(err, ErrInsufficientHistory):
			stats.Skipped++
			e.metrics.Symbol(p.Name, "skipped")
			continue
		case errors.Is(err, ErrUnavailable):
			stats.Unavailable++
			e.metrics.Symbol(p.Name, "unavailable")
			continue
		case err != nil:
			return fired, err
		}

		series := indicator.Compute(symbol, tf, candles, indicator.SpecFor(p))
		res := rt.eval.Evaluate(series, bias)
		if !res.Evaluated {
			stats.Skipped++
			e.metrics.Symbol(p.Name, "skipped")
			continue
		}
		if res.Filtered {
			stats.Filtered++
			e.metrics.Symbol(p.Name, "filtered")
			logger.Debug("[SCAN] %s %s filtered: %s", symbol, tf, res.Reason)
		} else {
			stats.Scanned++
			e.metrics.Symbol(p.Name, "scanned")
			switch res.Trend {
			case models.TrendBullish:
				stats.Bullish++
			case models.TrendBearish:
				stats.Bearish++
			}
		}

		// вотчу нужен каждый проход, даже без нового касания
		if !res.Hit(p) && (rt.watch == nil || res.Filtered) {
			continue
		}
		for _, a := range e.candidates(rt, series, res) {
			if e.gateAndEmit(ctx, rt, dest, &a, stats) {
				fired = append(fired, a)
			}
		}
	}
	return fired, nil
}

func (e *Engine) htfBias(ctx context.Context, p *models.Profile, symbol string) (models.Trend, error) {
	spec := indicator.Spec{EMALengths: []int{p.HTFEMALength}}
	need := indicator.RequiredCandles(spec, 0)

	biases := make([]models.Trend, 0, len(p.HTFTimeframes))
	for _, tf := range p.HTFTimeframes {
		candles, err := e.fetcher.Fetch(ctx, Request{Symbol: symbol, Timeframe: tf, Limit: max(p.FetchLimit, need), MinCandles: need})
		if err != nil {
			if Soft(err) {
				return models.TrendNone, nil
			}
			return models.TrendNone, err
		}
		biases = append(biases, signal.BiasOf(indicator.Compute(symbol, tf, candles, spec), p.HTFEMALength))
	}
	return signal.CombineBias(biases...), nil
}

func (e *Engine) candidates(rt *profileRuntime, s *indicator.Series, res signal.Result) []models.Alert {
	p := &rt.profile
	base := models.Alert{
		Profile:    p.Name,
		Symbol:     s.Symbol,
		Timeframe:  s.Timeframe,
		Trend:      res.Trend,
		Price:      res.Candle.Close,
		CandleTime: res.Candle.OpenTime,
	}

	var out []models.Alert
	if res.Zone != "" {
		a := base
		a.Kind = res.Zone
		out = append(out, a)
	}
	// остальное — EMA-семейства, их режут пре-фильтры
	if res.Filtered {
		return out
	}

	if p.Touch {
		for _, l := range res.Touched {
			a := base
			a.Kind, a.Line = models.KindTouch, l
			out = append(out, a)
		}
	}
	if p.Trend && res.Trend != models.TrendNone {
		a := base
		a.Kind = models.KindTrend
		out = append(out, a)
	}
	if rt.watch != nil {
		if ev := rt.watch.Observe(s.Symbol, s, p.TolerancePct, res.Touched); ev != nil {
			a := base
			a.Kind, a.Line, a.Outcome = ev.Kind, ev.Line, ev.Outcome
			a.Price, a.CandleTime = ev.To, ev.Candle.OpenTime
			a.Reason = fmt.Sprintf("%.8g -> %.8g", ev.From, ev.To)
			out = append(out, a)
		}
	}
	return out
}

// gateAndEmit: кулдаун, журнал, доставка. Сбой доставки кулдаун не откатывает.
func (e *Engine) gateAndEmit(ctx context.Context, rt *profileRuntime, dest int64, a *models.Alert, stats *models.ScanStats) bool {
	p := &rt.profile
	stats.Hit(a.Label())

	now := e.now()
	if !rt.gate.ShouldFire(ctx, cooldown.Key{Symbol: a.Symbol, Kind: a.CooldownKind()}, now) {
		stats.Suppressed++
		e.metrics.Alert(p.Name, string(a.Kind), false)
		return false
	}

	stats.Fired++
	e.metrics.Alert(p.Name, string(a.Kind), true)
	a.ID = uuid.NewString()
	a.FiredAt = now
	logger.Info("[ALERT] %s %s %s @ %s price=%.8g", p.Name, a.Symbol, a.Label(), a.Timeframe, a.Price)

	if e.journal != nil {
		if err := e.journal.Record(ctx, *a); err != nil {
			logger.Error("[ALERT] journal %s: %v", a.ID, err)
		}
	}

	if !p.Digest && dest != 0 {
		if err := e.sink.Alert(ctx, dest, *a); err != nil {
			e.metrics.NotifyFailed()
			logger.Error("[ALERT] delivery %s %s failed: %v", a.Symbol, a.Label(), err)
		}
	}
	return true
}
