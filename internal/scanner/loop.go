package scanner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"signal_bot/internal/metrics"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

// MarketChecker проверяет, что контракт есть на бирже и торгуется.
type MarketChecker interface {
	IsTradable(ctx context.Context, symbol string) (bool, error)
}

type MonitorConfig struct {
	Profile    string
	Dest       int64
	Watchlist  []string
	IdlePoll   time.Duration // опрос флага, пока монитор выключен
	CyclePause time.Duration // пауза между проходами по вотчлисту
}

type MonitorStatus struct {
	Enabled   bool
	Single    string // пусто — все символы вотчлиста
	Watchlist []string
	Profile   string
	Passes    int64
	Pending   int // открытые post-touch наблюдения

	// с момента старта, по всем проходам
	Fired      int
	Suppressed int
}

// Monitor — вотчлист и флаг включения, общие для цикла и команд.
// Все изменения под mutex; отказ команды ничего не меняет.
type Monitor struct {
	mu        sync.Mutex
	enabled   bool
	single    string
	watchlist []string
	totals    *models.ScanStats

	engine  *Engine
	markets MarketChecker
	cfg     MonitorConfig
	metrics *metrics.Metrics
	passes  atomic.Int64

	sleep func(ctx context.Context, d time.Duration) error
}

func NewMonitor(engine *Engine, markets MarketChecker, cfg MonitorConfig, m *metrics.Metrics) (*Monitor, error) {
	if _, ok := engine.Profile(cfg.Profile); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, cfg.Profile)
	}
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = 5 * time.Second
	}
	mon := &Monitor{
		watchlist: slices.Clone(cfg.Watchlist),
		totals:    models.NewScanStats(cfg.Profile, engine.now()),
		engine:    engine,
		markets:   markets,
		cfg:       cfg,
		metrics:   m,
		sleep:     sleepCtx,
	}
	m.SetWatchlist(len(mon.watchlist))
	return mon, nil
}

func (m *Monitor) Enable() {
	m.mu.Lock()
	m.enabled, m.single = true, ""
	m.mu.Unlock()
	m.metrics.SetMonitor(true)
	logger.Info("[MONITOR] on")
}

func (m *Monitor) Disable() {
	m.mu.Lock()
	m.enabled = false
	m.mu.Unlock()
	m.metrics.SetMonitor(false)
	logger.Info("[MONITOR] off")
}

// Focus включает монитор по одному символу.
func (m *Monitor) Focus(ctx context.Context, symbol string) error {
	if err := m.checkMarket(ctx, symbol); err != nil {
		return err
	}
	m.mu.Lock()
	m.enabled, m.single = true, symbol
	m.mu.Unlock()
	m.metrics.SetMonitor(true)
	logger.Info("[MONITOR] on, single %s", symbol)
	return nil
}

func (m *Monitor) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

func (m *Monitor) Add(ctx context.Context, symbol string) error {
	m.mu.Lock()
	exists := slices.Contains(m.watchlist, symbol)
	m.mu.Unlock()
	if exists {
		return fmt.Errorf("%w: %s", ErrAlreadyWatched, symbol)
	}

	if err := m.checkMarket(ctx, symbol); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// пока ходили на биржу, могли добавить параллельно
	if slices.Contains(m.watchlist, symbol) {
		return fmt.Errorf("%w: %s", ErrAlreadyWatched, symbol)
	}
	m.watchlist = append(m.watchlist, symbol)
	m.metrics.SetWatchlist(len(m.watchlist))
	logger.Info("[MONITOR] add %s", symbol)
	return nil
}

func (m *Monitor) Remove(symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.Index(m.watchlist, symbol)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotWatched, symbol)
	}
	m.watchlist = slices.Delete(m.watchlist, i, i+1)
	if m.single == symbol {
		m.single = ""
	}
	m.metrics.SetWatchlist(len(m.watchlist))
	if rt := m.engine.profiles[m.cfg.Profile]; rt != nil && rt.watch != nil {
		rt.watch.Forget(symbol)
	}
	logger.Info("[MONITOR] remove %s", symbol)
	return nil
}

func (m *Monitor) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.watchlist)
}

func (m *Monitor) Status() MonitorStatus {
	m.mu.Lock()
	st := MonitorStatus{
		Enabled:   m.enabled,
		Single:    m.single,
		Watchlist: slices.Clone(m.watchlist),
		Profile:   m.cfg.Profile,
		Passes:    m.passes.Load(),

		Fired:      m.totals.Fired,
		Suppressed: m.totals.Suppressed,
	}
	m.mu.Unlock()

	if rt := m.engine.profiles[m.cfg.Profile]; rt != nil && rt.watch != nil {
		st.Pending = rt.watch.Len()
	}
	return st
}

func (m *Monitor) targets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return nil
	}
	if m.single != "" {
		return []string{m.single}
	}
	return slices.Clone(m.watchlist)
}

// Run крутится до отмены ctx. Выключенный монитор только опрашивает флаг;
// выключение посреди прохода останавливает его перед следующим фетчем.
func (m *Monitor) Run(ctx context.Context) error {
	logger.Info("[MONITOR] loop started, profile %s", m.cfg.Profile)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		symbols := m.targets()
		if len(symbols) == 0 {
			if err := m.sleep(ctx, m.cfg.IdlePoll); err != nil {
				return err
			}
			continue
		}

		stats, err := m.engine.ScanSymbols(ctx, m.cfg.Profile, symbols, m.cfg.Dest, m.Enabled)
		m.passes.Add(1)
		m.mu.Lock()
		m.totals.Merge(stats)
		m.mu.Unlock()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("[MONITOR] pass failed: %v", err)
		}

		if err := m.sleep(ctx, m.cfg.CyclePause); err != nil {
			return err
		}
	}
}

func (m *Monitor) checkMarket(ctx context.Context, symbol string) error {
	if symbol == "" {
		return fmt.Errorf("%w: empty", ErrUnknownSymbol)
	}
	if m.markets == nil {
		return nil
	}
	ok, err := m.markets.IsTradable(ctx, symbol)
	if err != nil {
		return fmt.Errorf("check %s: %w", symbol, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return nil
}

// AutoScan — периодический проход по вселенной (/autostart, /autostop).
type AutoScan struct {
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	profile string

	engine   *Engine
	dest     int64
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewAutoScan(engine *Engine, dest int64, interval time.Duration) *AutoScan {
	return &AutoScan{engine: engine, dest: dest, interval: interval, sleep: sleepCtx}
}

var ErrAutoScanRunning = errors.New("auto scan already running")

// Start запускает цикл в фоне; parent ограничивает время жизни цикла.
func (a *AutoScan) Start(parent context.Context, profile string) error {
	if _, ok := a.engine.Profile(profile); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProfile, profile)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return fmt.Errorf("%w: %s", ErrAutoScanRunning, a.profile)
	}

	ctx, cancel := context.WithCancel(parent)
	a.cancel, a.profile, a.done = cancel, profile, make(chan struct{})
	go a.loop(ctx, profile, a.done)
	logger.Info("[AUTOSCAN] started, profile %s every %s", profile, a.interval)
	return nil
}

// Stop останавливает цикл и ждёт его выхода. false — цикл не был запущен.
func (a *AutoScan) Stop() bool {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.profile, a.done = nil, "", nil
	a.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-done
	logger.Info("[AUTOSCAN] stopped")
	return true
}

// Running — профиль работающего цикла.
func (a *AutoScan) Running() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.profile, a.cancel != nil
}

func (a *AutoScan) loop(ctx context.Context, profile string, done chan struct{}) {
	defer close(done)
	for {
		_, err := a.engine.ScanUniverse(ctx, profile, a.dest)
		switch {
		case errors.Is(err, ErrScanInProgress):
			logger.Info("[AUTOSCAN] manual scan in progress, waiting")
		case err != nil && ctx.Err() == nil:
			logger.Error("[AUTOSCAN] %s: %v", profile, err)
		}
		if err := a.sleep(ctx, a.interval); err != nil {
			return
		}
	}
}
