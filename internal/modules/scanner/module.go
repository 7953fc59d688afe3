package scanner

import (
	"context"
	"time"

	"signal_bot/internal/cooldown"
	"signal_bot/internal/metrics"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	health "signal_bot/internal/modules/health/service"
	scan "signal_bot/internal/scanner"
	"signal_bot/pkg/logger"

	goredis "github.com/go-redis/redis/v8"
	"github.com/opentracing/opentracing-go"
	"go.uber.org/fx"
)

func NewFetcher(cfg *config.Config, src scan.CandleSource, m *metrics.Metrics) *scan.Fetcher {
	return scan.NewFetcher(src, scan.RetryPolicy{
		MaxAttempts: cfg.Exchange.Attempts,
		Backoff:     cfg.Exchange.Backoff,
	}, cfg.Exchange.MinInterval, m)
}

// NewGates — Redis, если задан адрес, иначе кулдаун в памяти процесса.
func NewGates(lc fx.Lifecycle, cfg *config.Config) scan.GateFactory {
	if cfg.Redis.Addr == "" {
		return scan.MemoryGates
	}
	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    []string{cfg.Redis.Addr},
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				// гейт сам уйдёт на память, старт не блокируем
				logger.Warn("[COOLDOWN] redis %s unreachable: %v", cfg.Redis.Addr, err)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	logger.Info("[COOLDOWN] redis %s", cfg.Redis.Addr)
	return func(profile string, d time.Duration) cooldown.Gate {
		return cooldown.NewRedis(client, cfg.Redis.Prefix+profile+":", d)
	}
}

type EngineParams struct {
	fx.In

	Config  *config.Config
	Tickers scan.TickerSource
	Fetcher *scan.Fetcher
	Gates   scan.GateFactory
	Sink    scan.Sink
	Journal scan.Journal
	Metrics *metrics.Metrics
	State   *health.State
	// глобальный трейсер должен стоять до первого спана
	Tracer opentracing.Tracer
}

func NewEngine(p EngineParams) (*scan.Engine, error) {
	u := p.Config.Universe
	return scan.NewEngine(scan.EngineDeps{
		Tickers:  p.Tickers,
		Fetcher:  p.Fetcher,
		Profiles: p.Config.Profiles,
		Gates:    p.Gates,
		Sink:     p.Sink,
		Journal:  p.Journal,
		Metrics:  p.Metrics,
		Universe: scan.Universe{
			Suffix:      u.Suffix,
			TopN:        u.TopN,
			BatchSize:   u.BatchSize,
			SymbolDelay: u.SymbolDelay,
			BatchPause:  u.BatchPause,
			Progress:    u.Progress,
		},
		OnFinish: func(stats *models.ScanStats) {
			p.State.TouchScan(stats.StartedAt.Add(stats.Elapsed))
		},
	})
}

func NewMonitor(cfg *config.Config, e *scan.Engine, markets scan.MarketChecker, m *metrics.Metrics) (*scan.Monitor, error) {
	return scan.NewMonitor(e, markets, scan.MonitorConfig{
		Profile:    cfg.Monitor.Profile,
		Dest:       cfg.Telegram.ChatID,
		Watchlist:  cfg.Monitor.Watchlist,
		IdlePoll:   cfg.Monitor.IdlePoll,
		CyclePause: cfg.Monitor.CyclePause,
	}, m)
}

func NewAutoScan(cfg *config.Config, e *scan.Engine) *scan.AutoScan {
	return scan.NewAutoScan(e, cfg.Telegram.ChatID, cfg.AutoScan.Interval)
}

// Module — движок сканера, монитор вотчлиста и авто-скан.
func Module() fx.Option {
	return fx.Module("scanner",
		fx.Provide(
			NewFetcher,
			NewGates,
			NewEngine,
			NewMonitor,
			NewAutoScan,
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, mon *scan.Monitor, auto *scan.AutoScan, state *health.State) {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					if cfg.Monitor.Enabled {
						mon.Enable()
					}
					go func() {
						defer close(done)
						if err := mon.Run(ctx); err != nil && ctx.Err() == nil {
							logger.Error("[MONITOR] loop stopped: %v", err)
						}
					}()
					state.SetReady(true)
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					state.SetReady(false)
					auto.Stop()
					cancel()
					select {
					case <-done:
					case <-stopCtx.Done():
					}
					return nil
				},
			})
		}),
	)
}
