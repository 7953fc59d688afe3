package exchange

import (
	"context"
	"time"

	"signal_bot/internal/metrics"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/exchange/service"
	health "signal_bot/internal/modules/health/service"
	"signal_bot/internal/scanner"

	"go.uber.org/fx"
)

// streamObserver раздаёт состояние потока тикеров в health и метрики.
type streamObserver struct {
	state   *health.State
	metrics *metrics.Metrics
}

func (o streamObserver) SetWSConnected(v bool) {
	o.state.SetWSConnected(v)
	o.metrics.SetTickerStream(v)
}

func (o streamObserver) TouchTick(t time.Time) { o.state.TouchTick(t) }

func NewClient(cfg *config.Config, state *health.State, m *metrics.Metrics) *service.Client {
	opts := service.Options{
		BaseURL: cfg.Exchange.BaseURL,
		WSURL:   cfg.Exchange.WSURL,
		Timeout: cfg.Exchange.Timeout,
	}
	if cfg.Exchange.TickerStream {
		opts.StreamMaxAge = cfg.Exchange.TickerStreamMaxAge
	}
	c := service.NewClient(opts)
	c.SetObserver(streamObserver{state: state, metrics: m})
	return c
}

// Module поднимает клиент MEXC и, если включён, поток тикеров.
func Module() fx.Option {
	return fx.Module("exchange",
		fx.Provide(
			NewClient,
			func(c *service.Client) scanner.CandleSource { return c },
			func(c *service.Client) scanner.TickerSource { return c },
			func(c *service.Client) scanner.MarketChecker { return c },
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, c *service.Client) {
			if !cfg.Exchange.TickerStream {
				return
			}
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer close(done)
						c.RunTickerStream(ctx)
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
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
