package tracing

import (
	"context"

	"signal_bot/internal/modules/config"
	"signal_bot/pkg/tracing"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/fx"
)

// Module ставит глобальный трейсер до старта сканера и закрывает его на остановке.
func Module() fx.Option {
	return fx.Module("tracing",
		fx.Provide(
			func(lc fx.Lifecycle, cfg *config.Config) (opentracing.Tracer, error) {
				tracing.SetServiceName(cfg.Service.Name)
				tracer, closer, err := tracing.InitTracer(tracing.Config{
					Enabled: cfg.Tracing.Enabled,
					Host:    cfg.Tracing.Host,
					Port:    cfg.Tracing.Port,
				})
				if err != nil {
					return nil, err
				}
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						closer()
						return nil
					},
				})
				return tracer, nil
			},
		),
	)
}
