package main

import (
	"context"

	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/exchange"
	"signal_bot/internal/modules/health"
	"signal_bot/internal/modules/journal"
	"signal_bot/internal/modules/postgres"
	"signal_bot/internal/modules/scanner"
	"signal_bot/internal/modules/tracing"
	"signal_bot/pkg/logger"

	telegram "signal_bot/internal/modules/telegram_bot"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
			func(cfg *config.Config) (*zap.Logger, error) {
				logger.SetServiceName(cfg.Service.Name)
				return logger.Init(cfg.LogLevel)
			},
		),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l}
		}),
		config.Module(),
		tracing.Module(),
		health.Module(),
		postgres.Module(),
		journal.Module(),
		exchange.Module(),
		telegram.Module(),
		scanner.Module(),
	)
	app.Run()
	logger.Sync()
}
