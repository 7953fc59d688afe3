package telegram

import (
	"context"
	"errors"

	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/telegram_bot/service"
	scan "signal_bot/internal/scanner"
	"signal_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"
)

// Outbox — исходящие сообщения: алерты движка и ответы на команды.
type Outbox interface {
	scan.Sink
	service.Replier
}

// NewOutbox — Telegram, если есть бот, иначе лог.
func NewOutbox(bot *tgbot.BotAPI) Outbox {
	if bot == nil {
		return service.LogNotifier{}
	}
	return service.NewNotifier(bot)
}

func NewTelegram(
	cfg *config.Config,
	bot *tgbot.BotAPI,
	out Outbox,
	engine *scan.Engine,
	mon *scan.Monitor,
	auto *scan.AutoScan,
	journal scan.Journal,
) *service.Telegram {
	return service.NewTelegram(bot, service.Deps{
		Scanner: engine,
		Monitor: mon,
		Auto:    auto,
		History: journal,
		Replier: out,
		Settings: service.Settings{
			DefaultProfile: cfg.Scan.Default,
			StrictProfile:  cfg.Scan.Strict,
			StochProfile:   cfg.Scan.Stoch,
			AutoProfile:    cfg.AutoScan.Profile,
			AutoInterval:   cfg.AutoScan.Interval,
			HistorySize:    cfg.Journal.HistorySize,
			Movers: scan.MoversConfig{
				Suffix:      cfg.Universe.Suffix,
				MinMovePct:  cfg.Movers.MinMovePct,
				Pool:        cfg.Movers.Pool,
				TopN:        cfg.Movers.TopN,
				Timeframe:   cfg.Movers.Timeframe,
				Limit:       cfg.Movers.Limit,
				LevelWindow: cfg.Movers.LevelWindow,
			},
		},
	})
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			service.NewBotAPI,
			NewOutbox,
			// движку нужен только Sink
			func(o Outbox) scan.Sink { return o },
			NewTelegram,
		),
		// Запуск основного цикла через Lifecycle
		fx.Invoke(
			func(lc fx.Lifecycle, t *service.Telegram) {
				ctx, cancel := context.WithCancel(context.Background())
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						go func() {
							if err := t.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
								logger.Error("[TG] updates loop stopped: %v", err)
							}
						}()
						return nil
					},
					OnStop: func(ctx context.Context) error {
						cancel()
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
