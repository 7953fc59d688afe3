package journal

import (
	"context"

	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/journal/service"
	"signal_bot/internal/modules/journal/service/pg"
	"signal_bot/internal/scanner"
	"signal_bot/pkg/db"
	"signal_bot/pkg/logger"

	"go.uber.org/fx"
)

// NewJournal — Postgres, если пул поднят, иначе память.
func NewJournal(ctx context.Context, cfg *config.Config, tx *db.PgTxManager) (scanner.Journal, error) {
	if tx == nil {
		logger.Info("[JOURNAL] in-memory, last %d alerts", cfg.Journal.MemoryLimit)
		return service.NewMemory(cfg.Journal.MemoryLimit), nil
	}
	j := pg.NewJournal(tx)
	if err := j.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	logger.Info("[JOURNAL] postgres")
	return j, nil
}

func Module() fx.Option {
	return fx.Module("journal",
		fx.Provide(NewJournal),
	)
}
