package pg

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/journal/service/pg/alerts"
	"signal_bot/pkg/db"

	"github.com/jackc/pgx/v5"
)

//go:embed schema.sql
var schema string

// Journal — история алертов в Postgres.
type Journal struct {
	db     db.TxManager
	alerts *alerts.Alerts
}

// NewJournal instance
func NewJournal(tx db.TxManager) *Journal {
	return &Journal{
		db:     tx,
		alerts: alerts.New(),
	}
}

// EnsureSchema создаёт таблицу, если её ещё нет. DDL идёт мимо транзакции.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.Conn().Exec(ctx, schema); err != nil {
		return fmt.Errorf("pg.EnsureSchema: %w", err)
	}
	return nil
}

// Record in db
func (j *Journal) Record(ctx context.Context, a models.Alert) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Record: %w", err)
		}
	}()
	return j.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return j.alerts.Insert(ctxTx, tx, a)
	})
}

// Recent from db, новые первыми
func (j *Journal) Recent(ctx context.Context, limit int) (out []models.Alert, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Recent: %w", err)
		}
	}()
	err = j.db.RunReadOnly(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		out, err = j.alerts.Recent(ctxTx, tx, limit)
		return err
	})
	return out, err
}

// CountSince — сколько алертов сработало начиная с since.
func (j *Journal) CountSince(ctx context.Context, since time.Time) (n int64, err error) {
	err = j.db.RunReadOnly(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		n, err = j.alerts.CountSince(ctxTx, tx, since)
		return err
	})
	return n, err
}
