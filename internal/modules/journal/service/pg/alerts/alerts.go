package alerts

import (
	"context"
	"fmt"
	"time"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/journal/service/pg/alerts/sql"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Alerts implement db store
type Alerts struct {
	sql *sql.Queries
}

// New instance
func New() *Alerts {
	return &Alerts{
		sql: sql.New(),
	}
}

func (a *Alerts) Insert(ctx context.Context, tx pgx.Tx, alert models.Alert) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Alerts.Insert: %w", err)
		}
	}()

	id, err := uuid.Parse(alert.ID)
	if err != nil {
		return err
	}
	var data []byte
	data, err = sonic.Marshal(alert)
	if err != nil {
		return err
	}
	return a.sql.Insert(ctx, tx, &sql.InsertParams{
		ID:        id,
		Profile:   alert.Profile,
		Symbol:    alert.Symbol,
		Timeframe: alert.Timeframe,
		Kind:      string(alert.Kind),
		Price:     alert.Price,
		FiredAt:   alert.FiredAt,
		Payload:   data,
	})
}

func (a *Alerts) Recent(ctx context.Context, tx pgx.Tx, limit int) (out []models.Alert, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Alerts.Recent: %w", err)
		}
	}()
	rows, err := a.sql.Recent(ctx, tx, int32(limit))
	if err != nil {
		return nil, err
	}
	out = make([]models.Alert, 0, len(rows))
	for _, payload := range rows {
		var alert models.Alert
		if err = sonic.Unmarshal(payload, &alert); err != nil {
			return nil, err
		}
		out = append(out, alert)
	}
	return out, nil
}

func (a *Alerts) CountSince(ctx context.Context, tx pgx.Tx, since time.Time) (n int64, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Alerts.CountSince: %w", err)
		}
	}()
	return a.sql.CountSince(ctx, tx, since)
}
