package sql

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const insert = `-- name: Insert :exec
INSERT INTO alerts (id, profile, symbol, timeframe, kind, price, fired_at, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING
`

type InsertParams struct {
	ID        uuid.UUID
	Profile   string
	Symbol    string
	Timeframe string
	Kind      string
	Price     float64
	FiredAt   time.Time
	Payload   []byte
}

func (q *Queries) Insert(ctx context.Context, db DBTX, arg *InsertParams) error {
	_, err := db.Exec(ctx, insert,
		arg.ID,
		arg.Profile,
		arg.Symbol,
		arg.Timeframe,
		arg.Kind,
		arg.Price,
		arg.FiredAt,
		arg.Payload,
	)
	return err
}

const recent = `-- name: Recent :many
SELECT payload
FROM alerts
ORDER BY fired_at DESC
LIMIT $1
`

func (q *Queries) Recent(ctx context.Context, db DBTX, limit int32) ([][]byte, error) {
	rows, err := db.Query(ctx, recent, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := [][]byte{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		items = append(items, payload)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countSince = `-- name: CountSince :one
SELECT count(*)
FROM alerts
WHERE fired_at >= $1
`

func (q *Queries) CountSince(ctx context.Context, db DBTX, firedAt time.Time) (int64, error) {
	row := db.QueryRow(ctx, countSince, firedAt)
	var count int64
	err := row.Scan(&count)
	return count, err
}
