package service

import (
	"context"
	"sync"
	"time"

	"signal_bot/internal/models"
)

// Memory — журнал в памяти, последние limit алертов. Используется без БД.
type Memory struct {
	mu    sync.Mutex
	limit int
	items []models.Alert
}

func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = 500
	}
	return &Memory{limit: limit}
}

func (m *Memory) Record(_ context.Context, a models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, a)
	if over := len(m.items) - m.limit; over > 0 {
		m.items = append(m.items[:0:0], m.items[over:]...)
	}
	return nil
}

// Recent — последние limit записей, новые первыми.
func (m *Memory) Recent(_ context.Context, limit int) ([]models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.items) {
		limit = len(m.items)
	}
	out := make([]models.Alert, 0, limit)
	for i := len(m.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.items[i])
	}
	return out, nil
}

// CountSince — сколько из хранимых алертов сработало начиная с since.
func (m *Memory) CountSince(_ context.Context, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.items {
		if !a.FiredAt.Before(since) {
			n++
		}
	}
	return n, nil
}
