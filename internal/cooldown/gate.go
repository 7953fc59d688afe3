package cooldown

import (
	"context"
	"sync"
	"time"
)

// Key — символ и вид условия ("touch:ema150@5m").
type Key struct {
	Symbol string
	Kind   string
}

func (k Key) String() string { return k.Symbol + "|" + k.Kind }

// Gate решает, можно ли отправить алерт. ShouldFire — атомарная
// проверка-и-запись: true означает, что момент now уже записан.
type Gate interface {
	ShouldFire(ctx context.Context, key Key, now time.Time) bool
}

// Memory — таблица последних срабатываний в памяти процесса.
type Memory struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     map[Key]time.Time
}

func NewMemory(cooldown time.Duration) *Memory {
	return &Memory{
		cooldown: cooldown,
		last:     make(map[Key]time.Time),
	}
}

func (m *Memory) ShouldFire(_ context.Context, key Key, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if last, ok := m.last[key]; ok && now.Sub(last) < m.cooldown {
		return false
	}
	m.last[key] = now
	return true
}

// Last — когда ключ срабатывал последний раз.
func (m *Memory) Last(key Key) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.last[key]
	return t, ok
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.last)
}

// Prune выкидывает записи, у которых кулдаун уже истёк: на решение
// ShouldFire они больше не влияют.
func (m *Memory) Prune(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, t := range m.last {
		if now.Sub(t) >= m.cooldown {
			delete(m.last, k)
			n++
		}
	}
	return n
}
