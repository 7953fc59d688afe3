package cooldown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"signal_bot/pkg/logger"

	goredis "github.com/go-redis/redis/v8"
)

// Скрипт сравнивает и записывает время одним шагом на стороне Redis.
// KEYS[1] — ключ, ARGV[1] — now (ms), ARGV[2] — кулдаун (ms), ARGV[3] — TTL (ms).
var fireScript = goredis.NewScript(`
local last = redis.call('GET', KEYS[1])
local now = tonumber(ARGV[1])
if last and now - tonumber(last) < tonumber(ARGV[2]) then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

var ErrBreakerOpen = errors.New("cooldown: redis breaker is open")

// Redis — общий для нескольких процессов гейт. Пока Redis недоступен,
// решения принимает локальный Memory.
type Redis struct {
	client   goredis.UniversalClient
	prefix   string
	cooldown time.Duration
	fallback *Memory
	breaker  *breaker
}

func NewRedis(client goredis.UniversalClient, prefix string, cooldown time.Duration) *Redis {
	return &Redis{
		client:   client,
		prefix:   prefix,
		cooldown: cooldown,
		fallback: NewMemory(cooldown),
		breaker:  newBreaker(3, 30*time.Second),
	}
}

func (r *Redis) ShouldFire(ctx context.Context, key Key, now time.Time) bool {
	var fire bool
	err := r.breaker.execute(now, func() error {
		res, err := fireScript.Run(ctx, r.client,
			[]string{r.redisKey(key)},
			now.UnixMilli(), r.cooldown.Milliseconds(), r.ttl().Milliseconds(),
		).Int()
		if err != nil {
			return err
		}
		fire = res == 1
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrBreakerOpen) {
			logger.Warn("[COOLDOWN] redis check %s failed, using memory: %v", key, err)
		}
		return r.fallback.ShouldFire(ctx, key, now)
	}
	return fire
}

func (r *Redis) redisKey(key Key) string {
	return fmt.Sprintf("%s:cooldown:%s:%s", r.prefix, key.Symbol, key.Kind)
}

// Запись живёт чуть дольше кулдауна, дальше она не нужна.
func (r *Redis) ttl() time.Duration {
	return r.cooldown + time.Minute
}

// breaker — после maxFailures ошибок подряд перестаёт ходить в Redis на resetAfter.
type breaker struct {
	mu          sync.Mutex
	failures    int
	maxFailures int
	resetAfter  time.Duration
	openedAt    time.Time
}

func newBreaker(maxFailures int, resetAfter time.Duration) *breaker {
	return &breaker{maxFailures: maxFailures, resetAfter: resetAfter}
}

func (b *breaker) execute(now time.Time, fn func() error) error {
	b.mu.Lock()
	if b.failures >= b.maxFailures && now.Sub(b.openedAt) < b.resetAfter {
		b.mu.Unlock()
		return ErrBreakerOpen
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		if b.failures >= b.maxFailures {
			b.openedAt = now
		}
		return err
	}
	b.failures = 0
	return nil
}
