package cooldown

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestMemory_WithinCooldownSuppressed(t *testing.T) {
	ctx := context.Background()
	g := NewMemory(300 * time.Second)
	key := Key{Symbol: "BTC_USDT", Kind: "touch:ema150@1m"}

	// касания на свечах 10 и 11, свечи по 60с
	assert.True(t, g.ShouldFire(ctx, key, base.Add(10*time.Minute)))
	assert.False(t, g.ShouldFire(ctx, key, base.Add(11*time.Minute)))

	last, ok := g.Last(key)
	require.True(t, ok)
	assert.Equal(t, base.Add(10*time.Minute), last)
}

func TestMemory_SpacedCallsBothFire(t *testing.T) {
	ctx := context.Background()
	g := NewMemory(5 * time.Minute)
	key := Key{Symbol: "ETH_USDT", Kind: "overbought@5m"}

	assert.True(t, g.ShouldFire(ctx, key, base))
	assert.True(t, g.ShouldFire(ctx, key, base.Add(5*time.Minute)))
	assert.True(t, g.ShouldFire(ctx, key, base.Add(20*time.Minute)))
}

func TestMemory_KeysIndependent(t *testing.T) {
	ctx := context.Background()
	g := NewMemory(time.Hour)

	assert.True(t, g.ShouldFire(ctx, Key{"BTC_USDT", "touch:ema150@5m"}, base))
	assert.True(t, g.ShouldFire(ctx, Key{"BTC_USDT", "touch:ema200@5m"}, base))
	assert.True(t, g.ShouldFire(ctx, Key{"ETH_USDT", "touch:ema150@5m"}, base))
	assert.Equal(t, 3, g.Len())
}

func TestMemory_LastNeverGoesBack(t *testing.T) {
	ctx := context.Background()
	g := NewMemory(time.Minute)
	key := Key{"BTC_USDT", "trend:bullish@15m"}

	require.True(t, g.ShouldFire(ctx, key, base))
	// часы ушли назад: отказ, запись не трогаем
	assert.False(t, g.ShouldFire(ctx, key, base.Add(-time.Hour)))

	last, _ := g.Last(key)
	assert.Equal(t, base, last)
}

func TestMemory_ZeroCooldownAlwaysFires(t *testing.T) {
	ctx := context.Background()
	g := NewMemory(0)
	key := Key{"BTC_USDT", "touch"}

	assert.True(t, g.ShouldFire(ctx, key, base))
	assert.True(t, g.ShouldFire(ctx, key, base))
}

func TestMemory_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	g := NewMemory(time.Minute)
	key := Key{"SOL_USDT", "touch:ema200@5m"}

	var fired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.ShouldFire(ctx, key, base) {
				fired.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fired.Load())
}

func TestMemory_Prune(t *testing.T) {
	ctx := context.Background()
	g := NewMemory(time.Minute)

	g.ShouldFire(ctx, Key{"A_USDT", "touch"}, base)
	g.ShouldFire(ctx, Key{"B_USDT", "touch"}, base.Add(50*time.Second))

	assert.Equal(t, 1, g.Prune(base.Add(70*time.Second)))
	assert.Equal(t, 1, g.Len())
}
