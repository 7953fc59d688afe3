package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	in := symbols(120)
	batches := Partition(in, 50)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 50)
	assert.Len(t, batches[1], 50)
	assert.Len(t, batches[2], 20)

	var joined []string
	for _, b := range batches {
		joined = append(joined, b...)
	}
	assert.Equal(t, in, joined)
}

func TestPartition_Counts(t *testing.T) {
	for n := 0; n <= 23; n++ {
		for size := 1; size <= 7; size++ {
			batches := Partition(symbols(n), size)
			assert.Len(t, batches, (n+size-1)/size, "n=%d size=%d", n, size)
		}
	}
}

func TestPartition_AppendDoesNotLeak(t *testing.T) {
	in := symbols(4)
	batches := Partition(in, 2)
	_ = append(batches[0], "X_USDT")

	assert.Equal(t, "S002_USDT", batches[1][0])
}

func TestSizeForCount(t *testing.T) {
	assert.Equal(t, 50, SizeForCount(200, 4))
	assert.Equal(t, 34, SizeForCount(100, 3))
	assert.Equal(t, 7, SizeForCount(7, 0))
}

func TestScheduler_PausesBetweenBatchesOnly(t *testing.T) {
	var pauses []time.Duration
	s := &Scheduler{Pause: 30 * time.Second, Sleep: func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}}

	var seen []int
	err := s.Run(context.Background(), Partition(symbols(120), 50), func(_ context.Context, idx int, batch []string) error {
		seen = append(seen, len(batch))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{50, 50, 20}, seen)
	assert.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second}, pauses)
}

func TestScheduler_StopsOnError(t *testing.T) {
	s := &Scheduler{Sleep: noSleep}
	boom := errors.New("boom")

	calls := 0
	err := s.Run(context.Background(), Partition(symbols(10), 2), func(context.Context, int, []string) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestScheduler_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewScheduler(time.Hour).Run(ctx, Partition(symbols(3), 1), func(context.Context, int, []string) error {
		t.Fatal("must not run")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
