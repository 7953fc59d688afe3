package scanner

import (
	"context"
	"time"
)

// Partition режет список на ⌈N/size⌉ батчей без потерь и дублей, порядок сохраняется.
func Partition(symbols []string, size int) [][]string {
	if len(symbols) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(symbols)
	}

	out := make([][]string, 0, (len(symbols)+size-1)/size)
	for start := 0; start < len(symbols); start += size {
		end := min(start+size, len(symbols))
		out = append(out, symbols[start:end:end])
	}
	return out
}

// SizeForCount — размер батча, при котором n символов делятся на count батчей.
func SizeForCount(n, count int) int {
	if count <= 0 || n <= 0 {
		return n
	}
	return (n + count - 1) / count
}

// Scheduler прогоняет батчи по очереди, выдерживая паузу между ними (после последнего — нет).
type Scheduler struct {
	Pause time.Duration
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewScheduler(pause time.Duration) *Scheduler {
	return &Scheduler{Pause: pause, Sleep: sleepCtx}
}

// Run вызывает fn для каждого батча. Ошибка fn или отмена ctx останавливают проход.
func (s *Scheduler) Run(ctx context.Context, batches [][]string, fn func(ctx context.Context, idx int, batch []string) error) error {
	sleep := s.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, i, b); err != nil {
			return err
		}
		if i < len(batches)-1 && s.Pause > 0 {
			if err := sleep(ctx, s.Pause); err != nil {
				return err
			}
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
