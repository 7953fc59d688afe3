package service

import (
	"context"
	"time"

	"signal_bot/pkg/logger"

	"github.com/bytedance/sonic"
)

type streamFrame struct {
	Channel string      `json:"channel"`
	Data    []tickerDTO `json:"data"`
}

// RunTickerStream держит подписку sub.tickers до отмены ctx и переподключается
// с нарастающей паузой. Пауза сбрасывается, как только по соединению пришли тикеры.
// Пинг каждые 15s, иначе MEXC закрывает соединение.
func (c *Client) RunTickerStream(ctx context.Context) {
	retry := 0
	for {
		if ctx.Err() != nil {
			return
		}

		err := c.streamOnce(ctx, func() { retry = 0 })
		c.setConnected(false)
		if ctx.Err() != nil {
			return
		}

		retry++
		pause := time.Duration(min(retry, 10)) * time.Second
		logger.Warn("[WS] ticker stream dropped: %v, reconnect in %s", err, pause)
		if err := c.sleep(ctx, pause); err != nil {
			return
		}
	}
}

// streamOnce читает одно соединение до ошибки; onTick — на каждый push.tickers.
func (c *Client) streamOnce(ctx context.Context, onTick func()) error {
	conn, _, err := c.wsDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"method": "sub.tickers", "param": map[string]any{}}); err != nil {
		return err
	}
	c.setConnected(true)
	logger.Info("[WS] ticker stream connected %s", c.wsURL)

	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		t := time.NewTicker(15 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-stopPing:
				return
			case <-ctx.Done():
				// разблокирует ReadMessage
				_ = conn.Close()
				return
			case <-t.C:
				_ = conn.WriteJSON(map[string]string{"method": "ping"})
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var frame streamFrame
		if err := sonic.Unmarshal(msg, &frame); err != nil || frame.Channel != "push.tickers" {
			continue
		}
		onTick()
		now := c.now()
		c.storeSnapshot(frame.Data, now)
		if c.observer != nil {
			c.observer.TouchTick(now)
		}
	}
}

func (c *Client) setConnected(v bool) {
	if c.observer != nil {
		c.observer.SetWSConnected(v)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
