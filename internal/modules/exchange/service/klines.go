package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	"signal_bot/internal/scanner"
)

type klineDTO struct {
	Time  []int64   `json:"time"` // секунды
	Open  []float64 `json:"open"`
	High  []float64 `json:"high"`
	Low   []float64 `json:"low"`
	Close []float64 `json:"close"`
	Vol   []float64 `json:"vol"`
}

func mexcInterval(tf string) (string, error) {
	switch helper.NormTF(tf) {
	case "1m":
		return "Min1", nil
	case "5m":
		return "Min5", nil
	case "15m":
		return "Min15", nil
	case "30m":
		return "Min30", nil
	case "1h":
		return "Min60", nil
	case "4h":
		return "Hour4", nil
	case "8h":
		return "Hour8", nil
	case "1d":
		return "Day1", nil
	}
	return "", fmt.Errorf("unsupported timeframe for MEXC: %q", tf)
}

// FetchCandles — последние limit свечей по возрастанию времени, последняя ещё формируется.
func (c *Client) FetchCandles(ctx context.Context, symbol, tf string, limit int) ([]models.Candle, error) {
	interval, err := mexcInterval(tf)
	if err != nil {
		return nil, scanner.Permanent(err)
	}
	if limit <= 0 {
		limit = 100
	}

	end := c.now()
	start := end.Add(-time.Duration(limit) * helper.TFDuration(tf))
	q := url.Values{}
	q.Set("interval", interval)
	q.Set("start", strconv.FormatInt(start.Unix(), 10))
	q.Set("end", strconv.FormatInt(end.Unix(), 10))

	raw, err := getData[klineDTO](ctx, c, "/api/v1/contract/kline/"+url.PathEscape(symbol), q)
	if err != nil {
		return nil, err
	}

	n := len(raw.Time)
	if len(raw.Open) != n || len(raw.High) != n || len(raw.Low) != n || len(raw.Close) != n {
		return nil, fmt.Errorf("mexc kline %s: ragged columns", symbol)
	}

	out := make([]models.Candle, 0, n)
	for i := 0; i < n; i++ {
		candle := models.Candle{
			OpenTime: time.Unix(raw.Time[i], 0).UTC(),
			Open:     raw.Open[i],
			High:     raw.High[i],
			Low:      raw.Low[i],
			Close:    raw.Close[i],
		}
		if i < len(raw.Vol) {
			candle.Volume = raw.Vol[i]
		}
		out = append(out, candle)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
