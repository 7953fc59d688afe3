package signal

import (
	"time"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func candlesFrom(closes []float64, spread float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		out[i] = models.Candle{
			OpenTime: t0.Add(time.Duration(i) * 5 * time.Minute),
			Open:     open,
			High:     max(open, c) + spread,
			Low:      min(open, c) - spread,
			Close:    c,
		}
	}
	return out
}

func flat(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func ramp(n int, from, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out
}

func series(p models.Profile, candles []models.Candle) *indicator.Series {
	return indicator.Compute("TEST_USDT", p.Timeframes[0], candles, indicator.SpecFor(&p))
}
