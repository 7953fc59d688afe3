package models

import "time"

// Candle — одна OHLCV-свеча. Последовательности всегда по возрастанию OpenTime.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// RangePct — размах свечи относительно close.
func (c Candle) RangePct() float64 {
	if c.Close == 0 {
		return 0
	}
	return (c.High - c.Low) / c.Close
}

// BodyPct — тело свечи относительно close.
func (c Candle) BodyPct() float64 {
	if c.Close == 0 {
		return 0
	}
	body := c.Close - c.Open
	if body < 0 {
		body = -body
	}
	return body / c.Close
}
