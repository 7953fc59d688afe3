package indicator

import "signal_bot/internal/models"

// Levels — локальные экстремумы: low[i] минимален (high[i] максимален) в окне
// [i-window, i+window). Возвращает по два последних уровня.
func Levels(candles []models.Candle, window int) (supports, resistances []float64) {
	if window < 1 {
		return nil, nil
	}
	for i := window; i < len(candles)-window; i++ {
		lo, hi := candles[i].Low, candles[i].High
		isLow, isHigh := true, true
		for j := i - window; j < i+window; j++ {
			if candles[j].Low < lo {
				isLow = false
			}
			if candles[j].High > hi {
				isHigh = false
			}
		}
		if isLow {
			supports = append(supports, lo)
		}
		if isHigh {
			resistances = append(resistances, hi)
		}
	}
	return lastN(supports, 2), lastN(resistances, 2)
}

func lastN(v []float64, n int) []float64 {
	if len(v) > n {
		return v[len(v)-n:]
	}
	return v
}
