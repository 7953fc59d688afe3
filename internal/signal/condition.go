package signal

import (
	"math"

	"signal_bot/internal/models"
)

// Touch — линия попала в диапазон свечи с допуском tol.
func Touch(c models.Candle, value, tol float64) bool {
	if math.IsNaN(value) {
		return false
	}
	return c.Low-tol <= value && value <= c.High+tol
}

// TrendOf — значения линий от быстрой к медленной. Bullish, если строго
// убывают, Bearish, если строго растут, иначе без тренда.
func TrendOf(values ...float64) models.Trend {
	if len(values) < 2 {
		return models.TrendNone
	}
	up, down := true, true
	for i := 1; i < len(values); i++ {
		if math.IsNaN(values[i]) || math.IsNaN(values[i-1]) {
			return models.TrendNone
		}
		if !(values[i-1] > values[i]) {
			up = false
		}
		if !(values[i-1] < values[i]) {
			down = false
		}
	}
	switch {
	case up:
		return models.TrendBullish
	case down:
		return models.TrendBearish
	default:
		return models.TrendNone
	}
}

// OscillatorZone проверяет экстремум с разворотом импульса на индексе i
// (сравнивается с i-1). Пустая строка — условия нет или значения не посчитаны.
func OscillatorZone(k, d []float64, i int, overbought, oversold float64) models.ConditionKind {
	if i < 1 || i >= len(k) || i >= len(d) {
		return ""
	}
	kc, kp, dc := k[i], k[i-1], d[i]
	if math.IsNaN(kc) || math.IsNaN(kp) || math.IsNaN(dc) {
		return ""
	}
	if kc > overbought && dc > overbought && kc < kp {
		return models.KindOverbought
	}
	if kc < oversold && dc < oversold && kc > kp {
		return models.KindOversold
	}
	return ""
}

// CombineBias — общий bias нескольких старших таймфреймов: все согласны или никакого.
func CombineBias(biases ...models.Trend) models.Trend {
	if len(biases) == 0 {
		return models.TrendNone
	}
	first := biases[0]
	for _, b := range biases[1:] {
		if b != first {
			return models.TrendNone
		}
	}
	return first
}
