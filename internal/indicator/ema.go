package indicator

import "math"

// EMA — экспонента с затравкой первым значением: ema[0] = values[0],
// ema[i] = v[i]*α + ema[i-1]*(1-α), α = 2/(length+1).
func EMA(values []float64, length int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	if length < 1 {
		length = 1
	}
	alpha := 2.0 / float64(length+1)

	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = out[i-1] + alpha*(values[i]-out[i-1])
	}
	return out
}

// SmoothedEMA — SMA(smoothLen) поверх EMA, как показывает биржа.
// smoothLen <= 1 отключает сглаживание.
func SmoothedEMA(values []float64, length, smoothLen int) []float64 {
	raw := EMA(values, length)
	if smoothLen <= 1 {
		return raw
	}
	return SMA(raw, smoothLen)
}

// SMA по окну window. Первые window-1 значений и окна с NaN внутри — NaN.
func SMA(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window < 1 {
		window = 1
	}

	var sum float64
	nan := 0
	for i, v := range values {
		if math.IsNaN(v) {
			nan++
		} else {
			sum += v
		}
		if i >= window {
			old := values[i-window]
			if math.IsNaN(old) {
				nan--
			} else {
				sum -= old
			}
		}

		if i < window-1 || nan > 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}
