package indicator

import (
	"math"

	"github.com/markcheno/go-talib"
)

// Stochastic считает %K и %D.
//
//	K_raw[i] = 100*(close[i]-minLow_k)/(maxHigh_k-minLow_k)
//	K = SMA(K_raw, smooth), D = SMA(K, d)
//
// Нулевой диапазон даёт NaN, он протекает в K и D через окна SMA.
func Stochastic(high, low, close []float64, kPeriod, dPeriod, smooth int) (k, d []float64) {
	n := len(close)
	raw := make([]float64, n)
	if kPeriod < 1 {
		kPeriod = 1
	}

	hh, ll := rollingMax(high, kPeriod), rollingMin(low, kPeriod)
	for i := 0; i < n; i++ {
		if i < kPeriod-1 {
			raw[i] = math.NaN()
			continue
		}
		rng := hh[i] - ll[i]
		if rng == 0 {
			raw[i] = math.NaN()
			continue
		}
		raw[i] = 100 * (close[i] - ll[i]) / rng
	}

	k = SMA(raw, smooth)
	d = SMA(k, dPeriod)
	return k, d
}

func rollingMax(values []float64, period int) []float64 {
	if period < 2 {
		return append([]float64(nil), values...)
	}
	return talib.Max(values, period)
}

func rollingMin(values []float64, period int) []float64 {
	if period < 2 {
		return append([]float64(nil), values...)
	}
	return talib.Min(values, period)
}
