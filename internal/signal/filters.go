package signal

import (
	"fmt"
	"math"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

// Filters — пре-фильтры перед EMA-условиями. Нулевое значение порога — фильтр выключен.
type Filters struct {
	MinRangePct   float64
	MinBodyPct    float64
	MinEMAGapPct  float64
	GapFast       int
	GapSlow       int
	MinSlope      float64
	SlopeLine     int
	SlopeLookback int
}

func FiltersFor(p *models.Profile) Filters {
	f := Filters{
		MinRangePct:   p.MinRangePct,
		MinBodyPct:    p.MinBodyPct,
		MinEMAGapPct:  p.MinEMAGapPct,
		MinSlope:      p.MinSlope,
		SlopeLine:     p.SlopeLength(),
		SlopeLookback: p.SlopeLookback,
	}
	if len(p.EMALengths) >= 2 {
		f.GapFast, f.GapSlow = p.EMALengths[0], p.EMALengths[1]
	}
	return f
}

// Check прогоняет фильтры по закрытой свече. reason — первый не прошедший фильтр.
func (f Filters) Check(s *indicator.Series) (bool, string) {
	i := s.Closed()
	if i < 0 {
		return false, "no closed candle"
	}
	c := s.Candles[i]

	if f.MinRangePct > 0 && c.RangePct() < f.MinRangePct {
		return false, fmt.Sprintf("range %.4f%% < %.4f%%", c.RangePct()*100, f.MinRangePct*100)
	}
	if f.MinBodyPct > 0 && c.BodyPct() < f.MinBodyPct {
		return false, fmt.Sprintf("body %.4f%% < %.4f%%", c.BodyPct()*100, f.MinBodyPct*100)
	}

	if f.MinEMAGapPct > 0 && f.GapFast > 0 && c.Close != 0 {
		fast, ok1 := s.EMAAt(f.GapFast, i)
		slow, ok2 := s.EMAAt(f.GapSlow, i)
		if !ok1 || !ok2 {
			return false, "ema gap not computable"
		}
		if gap := math.Abs(fast-slow) / c.Close; gap < f.MinEMAGapPct {
			return false, fmt.Sprintf("ema gap %.4f%% < %.4f%%", gap*100, f.MinEMAGapPct*100)
		}
	}

	if f.MinSlope > 0 {
		slope, ok := Slope(s, f.SlopeLine, f.SlopeLookback)
		if !ok {
			return false, "slope not computable"
		}
		if math.Abs(slope) < f.MinSlope {
			return false, fmt.Sprintf("slope %.5f < %.5f", math.Abs(slope), f.MinSlope)
		}
	}
	return true, ""
}

// Slope — относительное изменение линии за lookback закрытых свечей.
func Slope(s *indicator.Series, line, lookback int) (float64, bool) {
	i := s.Closed()
	cur, ok1 := s.EMAAt(line, i)
	prev, ok2 := s.EMAAt(line, i-lookback)
	if !ok1 || !ok2 || prev == 0 {
		return 0, false
	}
	return (cur - prev) / prev, true
}

// BiasOf — направление старшего таймфрейма: close закрытой свечи против EMA.
func BiasOf(s *indicator.Series, emaLength int) models.Trend {
	i := s.Closed()
	v, ok := s.EMAAt(emaLength, i)
	if !ok {
		return models.TrendNone
	}
	c := s.Candles[i].Close
	switch {
	case c > v:
		return models.TrendBullish
	case c < v:
		return models.TrendBearish
	default:
		return models.TrendNone
	}
}
