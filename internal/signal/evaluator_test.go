package signal

import (
	"math"
	"testing"

	"signal_bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_ShortHistoryNeverHits(t *testing.T) {
	for _, name := range []string{"ema_touch", "ema_touch_lite", "stoch", "watch", "trend"} {
		p := models.DefaultProfiles()[name]
		e := NewEvaluator(p)

		for n := 0; n < e.Required(); n += 7 {
			res := e.Evaluate(series(p, candlesFrom(flat(n, 100), 1)), models.TrendBullish)
			assert.False(t, res.Evaluated, "%s n=%d", name, n)
			assert.False(t, res.Hit(&p), "%s n=%d", name, n)
		}
	}
}

func TestEvaluate_LiteTouch(t *testing.T) {
	p := models.DefaultProfiles()["ema_touch_lite"]
	e := NewEvaluator(p)

	res := e.Evaluate(series(p, candlesFrom(flat(e.Required(), 100), 0.5)), models.TrendNone)

	require.True(t, res.Evaluated)
	assert.False(t, res.Filtered)
	assert.Equal(t, []int{150, 200}, res.Touched)
	assert.True(t, res.Hit(&p))
}

func TestEvaluate_TouchOnlyWithinTolerance(t *testing.T) {
	p := models.DefaultProfiles()["ema_touch_lite"]
	e := NewEvaluator(p)

	closes := flat(e.Required(), 100)
	// последняя закрытая свеча уходит далеко вверх, линии остаются около 100
	closes[len(closes)-2] = 110
	closes[len(closes)-1] = 110
	candles := candlesFrom(closes, 0)
	candles[len(candles)-2].Low = 109

	res := e.Evaluate(series(p, candles), models.TrendNone)
	require.True(t, res.Evaluated)
	assert.Empty(t, res.Touched)
}

func TestEvaluate_RangeFilter(t *testing.T) {
	p := models.DefaultProfiles()["ema_touch_strict"]
	e := NewEvaluator(p)

	// мёртвый рынок: размах 0
	res := e.Evaluate(series(p, candlesFrom(flat(e.Required(), 100), 0)), models.TrendNone)

	require.True(t, res.Evaluated)
	assert.True(t, res.Filtered)
	assert.Contains(t, res.Reason, "range")
	assert.Empty(t, res.Touched)
}

func TestEvaluate_HTFBias(t *testing.T) {
	p := models.DefaultProfiles()["ema_touch"]
	// только HTF, остальные фильтры выключены
	p.MinRangePct, p.MinBodyPct, p.MinSlope = 0, 0, 0
	e := NewEvaluator(p)

	// рост: EMA150 > EMA200, тренд бычий
	s := series(p, candlesFrom(ramp(e.Required(), 100, 0.01), 0.5))

	res := e.Evaluate(s, models.TrendNone)
	assert.True(t, res.Filtered)
	assert.Equal(t, "no htf bias", res.Reason)

	res = e.Evaluate(s, models.TrendBearish)
	assert.True(t, res.Filtered)
	assert.Equal(t, models.TrendBullish, res.Trend)

	res = e.Evaluate(s, models.TrendBullish)
	assert.False(t, res.Filtered)
	assert.Equal(t, models.TrendBullish, res.Trend)
}

func TestEvaluate_Trend(t *testing.T) {
	p := models.DefaultProfiles()["trend"]
	e := NewEvaluator(p)

	up := e.Evaluate(series(p, candlesFrom(ramp(e.Required(), 100, 1), 0.5)), models.TrendNone)
	assert.Equal(t, models.TrendBullish, up.Trend)
	assert.True(t, up.Hit(&p))

	down := e.Evaluate(series(p, candlesFrom(ramp(e.Required(), 1000, -1), 0.5)), models.TrendNone)
	assert.Equal(t, models.TrendBearish, down.Trend)

	sideways := e.Evaluate(series(p, candlesFrom(flat(e.Required(), 100), 0.5)), models.TrendNone)
	assert.Equal(t, models.TrendNone, sideways.Trend)
	assert.False(t, sideways.Hit(&p))
}

func TestEvaluate_StochOverbought(t *testing.T) {
	p := models.DefaultProfiles()["stoch"]
	e := NewEvaluator(p)

	n := e.Required() + 1
	s := series(p, candlesFrom(flat(n, 100), 1))
	s.StochK = flat(n, 50)
	s.StochD = flat(n, 85)

	// K = [.., 90, 88, forming]
	s.StochK[n-3], s.StochK[n-2], s.StochK[n-1] = 90, 88, 70
	res := e.Evaluate(s, models.TrendNone)
	require.True(t, res.Evaluated)
	assert.Equal(t, models.KindOverbought, res.Zone)

	// на следующей свече закрытой становится 70
	s.Candles = append(s.Candles, s.Candles[n-1])
	s.StochK = append(s.StochK, 65)
	s.StochD = append(s.StochD, 85)
	res = e.Evaluate(s, models.TrendNone)
	assert.Equal(t, models.ConditionKind(""), res.Zone)
}

func TestEvaluate_StochFlatRange(t *testing.T) {
	p := models.DefaultProfiles()["stoch"]
	e := NewEvaluator(p)

	s := series(p, candlesFrom(flat(e.Required()+3, 100), 0))
	require.True(t, math.IsNaN(s.StochK[s.Closed()]))

	res := e.Evaluate(s, models.TrendNone)
	assert.True(t, res.Evaluated)
	assert.Equal(t, models.ConditionKind(""), res.Zone)
}

func TestFilters_Slope(t *testing.T) {
	p := models.DefaultProfiles()["ema_touch"]
	f := Filters{MinSlope: 0.0002, SlopeLine: 200, SlopeLookback: 3}

	ok, reason := f.Check(series(p, candlesFrom(flat(300, 100), 1)))
	assert.False(t, ok)
	assert.Contains(t, reason, "slope")

	ok, _ = f.Check(series(p, candlesFrom(ramp(300, 100, 1), 1)))
	assert.True(t, ok)
}

func TestFilters_EMAGap(t *testing.T) {
	p := models.DefaultProfiles()["ema_touch_strict"]
	f := Filters{MinEMAGapPct: 0.002, GapFast: 150, GapSlow: 200}

	ok, reason := f.Check(series(p, candlesFrom(flat(300, 100), 1)))
	assert.False(t, ok)
	assert.Contains(t, reason, "ema gap")

	ok, _ = f.Check(series(p, candlesFrom(ramp(300, 100, 1), 1)))
	assert.True(t, ok)
}

func TestBiasOf(t *testing.T) {
	p := models.DefaultProfiles()["ema_touch"]

	assert.Equal(t, models.TrendBullish, BiasOf(series(p, candlesFrom(ramp(300, 100, 1), 0)), 200))
	assert.Equal(t, models.TrendBearish, BiasOf(series(p, candlesFrom(ramp(300, 500, -1), 0)), 200))
	assert.Equal(t, models.TrendNone, BiasOf(series(p, candlesFrom(flat(300, 100), 0)), 200))
	assert.Equal(t, models.TrendNone, BiasOf(series(p, candlesFrom(flat(300, 100), 0)), 77))
}

func TestResult_HitPerFamily(t *testing.T) {
	p := models.Profile{Touch: true, Trend: true, Oscillator: true}

	filtered := Result{Evaluated: true, Filtered: true, Touched: []int{200}, Trend: models.TrendBullish}
	assert.False(t, filtered.Hit(&p))

	filtered.Zone = models.KindOversold
	assert.True(t, filtered.Hit(&p))

	assert.True(t, Result{Evaluated: true, Trend: models.TrendBearish}.Hit(&p))
}
