package signal

import (
	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

// Result — что нашлось на закрытой свече.
type Result struct {
	Evaluated bool // false — мало истории, ничего не проверялось
	Filtered  bool // пре-фильтры или HTF отсекли EMA-семейства; Zone от них не зависит
	Reason    string

	Closed int
	Candle models.Candle

	Trend   models.Trend
	Touched []int // длины EMA, которых коснулась свеча
	Zone    models.ConditionKind
}

// Hit — сработало хоть одно условие, включённое в профиле.
func (r Result) Hit(p *models.Profile) bool {
	if r.Zone != "" {
		return true
	}
	if r.Filtered {
		return false
	}
	return len(r.Touched) > 0 || (p.Trend && r.Trend != models.TrendNone)
}

type Evaluator struct {
	profile  models.Profile
	filters  Filters
	required int
}

func NewEvaluator(p models.Profile) *Evaluator {
	return &Evaluator{
		profile:  p,
		filters:  FiltersFor(&p),
		required: indicator.RequiredCandles(indicator.SpecFor(&p), p.WarmupMargin),
	}
}

func (e *Evaluator) Profile() models.Profile { return e.profile }

// Required — сколько свечей нужно для проверки.
func (e *Evaluator) Required() int { return e.required }

// Evaluate проверяет условия профиля на закрытой свече series.
// bias — согласованное направление старших таймфреймов, учитывается
// только если они заданы в профиле.
func (e *Evaluator) Evaluate(s *indicator.Series, bias models.Trend) Result {
	p := &e.profile
	if s == nil || s.Len() < e.required || s.Closed() < 1 {
		return Result{}
	}

	i := s.Closed()
	res := Result{Evaluated: true, Closed: i, Candle: s.Candles[i]}

	if p.Oscillator {
		res.Zone = OscillatorZone(s.StochK, s.StochD, i, p.Overbought, p.Oversold)
	}

	if !p.UsesEMA() {
		return res
	}

	values := make([]float64, 0, len(p.EMALengths))
	for _, l := range p.EMALengths {
		v, ok := s.EMAAt(l, i)
		if !ok {
			res.Filtered, res.Reason = true, "ema not computable"
			return res
		}
		values = append(values, v)
	}

	lines := len(values)
	if p.TrendLines > 0 && p.TrendLines < lines {
		lines = p.TrendLines
	}
	res.Trend = TrendOf(values[:lines]...)

	if ok, reason := e.filters.Check(s); !ok {
		res.Filtered, res.Reason = true, reason
		return res
	}

	if len(p.HTFTimeframes) > 0 {
		if bias == models.TrendNone {
			res.Filtered, res.Reason = true, "no htf bias"
			return res
		}
		if res.Trend != bias {
			res.Filtered, res.Reason = true, "countertrend to htf "+string(bias)
			return res
		}
	}

	if p.Touch || p.Watch {
		tol := res.Candle.Close * p.TolerancePct
		for j, l := range p.EMALengths {
			if Touch(res.Candle, values[j], tol) {
				res.Touched = append(res.Touched, l)
			}
		}
	}
	return res
}
