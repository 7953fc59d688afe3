package scanner

import (
	"sync"
	"time"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
	"signal_bot/internal/signal"
)

// WatchEvent — итог наблюдения после касания.
type WatchEvent struct {
	Kind    models.ConditionKind // KindRetouch | KindResolved
	Line    int
	Outcome models.Outcome
	From    float64 // close свечи касания
	To      float64 // close свечи итога
	Candle  models.Candle
}

type watch struct {
	line      int
	touchedAt time.Time
	price     float64
}

// WatchBook — автомат IDLE -> TOUCHED -> RETOUCHED|RESOLVED по символам.
// На символ одно открытое наблюдение: касание другой линии его не перезапускает.
type WatchBook struct {
	mu      sync.Mutex
	window  int
	flatPct float64
	active  map[string]*watch
}

func NewWatchBook(window int, flatPct float64) *WatchBook {
	if window < 1 {
		window = 1
	}
	return &WatchBook{
		window:  window,
		flatPct: flatPct,
		active:  make(map[string]*watch),
	}
}

// Observe продвигает автомат по свежей серии. touched — линии, которых
// коснулась закрытая свеча. Возвращает не больше одного события за вызов.
func (w *WatchBook) Observe(symbol string, s *indicator.Series, tolPct float64, touched []int) *WatchEvent {
	closed := s.Closed()
	if closed < 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	st, ok := w.active[symbol]
	if !ok {
		if len(touched) > 0 {
			c := s.Candles[closed]
			w.active[symbol] = &watch{line: touched[0], touchedAt: c.OpenTime, price: c.Close}
		}
		return nil
	}

	// закрытые свечи после касания
	after := make([]int, 0, w.window)
	for i := 0; i <= closed && len(after) < w.window; i++ {
		if s.Candles[i].OpenTime.After(st.touchedAt) {
			after = append(after, i)
		}
	}

	line := s.EMA(st.line)
	for _, i := range after {
		c := s.Candles[i]
		if i < len(line) && signal.Touch(c, line[i], c.Close*tolPct) {
			delete(w.active, symbol)
			return &WatchEvent{Kind: models.KindRetouch, Line: st.line, From: st.price, To: c.Close, Candle: c}
		}
	}

	if len(after) < w.window {
		return nil
	}

	c := s.Candles[after[w.window-1]]
	delete(w.active, symbol)
	return &WatchEvent{
		Kind:    models.KindResolved,
		Line:    st.line,
		Outcome: outcome(st.price, c.Close, w.flatPct),
		From:    st.price,
		To:      c.Close,
		Candle:  c,
	}
}

// Pending — линия открытого наблюдения по символу.
func (w *WatchBook) Pending(symbol string) (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.active[symbol]
	if !ok {
		return 0, false
	}
	return st.line, true
}

func (w *WatchBook) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.active)
}

// Forget сбрасывает наблюдение, например когда символ убрали из вотчлиста.
func (w *WatchBook) Forget(symbol string) {
	w.mu.Lock()
	delete(w.active, symbol)
	w.mu.Unlock()
}

func outcome(from, to, flatPct float64) models.Outcome {
	if from == 0 {
		return models.OutcomeFlat
	}
	change := (to - from) / from
	switch {
	case change > flatPct:
		return models.OutcomeUp
	case change < -flatPct:
		return models.OutcomeDown
	default:
		return models.OutcomeFlat
	}
}
