package indicator

import (
	"fmt"
	"math"

	"signal_bot/internal/models"
)

// Spec — что считать по свечам.
type Spec struct {
	EMALengths  []int
	EMASmooth   int
	StochK      int
	StochD      int
	StochSmooth int
}

func SpecFor(p *models.Profile) Spec {
	s := Spec{}
	if p.UsesEMA() {
		s.EMALengths = p.EMALengths
		s.EMASmooth = p.EMASmooth
	}
	if p.Oscillator {
		s.StochK, s.StochD, s.StochSmooth = p.StochK, p.StochD, p.StochSmooth
	}
	return s
}

func (s Spec) HasStoch() bool { return s.StochK > 0 }

// Warmup — минимальная длина истории, при которой значения осмысленны.
// Плюс одна свеча на формирующуюся.
func (s Spec) Warmup() int {
	w := 0
	for _, l := range s.EMALengths {
		need := l
		if s.EMASmooth > 1 {
			need += s.EMASmooth - 1
		}
		w = max(w, need)
	}
	if s.HasStoch() {
		w = max(w, s.StochK+s.StochSmooth+s.StochD-2)
	}
	return w + 1
}

// RequiredCandles — Warmup плюс запас; меньше — символ пропускаем.
func RequiredCandles(s Spec, margin int) int {
	return s.Warmup() + max(margin, 0)
}

// Series — свечи одного символа и посчитанные колонки. Живёт один проход.
type Series struct {
	Symbol    string
	Timeframe string
	Candles   []models.Candle

	ema    map[int][]float64
	StochK []float64
	StochD []float64
}

// Compute пересчитывает все колонки по всей истории.
func Compute(symbol, tf string, candles []models.Candle, spec Spec) *Series {
	s := &Series{
		Symbol:    symbol,
		Timeframe: tf,
		Candles:   candles,
		ema:       make(map[int][]float64, len(spec.EMALengths)),
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i], highs[i], lows[i] = c.Close, c.High, c.Low
	}

	for _, l := range spec.EMALengths {
		s.ema[l] = SmoothedEMA(closes, l, spec.EMASmooth)
	}
	if spec.HasStoch() {
		s.StochK, s.StochD = Stochastic(highs, lows, closes, spec.StochK, spec.StochD, spec.StochSmooth)
	}
	return s
}

func (s *Series) Len() int { return len(s.Candles) }

// Closed — индекс последней закрытой свечи (предпоследняя), -1 если её нет.
func (s *Series) Closed() int { return len(s.Candles) - 2 }

// EMA возвращает колонку по длине, nil если она не считалась.
func (s *Series) EMA(length int) []float64 { return s.ema[length] }

// EMAAt — значение линии на индексе; ok=false если не посчитано.
func (s *Series) EMAAt(length, i int) (float64, bool) {
	col := s.ema[length]
	if i < 0 || i >= len(col) || math.IsNaN(col[i]) {
		return 0, false
	}
	return col[i], true
}

func (s *Series) String() string {
	return fmt.Sprintf("%s@%s[%d]", s.Symbol, s.Timeframe, len(s.Candles))
}
