package models

import (
	"fmt"
	"slices"
	"time"
)

// Profile — набор параметров одного варианта сканера.
// Все варианты исходных скриптов сведены к профилям одного движка.
type Profile struct {
	Name         string   `yaml:"name" json:"name"`
	Timeframes   []string `yaml:"timeframes" json:"timeframes"`
	FetchLimit   int      `yaml:"fetch_limit" json:"fetch_limit"`
	WarmupMargin int      `yaml:"warmup_margin" json:"warmup_margin"`
	Preset       string   `yaml:"preset" json:"preset,omitempty"` // normal | strict | lite, накладывается поверх полей

	// EMA, от быстрой к медленной
	EMALengths []int `yaml:"ema_lengths" json:"ema_lengths"`
	EMASmooth  int   `yaml:"ema_smooth" json:"ema_smooth"`   // SMA поверх EMA, 0/1 — выкл
	TrendLines int   `yaml:"trend_lines" json:"trend_lines"` // сколько первых линий участвуют в тренде, 0 — все

	// Стохастик
	StochK      int     `yaml:"stoch_k" json:"stoch_k"`
	StochD      int     `yaml:"stoch_d" json:"stoch_d"`
	StochSmooth int     `yaml:"stoch_smooth" json:"stoch_smooth"`
	Overbought  float64 `yaml:"overbought" json:"overbought"`
	Oversold    float64 `yaml:"oversold" json:"oversold"`

	// Условия и пре-фильтры (доли, 0.001 = 0.1%)
	TolerancePct  float64 `yaml:"tolerance_pct" json:"tolerance_pct"`
	MinRangePct   float64 `yaml:"min_range_pct" json:"min_range_pct"`
	MinBodyPct    float64 `yaml:"min_body_pct" json:"min_body_pct"`
	MinEMAGapPct  float64 `yaml:"min_ema_gap_pct" json:"min_ema_gap_pct"`
	MinSlope      float64 `yaml:"min_slope" json:"min_slope"`
	SlopeLookback int     `yaml:"slope_lookback" json:"slope_lookback"`
	SlopeLine     int     `yaml:"slope_line" json:"slope_line"` // длина EMA для наклона, 0 — самая медленная

	// Старший таймфрейм: close vs EMA(HTFEMALength) на каждом из HTF
	HTFTimeframes []string `yaml:"htf_timeframes" json:"htf_timeframes"`
	HTFEMALength  int      `yaml:"htf_ema_length" json:"htf_ema_length"`

	// Какие семейства условий включены
	Touch      bool `yaml:"touch" json:"touch"`
	Trend      bool `yaml:"trend" json:"trend"`
	Oscillator bool `yaml:"oscillator" json:"oscillator"`
	Watch      bool `yaml:"watch" json:"watch"`

	WatchWindow int     `yaml:"watch_window" json:"watch_window"` // закрытых свечей после касания
	FlatPct     float64 `yaml:"flat_pct" json:"flat_pct"`

	// Повтор того же условия по символу не раньше, чем через Cooldown
	Cooldown time.Duration `yaml:"cooldown" json:"cooldown"`

	// Batches > 0 — делить вселенную на столько батчей вместо universe.batch_size
	Batches int `yaml:"batches" json:"batches"`

	// Digest: один сводный отчёт на цикл вместо сообщения на каждый алерт
	Digest bool `yaml:"digest" json:"digest"`
}

func (p *Profile) UsesEMA() bool { return p.Touch || p.Trend || p.Watch }

// SlopeLength — линия, по которой считается наклон.
func (p *Profile) SlopeLength() int {
	if p.SlopeLine > 0 {
		return p.SlopeLine
	}
	if len(p.EMALengths) == 0 {
		return 0
	}
	return p.EMALengths[len(p.EMALengths)-1]
}

func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is empty")
	}
	if len(p.Timeframes) == 0 {
		return fmt.Errorf("profile %s: no timeframes", p.Name)
	}
	if !p.UsesEMA() && !p.Oscillator {
		return fmt.Errorf("profile %s: no condition family enabled", p.Name)
	}
	if p.UsesEMA() {
		if len(p.EMALengths) == 0 {
			return fmt.Errorf("profile %s: ema_lengths required", p.Name)
		}
		if !slices.IsSorted(p.EMALengths) || slices.Contains(p.EMALengths, 0) {
			return fmt.Errorf("profile %s: ema_lengths must be positive and ascending", p.Name)
		}
	}
	if p.Oscillator {
		if p.StochK <= 0 || p.StochD <= 0 || p.StochSmooth <= 0 {
			return fmt.Errorf("profile %s: stochastic periods must be > 0", p.Name)
		}
		if p.Oversold >= p.Overbought {
			return fmt.Errorf("profile %s: oversold must be < overbought", p.Name)
		}
	}
	if p.Batches < 0 {
		return fmt.Errorf("profile %s: batches must be >= 0", p.Name)
	}
	if p.Cooldown < 0 {
		return fmt.Errorf("profile %s: cooldown must be >= 0", p.Name)
	}
	if p.Watch && p.WatchWindow <= 0 {
		return fmt.Errorf("profile %s: watch_window must be > 0", p.Name)
	}
	if p.MinSlope > 0 && p.SlopeLookback <= 0 {
		return fmt.Errorf("profile %s: slope_lookback must be > 0", p.Name)
	}
	if len(p.HTFTimeframes) > 0 && p.HTFEMALength <= 0 {
		return fmt.Errorf("profile %s: htf_ema_length must be > 0", p.Name)
	}
	return nil
}

// Clone — глубокая копия, чтобы пресеты не портили исходный профиль.
func (p Profile) Clone() Profile {
	p.Timeframes = slices.Clone(p.Timeframes)
	p.EMALengths = slices.Clone(p.EMALengths)
	p.HTFTimeframes = slices.Clone(p.HTFTimeframes)
	return p
}

// DefaultProfiles — варианты, которые раньше жили отдельными скриптами.
func DefaultProfiles() map[string]Profile {
	emaTouch := Profile{
		Name:          "ema_touch",
		Timeframes:    []string{"5m"},
		FetchLimit:    300,
		WarmupMargin:  5,
		EMALengths:    []int{150, 200, 250},
		TrendLines:    2,
		TolerancePct:  0.001,
		MinRangePct:   0.003,
		MinBodyPct:    0.0015,
		MinSlope:      0.0002,
		SlopeLookback: 3,
		SlopeLine:     200,
		HTFTimeframes: []string{"15m", "1h"},
		HTFEMALength:  200,
		Touch:         true,
		Cooldown:      5 * time.Minute,
		Digest:        true,
	}

	strict := emaTouch.Clone()
	strict.Name = "ema_touch_strict"
	_ = ApplyPreset(&strict, "strict")

	lite := emaTouch.Clone()
	lite.Name = "ema_touch_lite"
	_ = ApplyPreset(&lite, "lite")

	return map[string]Profile{
		emaTouch.Name: emaTouch,
		strict.Name:   strict,
		lite.Name:     lite,
		"stoch": {
			Name:         "stoch",
			Timeframes:   []string{"5m", "15m", "1h", "1d"},
			FetchLimit:   50,
			WarmupMargin: 5,
			StochK:       5,
			StochD:       3,
			StochSmooth:  3,
			Overbought:   83,
			Oversold:     10,
			Oscillator:   true,
			Batches:      6,
			Cooldown:     5 * time.Minute,
			Digest:       true,
		},
		"watch": {
			Name:         "watch",
			Timeframes:   []string{"5m"},
			FetchLimit:   260,
			WarmupMargin: 2,
			EMALengths:   []int{150, 200},
			TrendLines:   2,
			TolerancePct: 0.001,
			Touch:        true,
			Watch:        true,
			WatchWindow:  3,
			FlatPct:      0.001,
			Cooldown:     300 * time.Second,
		},
		"trend": {
			Name:         "trend",
			Timeframes:   []string{"15m"},
			FetchLimit:   200,
			WarmupMargin: 0,
			EMALengths:   []int{9, 26, 50, 200},
			Trend:        true,
			Cooldown:     900 * time.Second,
		},
	}
}
