package models

import (
	"fmt"
	"strings"
	"time"
)

type Trend string

const (
	TrendNone    Trend = ""
	TrendBullish Trend = "Bullish"
	TrendBearish Trend = "Bearish"
)

func (t Trend) Emoji() string {
	switch t {
	case TrendBullish:
		return "📈"
	case TrendBearish:
		return "📉"
	default:
		return "➖"
	}
}

type ConditionKind string

const (
	KindTouch      ConditionKind = "touch"
	KindTrend      ConditionKind = "trend"
	KindOverbought ConditionKind = "overbought"
	KindOversold   ConditionKind = "oversold"
	KindRetouch    ConditionKind = "retouch"
	KindResolved   ConditionKind = "resolved"
)

// Outcome — итог post-touch наблюдения.
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeUp   Outcome = "UP"
	OutcomeDown Outcome = "DOWN"
	OutcomeFlat Outcome = "FLAT"
)

// Alert — сработавшее условие по символу на закрытой свече.
type Alert struct {
	ID         string        `json:"id"`
	Profile    string        `json:"profile"`
	Symbol     string        `json:"symbol"`
	Timeframe  string        `json:"timeframe"`
	Kind       ConditionKind `json:"kind"`
	Line       int           `json:"line,omitempty"` // длина EMA для touch/retouch
	Trend      Trend         `json:"trend,omitempty"`
	Outcome    Outcome       `json:"outcome,omitempty"`
	Price      float64       `json:"price"`
	CandleTime time.Time     `json:"candle_time"`
	FiredAt    time.Time     `json:"fired_at"`
	Reason     string        `json:"reason,omitempty"`
}

// Label — короткое имя условия: "EMA150", "OVERBOUGHT", "TREND".
func (a Alert) Label() string {
	switch a.Kind {
	case KindTouch, KindRetouch:
		if a.Line > 0 {
			return fmt.Sprintf("EMA%d", a.Line)
		}
	case KindTrend:
		if a.Trend != TrendNone {
			return strings.ToUpper(string(a.Trend))
		}
	}
	return strings.ToUpper(string(a.Kind))
}

// CooldownKind — вид условия для ключа кулдауна; одно и то же условие
// на разных таймфреймах гасится независимо.
func (a Alert) CooldownKind() string {
	kind := string(a.Kind)
	if a.Line > 0 {
		kind = fmt.Sprintf("%s:ema%d", kind, a.Line)
	}
	if a.Kind == KindTrend && a.Trend != TrendNone {
		kind += ":" + strings.ToLower(string(a.Trend))
	}
	if a.Timeframe != "" {
		kind += "@" + a.Timeframe
	}
	return kind
}
