package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	scan "signal_bot/internal/scanner"
)

const timeLayout = "2006-01-02 15:04 UTC"

func formatAlert(a models.Alert) string {
	var b strings.Builder
	switch a.Kind {
	case models.KindOverbought:
		fmt.Fprintf(&b, "🔴 OVERBOUGHT\n")
	case models.KindOversold:
		fmt.Fprintf(&b, "🟢 OVERSOLD\n")
	case models.KindResolved:
		fmt.Fprintf(&b, "🏁 EMA%d: итог %s\n", a.Line, a.Outcome)
	case models.KindRetouch:
		fmt.Fprintf(&b, "🔁 ПОВТОРНОЕ КАСАНИЕ %s\n", a.Label())
	case models.KindTrend:
		fmt.Fprintf(&b, "%s ТРЕНД %s\n", a.Trend.Emoji(), a.Label())
	default:
		fmt.Fprintf(&b, "🚨 СИГНАЛ %s TOUCH\n", a.Label())
	}
	fmt.Fprintf(&b, "📊 %s\n", a.Symbol)
	fmt.Fprintf(&b, "⏱ TF: %s\n", a.Timeframe)
	if a.Trend != models.TrendNone && a.Kind != models.KindTrend {
		fmt.Fprintf(&b, "%s Тренд: %s\n", a.Trend.Emoji(), a.Trend)
	}
	fmt.Fprintf(&b, "💰 Цена: %s\n", price(a.Price))
	if a.Reason != "" {
		fmt.Fprintf(&b, "ℹ️ %s\n", a.Reason)
	}
	fmt.Fprintf(&b, "🕒 %s", candleTime(a).Format(timeLayout))
	return b.String()
}

func candleTime(a models.Alert) time.Time {
	if !a.CandleTime.IsZero() {
		return a.CandleTime.UTC()
	}
	return a.FiredAt.UTC()
}

// formatDigest — сводка цикла: сработавшие условия по меткам и счётчики.
func formatDigest(stats *models.ScanStats, alerts []models.Alert) string {
	var b strings.Builder
	profile := ""
	if stats != nil {
		profile = stats.Profile
	}
	fmt.Fprintf(&b, "📊 РЕЗУЛЬТАТ СКАНА %s\n\n", profile)

	if len(alerts) == 0 {
		b.WriteString("❌ Сигналов не найдено\n")
	} else {
		groups := make(map[string][]string)
		for _, a := range alerts {
			label := a.Label()
			entry := fmt.Sprintf("%s %s", helper.BaseAsset(a.Symbol), a.Timeframe)
			if a.Trend != models.TrendNone && a.Kind != models.KindTrend {
				entry += fmt.Sprintf(" (%s)", a.Trend)
			}
			groups[label] = append(groups[label], entry)
		}
		labels := make([]string, 0, len(groups))
		for l := range groups {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		for _, l := range labels {
			fmt.Fprintf(&b, "📌 %s (%d)\n", l, len(groups[l]))
			for _, e := range groups[l] {
				fmt.Fprintf(&b, "• %s\n", e)
			}
			b.WriteString("\n")
		}
	}

	if stats != nil {
		b.WriteString("\n")
		fmt.Fprintf(&b, "• Символов    : %d\n", stats.Symbols)
		fmt.Fprintf(&b, "• Проверено   : %d\n", stats.Scanned)
		fmt.Fprintf(&b, "• Отфильтровано: %d\n", stats.Filtered)
		fmt.Fprintf(&b, "• Bullish     : %d\n", stats.Bullish)
		fmt.Fprintf(&b, "• Bearish     : %d\n", stats.Bearish)
		if stats.Skipped > 0 {
			fmt.Fprintf(&b, "• Мало истории: %d\n", stats.Skipped)
		}
		if stats.Unavailable > 0 {
			fmt.Fprintf(&b, "• Недоступно  : %d\n", stats.Unavailable)
		}
		if stats.Suppressed > 0 {
			fmt.Fprintf(&b, "• Кулдаун     : %d\n", stats.Suppressed)
		}
		fmt.Fprintf(&b, "\n⏱ %s\n", minSec(stats.Elapsed))
		fmt.Fprintf(&b, "🕒 %s", stats.StartedAt.Add(stats.Elapsed).UTC().Format(timeLayout))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatProgress(profile string, done, total int) string {
	return fmt.Sprintf("✅ Батч %d/%d готов (%s)", done, total, profile)
}

type statusView struct {
	Monitor     scan.MonitorStatus
	AutoProfile string
	AutoOn      bool
	Scanning    bool
	Last        *models.ScanStats
	Daily       int64 // алертов за сутки, <0 — неизвестно
}

func formatStatus(v statusView) string {
	var b strings.Builder
	b.WriteString("📊 СТАТУС\n\n")
	fmt.Fprintf(&b, "Монитор: %s (%s)\n", onOff(v.Monitor.Enabled), v.Monitor.Profile)
	if v.Monitor.Single != "" {
		fmt.Fprintf(&b, "Только: %s\n", v.Monitor.Single)
	}
	fmt.Fprintf(&b, "Монет: %d\n", len(v.Monitor.Watchlist))
	fmt.Fprintf(&b, "Проходов: %d\n", v.Monitor.Passes)
	if v.Monitor.Fired > 0 || v.Monitor.Suppressed > 0 {
		fmt.Fprintf(&b, "Сигналов монитора: %d (погашено кулдауном: %d)\n", v.Monitor.Fired, v.Monitor.Suppressed)
	}
	if v.Monitor.Pending > 0 {
		fmt.Fprintf(&b, "Наблюдений после касания: %d\n", v.Monitor.Pending)
	}
	if v.AutoOn {
		fmt.Fprintf(&b, "Авто-скан: вкл (%s)\n", v.AutoProfile)
	} else {
		b.WriteString("Авто-скан: выкл\n")
	}
	if v.Scanning {
		b.WriteString("Скан: идёт\n")
	}
	if v.Daily >= 0 {
		fmt.Fprintf(&b, "Алертов за 24ч: %d\n", v.Daily)
	}
	if v.Last != nil {
		fmt.Fprintf(&b, "Последний скан: %s, %d сигналов, %s",
			v.Last.Profile, v.Last.Fired, v.Last.StartedAt.UTC().Format(timeLayout))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatWatchlist(symbols []string) string {
	if len(symbols) == 0 {
		return "📭 Вотчлист пуст"
	}
	return "👀 Вотчлист:\n" + strings.Join(symbols, "\n")
}

func formatMovers(reports []scan.MoverReport) string {
	if len(reports) == 0 {
		return "❌ Сильных движений нет"
	}
	var b strings.Builder
	b.WriteString("🚀 ТОП ДВИЖЕНИЯ 24h\n")
	for i, r := range reports {
		fmt.Fprintf(&b, "\n%d. %s %s\n", i+1, r.Symbol, signed(r.ChangePct))
		fmt.Fprintf(&b, "   💰 %s | объём %s\n", price(r.LastPrice), compact(r.Volume))
		if len(r.Supports) > 0 {
			fmt.Fprintf(&b, "   🟢 S(%s): %s\n", r.Timeframe, joinPrices(r.Supports))
		}
		if len(r.Resistances) > 0 {
			fmt.Fprintf(&b, "   🔴 R(%s): %s\n", r.Timeframe, joinPrices(r.Resistances))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatHistory(alerts []models.Alert) string {
	if len(alerts) == 0 {
		return "📭 Алертов ещё не было"
	}
	var b strings.Builder
	b.WriteString("🗂 Последние алерты:\n")
	for _, a := range alerts {
		fmt.Fprintf(&b, "• %s %s %s %s @ %s\n",
			a.FiredAt.UTC().Format("01-02 15:04"), a.Symbol, a.Timeframe, a.Label(), price(a.Price))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatProfiles(profiles []models.Profile, def string) string {
	var b strings.Builder
	b.WriteString("Профили:\n")
	for _, p := range profiles {
		mark := ""
		if p.Name == def {
			mark = " (по умолчанию)"
		}
		fmt.Fprintf(&b, "• %s%s", p.Name, mark)
		if preset, ok := models.Presets[p.Preset]; ok {
			fmt.Fprintf(&b, " — %s: %s", preset.Name, preset.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func joinPrices(vs []float64) string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = price(v)
	}
	return strings.Join(out, ", ")
}

func compact(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
