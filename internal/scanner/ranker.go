package scanner

import (
	"math"
	"sort"
	"strings"

	"signal_bot/internal/models"
)

// TopByVolume — топ-N торгуемых контрактов с нужным суффиксом по объёму.
// При равном объёме порядок по имени символа. Пустой вход — пустой результат.
func TopByVolume(tickers []models.Ticker, suffix string, n int) []string {
	if n <= 0 || len(tickers) == 0 {
		return []string{}
	}

	picked := eligible(tickers, suffix)
	sort.SliceStable(picked, func(i, j int) bool {
		if picked[i].Volume != picked[j].Volume {
			return picked[i].Volume > picked[j].Volume
		}
		return picked[i].Symbol < picked[j].Symbol
	})

	if n > len(picked) {
		n = len(picked)
	}
	out := make([]string, 0, n)
	for _, t := range picked[:n] {
		out = append(out, t.Symbol)
	}
	return out
}

// Mover — контракт с сильным движением за 24h.
type Mover struct {
	Symbol    string
	ChangePct float64
	Volume    float64
	LastPrice float64
}

// TopMovers: |change| >= minMovePct, из них pool самых ликвидных,
// затем по убыванию изменения, первые n.
func TopMovers(tickers []models.Ticker, suffix string, minMovePct float64, pool, n int) []Mover {
	if n <= 0 {
		return []Mover{}
	}

	var moved []models.Ticker
	for _, t := range eligible(tickers, suffix) {
		if math.Abs(t.ChangePct) >= minMovePct {
			moved = append(moved, t)
		}
	}

	sort.SliceStable(moved, func(i, j int) bool {
		if moved[i].Volume != moved[j].Volume {
			return moved[i].Volume > moved[j].Volume
		}
		return moved[i].Symbol < moved[j].Symbol
	})
	if pool > 0 && len(moved) > pool {
		moved = moved[:pool]
	}

	sort.SliceStable(moved, func(i, j int) bool {
		if moved[i].ChangePct != moved[j].ChangePct {
			return moved[i].ChangePct > moved[j].ChangePct
		}
		return moved[i].Symbol < moved[j].Symbol
	})
	if len(moved) > n {
		moved = moved[:n]
	}

	out := make([]Mover, 0, len(moved))
	for _, t := range moved {
		out = append(out, Mover{Symbol: t.Symbol, ChangePct: t.ChangePct, Volume: t.Volume, LastPrice: t.LastPrice})
	}
	return out
}

func eligible(tickers []models.Ticker, suffix string) []models.Ticker {
	out := make([]models.Ticker, 0, len(tickers))
	for _, t := range tickers {
		if !t.Tradable || t.Volume <= 0 {
			continue
		}
		if suffix != "" && !strings.HasSuffix(t.Symbol, suffix) {
			continue
		}
		out = append(out, t)
	}
	return out
}
