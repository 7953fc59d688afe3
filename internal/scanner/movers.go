package scanner

import (
	"context"
	"errors"

	"signal_bot/internal/indicator"
	"signal_bot/pkg/logger"
)

type MoversConfig struct {
	Suffix      string
	MinMovePct  float64 // проценты, 3 = 3%
	Pool        int     // сколько самых ликвидных берём перед сортировкой по изменению
	TopN        int
	Timeframe   string
	Limit       int
	LevelWindow int
}

// MoverReport — движение за 24h и ближайшие уровни поддержки/сопротивления.
type MoverReport struct {
	Mover
	Timeframe   string
	Supports    []float64
	Resistances []float64
}

// Movers — топ движений за сутки. Уровни считаются, если свечи удалось получить.
func (e *Engine) Movers(ctx context.Context, cfg MoversConfig) ([]MoverReport, error) {
	if e.tickers == nil {
		return nil, errors.New("scanner: no ticker source")
	}
	tickers, err := e.tickers.FetchTickers(ctx)
	if err != nil {
		return nil, err
	}

	movers := TopMovers(tickers, cfg.Suffix, cfg.MinMovePct, cfg.Pool, cfg.TopN)
	out := make([]MoverReport, 0, len(movers))
	for _, m := range movers {
		rep := MoverReport{Mover: m, Timeframe: cfg.Timeframe}
		if cfg.Timeframe != "" && cfg.LevelWindow > 0 {
			candles, err := e.fetcher.Fetch(ctx, Request{
				Symbol:     m.Symbol,
				Timeframe:  cfg.Timeframe,
				Limit:      cfg.Limit,
				MinCandles: 2*cfg.LevelWindow + 1,
			})
			switch {
			case err == nil:
				rep.Supports, rep.Resistances = indicator.Levels(candles, cfg.LevelWindow)
			case Soft(err):
				logger.Warn("[MOVERS] %s levels skipped: %v", m.Symbol, err)
			default:
				return out, err
			}
		}
		out = append(out, rep)
	}
	return out, nil
}
