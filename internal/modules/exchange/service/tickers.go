package service

import (
	"context"
	"fmt"
	"time"

	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

type tickerDTO struct {
	Symbol       string  `json:"symbol"`
	LastPrice    float64 `json:"lastPrice"`
	Volume24     float64 `json:"volume24"`
	Amount24     float64 `json:"amount24"` // оборот в котируемой валюте
	RiseFallRate float64 `json:"riseFallRate"`
}

func (t tickerDTO) model() models.Ticker {
	return models.Ticker{
		Symbol:    t.Symbol,
		LastPrice: t.LastPrice,
		Volume:    t.Amount24,
		ChangePct: t.RiseFallRate * 100,
		Tradable:  true,
	}
}

type detailDTO struct {
	Symbol string `json:"symbol"`
	State  int    `json:"state"` // 0 — торгуется
}

// FetchTickers — снимок всех контрактов. Свежий снимок из потока, иначе REST.
func (c *Client) FetchTickers(ctx context.Context) ([]models.Ticker, error) {
	if out, ok := c.streamSnapshot(); ok {
		c.markTradable(ctx, out)
		return out, nil
	}

	raw, err := getData[[]tickerDTO](ctx, c, "/api/v1/contract/ticker", nil)
	if err != nil {
		return nil, err
	}
	out := make([]models.Ticker, 0, len(raw))
	for _, t := range raw {
		out = append(out, t.model())
	}
	c.markTradable(ctx, out)
	return out, nil
}

// IsTradable: контракт есть в списке и в состоянии торговли.
func (c *Client) IsTradable(ctx context.Context, symbol string) (bool, error) {
	details, err := c.loadDetails(ctx)
	if err != nil {
		return false, err
	}
	return details[symbol], nil
}

// markTradable проставляет Tradable по справочнику контрактов.
// Справочник недоступен — оставляем как есть, ранкер не должен вставать из-за него.
func (c *Client) markTradable(ctx context.Context, tickers []models.Ticker) {
	details, err := c.loadDetails(ctx)
	if err != nil {
		logger.Warn("[MEXC] contract detail unavailable: %v", err)
		return
	}
	for i := range tickers {
		tickers[i].Tradable = details[tickers[i].Symbol]
	}
}

func (c *Client) loadDetails(ctx context.Context) (map[string]bool, error) {
	c.detailMu.Lock()
	defer c.detailMu.Unlock()

	if c.details != nil && c.now().Sub(c.detailsAt) < c.detailTTL {
		return c.details, nil
	}

	raw, err := getData[[]detailDTO](ctx, c, "/api/v1/contract/detail", nil)
	if err != nil {
		if c.details != nil {
			// протухший справочник лучше, чем никакого
			return c.details, nil
		}
		return nil, fmt.Errorf("contract detail: %w", err)
	}

	details := make(map[string]bool, len(raw))
	for _, d := range raw {
		details[d.Symbol] = d.State == 0
	}
	c.details, c.detailsAt = details, c.now()
	return details, nil
}

func (c *Client) streamSnapshot() ([]models.Ticker, bool) {
	if c.maxAge <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.snapshot) == 0 || c.now().Sub(c.snapshotAt) > c.maxAge {
		return nil, false
	}
	out := make([]models.Ticker, 0, len(c.snapshot))
	for _, t := range c.snapshot {
		out = append(out, t)
	}
	return out, true
}

func (c *Client) storeSnapshot(raw []tickerDTO, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range raw {
		if t.Symbol == "" {
			continue
		}
		c.snapshot[t.Symbol] = t.model()
	}
	c.snapshotAt = at
}
