package models

// Ticker — срез 24h-тикера по контракту.
type Ticker struct {
	Symbol    string  `json:"symbol"`
	LastPrice float64 `json:"last_price"`
	Volume    float64 `json:"volume"` // quote volume за 24h
	ChangePct float64 `json:"change_pct"`
	Tradable  bool    `json:"tradable"`
}
