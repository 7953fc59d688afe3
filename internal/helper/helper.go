package helper

import (
	"strings"
	"time"
)

func NormTF(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	switch s {
	case "60m", "1h":
		return "1h"
	case "240m", "4h":
		return "4h"
	case "1440m", "24h", "1d":
		return "1d"
	default:
		return s
	}
}

// TFDuration — длительность свечи таймфрейма, 0 для неизвестного.
func TFDuration(tf string) time.Duration {
	switch NormTF(tf) {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "8h":
		return 8 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return 0
	}
}

// NormSymbol приводит ввод пользователя к виду контракта: "btc" -> "BTC_USDT",
// "eth/usdt" -> "ETH_USDT". quote по умолчанию USDT.
func NormSymbol(raw, quote string) string {
	if quote == "" {
		quote = "USDT"
	}
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	// ccxt-стиль: BTC/USDT:USDT
	if i := strings.IndexByte(s, ':'); i > 0 {
		s = s[:i]
	}
	s = strings.NewReplacer("/", "_", "-", "_").Replace(s)
	if strings.HasSuffix(s, "_"+quote) {
		return s
	}
	if strings.HasSuffix(s, quote) && len(s) > len(quote) {
		return s[:len(s)-len(quote)] + "_" + quote
	}
	return s + "_" + quote
}

// BaseAsset — "BTC_USDT" -> "BTC".
func BaseAsset(symbol string) string {
	if i := strings.IndexByte(symbol, '_'); i > 0 {
		return symbol[:i]
	}
	return symbol
}
