package helper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormTF(t *testing.T) {
	assert.Equal(t, "1h", NormTF("60m"))
	assert.Equal(t, "1h", NormTF(" 1H "))
	assert.Equal(t, "5m", NormTF("candle5m"))
	assert.Equal(t, "1d", NormTF("24h"))
}

func TestTFDuration(t *testing.T) {
	assert.Equal(t, 5*time.Minute, TFDuration("5m"))
	assert.Equal(t, time.Hour, TFDuration("60m"))
	assert.Equal(t, 24*time.Hour, TFDuration("1d"))
	assert.Zero(t, TFDuration("7m"))
}

func TestNormSymbol(t *testing.T) {
	cases := map[string]string{
		"btc":           "BTC_USDT",
		" Eth ":         "ETH_USDT",
		"sol_usdt":      "SOL_USDT",
		"doge/usdt":     "DOGE_USDT",
		"BTC/USDT:USDT": "BTC_USDT",
		"pepeusdt":      "PEPE_USDT",
		"":              "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormSymbol(in, ""), in)
	}
}

func TestBaseAsset(t *testing.T) {
	assert.Equal(t, "BTC", BaseAsset("BTC_USDT"))
	assert.Equal(t, "XYZ", BaseAsset("XYZ"))
}
