package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

func onOff(v bool) string {
	if v {
		return "вкл"
	}
	return "выкл"
}

func f2(v float64) string { // для красивого вывода
	return fmt.Sprintf("%.2f", v)
}

// price — мелкие монеты с большим числом знаков.
func price(v float64) string {
	switch a := math.Abs(v); {
	case a == 0:
		return "0"
	case a < 0.01:
		return strconv.FormatFloat(v, 'f', 8, 64)
	case a < 1:
		return strconv.FormatFloat(v, 'f', 6, 64)
	case a < 100:
		return strconv.FormatFloat(v, 'f', 4, 64)
	default:
		return f2(v)
	}
}

func signed(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

func minSec(d time.Duration) string {
	s := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%dm %ds", s/60, s%60)
}

// intArg — число из аргумента команды, def при пустом или кривом вводе.
func intArg(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// firstArg — первое слово аргументов команды.
func firstArg(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
