package model

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// FormatPrice renders a price with thousands separators and two decimals.
// Prices below 1 keep up to eight decimals, trailing zeros trimmed but never
// fewer than two.
func FormatPrice(v float64) string {
	switch {
	case v == 0:
		return "0.00"
	case math.Abs(v) >= 1:
		return humanize.FormatFloat("#,###.##", v)
	}
	s := strings.TrimRight(strconv.FormatFloat(v, 'f', 8, 64), "0")
	if i := strings.IndexByte(s, '.'); len(s)-i-1 < 2 {
		s += strings.Repeat("0", 2-(len(s)-i-1))
	}
	return s
}

// FormatLargeNumber renders market sizes as $1.23 K/M/B/T. Zero means unknown.
func FormatLargeNumber(v float64) string {
	switch {
	case v == 0:
		return "N/A"
	case v < 1e3:
		return "$" + FormatPrice(v)
	case v < 1e6:
		return "$" + FormatPrice(v/1e3) + " K"
	case v < 1e9:
		return "$" + FormatPrice(v/1e6) + " M"
	case v < 1e12:
		return "$" + FormatPrice(v/1e9) + " B"
	default:
		return "$" + FormatPrice(v/1e12) + " T"
	}
}
