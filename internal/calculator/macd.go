package calculator

import "CoinSentinel/internal/model"

// MACDCross reports whether the MACD line crossed its signal line on the last
// bar. A cross needs a strict sign change of (MACD - signal) between the last
// two bars; a zero on either side is not a cross.
func MACDCross(closes []float64, fast, slow, signal int) string {
	if fast <= 0 || slow <= 0 || signal <= 0 || len(closes) < slow || len(closes) < 2 {
		return model.InsufficientData
	}
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig := EMA(line, signal)

	n := len(line)
	prev := line[n-2] - sig[n-2]
	last := line[n-1] - sig[n-1]
	switch {
	case prev < 0 && last > 0:
		return model.CrossBullish
	case prev > 0 && last < 0:
		return model.CrossBearish
	}
	return model.CrossNone
}
