package calculator

import "CoinSentinel/internal/model"

// EMA returns the exponential moving average series of values with
// alpha = 2/(period+1), seeded with the first value (adjust=false).
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) == 0 {
		return nil
	}
	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// EMACrosses returns period -> EMA series for every period the closes cover.
func EMACrosses(closes []float64, periods ...int) map[int][]float64 {
	out := make(map[int][]float64, len(periods))
	for _, p := range periods {
		if p > 0 && len(closes) >= p {
			out[p] = EMA(closes, p)
		}
	}
	return out
}

// EMACross compares the last two points of a fast and a slow EMA series.
func EMACross(fast, slow []float64) string {
	if len(fast) < 2 || len(slow) < 2 {
		return model.InsufficientData
	}
	fPrev, fLast := fast[len(fast)-2], fast[len(fast)-1]
	sPrev, sLast := slow[len(slow)-2], slow[len(slow)-1]
	switch {
	case fPrev < sPrev && fLast > sLast:
		return model.CrossGolden
	case fPrev > sPrev && fLast < sLast:
		return model.CrossDeath
	}
	return model.CrossNone
}
