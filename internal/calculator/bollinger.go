package calculator

import (
	"math"

	"github.com/montanaflynn/stats"
)

// BollingerBands returns the SMA of the trailing window plus and minus mult
// sample standard deviations. Returns (0, 0) when the window is not covered
// or the statistics are undefined.
func BollingerBands(closes []float64, period int, mult float64) (upper, lower float64) {
	if period < 2 || len(closes) < period {
		return 0, 0
	}
	window := stats.Float64Data(closes[len(closes)-period:])

	mean, err := stats.Mean(window)
	if err != nil || !finite(mean) {
		return 0, 0
	}
	sd, err := stats.StandardDeviationSample(window)
	if err != nil || !finite(sd) {
		return 0, 0
	}
	return mean + mult*sd, mean - mult*sd
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
