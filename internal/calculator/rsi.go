package calculator

import "math"

// Default indicator parameters.
const (
	RSIPeriod       = 14
	BollingerPeriod = 20
	BollingerStdDev = 2.0
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	EMAFast         = 50
	EMASlow         = 200
)

// RSI computes the relative strength index from the simple rolling mean of
// the last period gains and losses (not Wilder smoothing).
// Returns 0 when there are fewer than period+1 closes and 100 when the
// average loss is zero.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 0
	}

	var gain, loss float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	if math.IsNaN(avgGain) || math.IsNaN(avgLoss) {
		return 0
	}
	if avgLoss == 0 {
		return 100.0
	}
	return 100.0 - 100.0/(1.0+avgGain/avgLoss)
}
