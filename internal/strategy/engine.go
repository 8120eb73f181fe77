package strategy

import (
	"CoinSentinel/internal/calculator"
	"CoinSentinel/internal/model"
)

// Analyze computes the indicator snapshot for the latest price from an
// oldest-first series of closes.
func Analyze(price float64, closes []float64) *model.IndicatorSnapshot {
	snap := &model.IndicatorSnapshot{
		RSI:  calculator.RSI(closes, calculator.RSIPeriod),
		MACD: calculator.MACDCross(closes, calculator.MACDFast, calculator.MACDSlow, calculator.MACDSignal),
	}
	snap.UpperBand, snap.LowerBand = calculator.BollingerBands(closes, calculator.BollingerPeriod, calculator.BollingerStdDev)

	emas := calculator.EMACrosses(closes, calculator.EMAFast, calculator.EMASlow)
	snap.EMA = calculator.EMACross(emas[calculator.EMAFast], emas[calculator.EMASlow])

	snap.RSILabel = rsiLabel(snap.RSI)
	snap.BandLabel = bandLabel(price, snap.UpperBand, snap.LowerBand)
	snap.Status = compositeStatus(snap.RSI, price, snap.UpperBand, snap.LowerBand)
	snap.Signal = signalTag(snap.RSILabel, snap.BandLabel)
	snap.Trend = trendTag(snap.MACD, snap.EMA)
	return snap
}

// Condition evaluates a rule against this cycle's data. known is false when
// the rule needs data that is unavailable this cycle; the rule's armed state
// must then be left as is.
func Condition(rule *model.AlertRule, quote *model.PriceSnapshot, ind *model.IndicatorSnapshot) (cond, known bool) {
	switch rule.Kind {
	case model.KindPriceHigh:
		if quote == nil {
			return false, false
		}
		return quote.Price >= rule.Price, true
	case model.KindPriceLow:
		if quote == nil {
			return false, false
		}
		return quote.Price <= rule.Price, true
	case model.KindStatusMatch:
		if ind == nil {
			return false, false
		}
		for _, l := range ind.Labels() {
			if l == rule.Value {
				return true, true
			}
		}
		return false, true
	}
	return false, false
}
