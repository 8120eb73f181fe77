package strategy

import "CoinSentinel/internal/model"

const (
	rsiOverbought = 70.0
	rsiOversold   = 30.0
)

// statusPriority maps indicator readings to the composite status.
// Checked in order, first match wins.
var statusPriority = []struct {
	Status string
	Match  func(rsi, price, upper, lower float64) bool
}{
	{model.StatusOverbought, func(rsi, _, _, _ float64) bool { return rsi >= rsiOverbought }},
	{model.StatusAboveUpperBand, func(_, price, upper, _ float64) bool { return upper > 0 && price > upper }},
	{model.StatusOversold, func(rsi, _, _, _ float64) bool { return rsi > 0 && rsi <= rsiOversold }},
	{model.StatusBelowLowerBand, func(_, price, _, lower float64) bool { return lower > 0 && price < lower }},
}

func compositeStatus(rsi, price, upper, lower float64) string {
	for _, s := range statusPriority {
		if s.Match(rsi, price, upper, lower) {
			return s.Status
		}
	}
	return model.StatusNeutral
}

// rsiLabel returns the RSI zone, or "" inside the 30..70 band.
// RSI 0 means no data and never counts as oversold.
func rsiLabel(rsi float64) string {
	switch {
	case rsi >= rsiOverbought:
		return model.StatusOverbought
	case rsi > 0 && rsi <= rsiOversold:
		return model.StatusOversold
	}
	return ""
}

func bandLabel(price, upper, lower float64) string {
	switch {
	case upper > 0 && price > upper:
		return model.StatusAboveUpperBand
	case lower > 0 && price < lower:
		return model.StatusBelowLowerBand
	}
	return ""
}

// signalTag checks the buy side first: an oversold RSI outranks a price
// above the upper band.
func signalTag(rsi, band string) model.SignalTag {
	switch {
	case rsi == model.StatusOversold || band == model.StatusBelowLowerBand:
		return model.SignalBuy
	case rsi == model.StatusOverbought || band == model.StatusAboveUpperBand:
		return model.SignalSell
	}
	return model.SignalNeutral
}

func trendTag(macd, ema string) model.SignalTag {
	switch {
	case macd == model.CrossBullish || ema == model.CrossGolden:
		return model.SignalBuy
	case macd == model.CrossBearish || ema == model.CrossDeath:
		return model.SignalSell
	}
	return model.SignalNeutral
}
