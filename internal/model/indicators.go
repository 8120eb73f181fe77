package model

import "strings"

// Canonical status vocabulary. Status-match rules compare against these.
const (
	StatusOverbought     = "overbought"
	StatusAboveUpperBand = "above-upper-band"
	StatusOversold       = "oversold"
	StatusBelowLowerBand = "below-lower-band"
	StatusNeutral        = "neutral"

	CrossBullish = "bullish-cross"
	CrossBearish = "bearish-cross"
	CrossGolden  = "golden-cross"
	CrossDeath   = "death-cross"
	CrossNone    = "none"

	InsufficientData = "insufficient-data"
)

// StatusTargets lists every value a status rule may target.
var StatusTargets = []string{
	StatusOverbought, StatusAboveUpperBand, StatusOversold, StatusBelowLowerBand, StatusNeutral,
	CrossBullish, CrossBearish, CrossGolden, CrossDeath,
}

// legacyStatus maps labels written by older config files.
var legacyStatus = map[string]string{
	"SOBRECOMPRADO (RSI >= 70)":   StatusOverbought,
	"ACIMA DA BANDA SUPERIOR":     StatusAboveUpperBand,
	"SOBREVENDIDO (RSI <= 30)":    StatusOversold,
	"ABAIXO DA BANDA INFERIOR":    StatusBelowLowerBand,
	"MACD: Cruzamento de Alta":    CrossBullish,
	"MACD: Cruzamento de Baixa":   CrossBearish,
	"MME: Cruz Dourada (50/200)":  CrossGolden,
	"MME: Cruz da Morte (50/200)": CrossDeath,
	"Cruzamento de Alta":          CrossBullish,
	"Cruzamento de Baixa":         CrossBearish,
}

// NormalizeStatus maps a target to the canonical vocabulary. Unknown values
// are returned lower-cased and trimmed.
func NormalizeStatus(v string) string {
	v = strings.TrimSpace(v)
	if c, ok := legacyStatus[v]; ok {
		return c
	}
	return strings.ToLower(v)
}

// IsStatusTarget reports whether v is a canonical status target.
func IsStatusTarget(v string) bool {
	for _, t := range StatusTargets {
		if t == v {
			return true
		}
	}
	return false
}

// SignalTag is the buy/sell hint derived from indicators.
type SignalTag string

const (
	SignalBuy     SignalTag = "buy"
	SignalSell    SignalTag = "sell"
	SignalNeutral SignalTag = "neutral"
)

// IndicatorSnapshot holds the per-cycle derived values for one symbol.
type IndicatorSnapshot struct {
	RSI       float64   `json:"rsi"`
	UpperBand float64   `json:"upperBand"`
	LowerBand float64   `json:"lowerBand"`
	RSILabel  string    `json:"rsiLabel,omitempty"`
	BandLabel string    `json:"bandLabel,omitempty"`
	MACD      string    `json:"macd"`
	EMA       string    `json:"ema"`
	Status    string    `json:"status"`
	Signal    SignalTag `json:"signal"`
	Trend     SignalTag `json:"trend"`
}

// Labels returns every label a status rule can match in this snapshot.
func (s *IndicatorSnapshot) Labels() []string {
	labels := []string{s.Status}
	for _, l := range []string{s.RSILabel, s.BandLabel, s.MACD, s.EMA} {
		if l != "" && l != CrossNone && l != InsufficientData {
			labels = append(labels, l)
		}
	}
	return labels
}
