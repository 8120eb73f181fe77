package model

import (
	"strings"
	"time"
)

// Source identifies which provider family serves a symbol.
type Source string

const (
	SourceExchange   Source = "exchange"
	SourceAggregator Source = "aggregator"
)

// Symbol is a resolved asset identifier. Source is the variant tag: an
// exchange symbol is a native pair (BTCUSDT) and may carry the aggregator id
// of its base asset in CrossRef; an aggregator symbol is a coin id (bitcoin).
type Symbol struct {
	ID       string `json:"id"`
	Source   Source `json:"source"`
	Base     string `json:"base"`
	CrossRef string `json:"crossRef,omitempty"`
}

// AggregatorID returns the id to query on the aggregator, or "".
func (s Symbol) AggregatorID() string {
	if s.Source == SourceAggregator {
		return s.ID
	}
	return s.CrossRef
}

// Display returns the label shown to users.
func (s Symbol) Display() string {
	if s.Source == SourceAggregator {
		base := s.Base
		if base == "" {
			base = s.ID
		}
		return strings.ToUpper(base) + " (CG)"
	}
	return strings.ToUpper(s.ID)
}

// Listing is one entry of a provider's symbol list.
type Listing struct {
	ID   string
	Base string
}

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// CandleSeries holds oldest-first bars for one symbol at a fixed interval.
type CandleSeries struct {
	Symbol   string
	Interval string
	Bars     []OHLCV
}

// Closes returns the close prices, oldest first.
func (c CandleSeries) Closes() []float64 {
	closes := make([]float64, len(c.Bars))
	for i, b := range c.Bars {
		closes[i] = b.Close
	}
	return closes
}

// PriceSnapshot is the latest quote for a symbol. MarketCap and
// FullyDilutedValuation are zero when the provider does not report them.
type PriceSnapshot struct {
	Price                 float64   `json:"price"`
	ChangePct24h          float64   `json:"changePct24h"`
	MarketCap             float64   `json:"marketCap,omitempty"`
	FullyDilutedValuation float64   `json:"fdv,omitempty"`
	Time                  time.Time `json:"time"`
}
