package collector

import (
	"sort"
	"strings"
	"time"

	"CoinSentinel/internal/model"
)

// Universe resolves configured symbol ids. It is never mutated after
// construction; a refresh builds a new Universe and swaps it in.
type Universe struct {
	symbols map[string]model.Symbol
	ordered []model.Symbol
	BuiltAt time.Time
}

// majorCoins pins the aggregator id for tickers shared by many listed coins
// (bridged and wrapped variants).
var majorCoins = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"BNB":   "binancecoin",
	"SOL":   "solana",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"TRX":   "tron",
	"DOT":   "polkadot",
	"LINK":  "chainlink",
	"AVAX":  "avalanche-2",
	"LTC":   "litecoin",
	"USDT":  "tether",
	"USDC":  "usd-coin",
	"MATIC": "matic-network",
}

// betterAggregatorID reports whether candidate should replace current as the
// cross reference for base: the pinned major id wins, then an id without a
// hyphen, then the lexically smaller id.
func betterAggregatorID(base, candidate, current string) bool {
	if pinned, ok := majorCoins[base]; ok {
		if candidate == pinned || current == pinned {
			return candidate == pinned
		}
	}
	ch, cuh := strings.Contains(candidate, "-"), strings.Contains(current, "-")
	if ch != cuh {
		return !ch
	}
	return candidate < current
}

// NewUniverse builds the symbol universe from exchange and aggregator
// listings. Exchange pairs are cross-referenced to one aggregator id with the
// same base asset, picked by betterAggregatorID; aggregator ids to the first
// exchange pair of their base asset.
func NewUniverse(exchange, aggregator []model.Listing) *Universe {
	u := &Universe{symbols: make(map[string]model.Symbol), BuiltAt: time.Now()}

	aggByBase := make(map[string]string)
	for _, l := range aggregator {
		base := strings.ToUpper(l.Base)
		if cur, ok := aggByBase[base]; !ok || betterAggregatorID(base, l.ID, cur) {
			aggByBase[base] = l.ID
		}
	}
	exByBase := make(map[string]string)
	for _, l := range exchange {
		base := strings.ToUpper(l.Base)
		if _, ok := exByBase[base]; !ok {
			exByBase[base] = l.ID
		}
		u.add(model.Symbol{ID: l.ID, Source: model.SourceExchange, Base: base, CrossRef: aggByBase[base]})
	}
	for _, l := range aggregator {
		base := strings.ToUpper(l.Base)
		u.add(model.Symbol{ID: l.ID, Source: model.SourceAggregator, Base: base, CrossRef: exByBase[base]})
	}

	sort.SliceStable(u.ordered, func(i, j int) bool {
		if u.ordered[i].Source != u.ordered[j].Source {
			return u.ordered[i].Source == model.SourceExchange
		}
		return u.ordered[i].ID < u.ordered[j].ID
	})
	return u
}

func (u *Universe) add(s model.Symbol) {
	if _, dup := u.symbols[s.ID]; dup {
		return
	}
	u.symbols[s.ID] = s
	u.ordered = append(u.ordered, s)
}

// Resolve returns the symbol with the given id.
func (u *Universe) Resolve(id string) (model.Symbol, bool) {
	if u == nil {
		return model.Symbol{}, false
	}
	s, ok := u.symbols[id]
	return s, ok
}

// Len returns the number of known symbols.
func (u *Universe) Len() int {
	if u == nil {
		return 0
	}
	return len(u.ordered)
}

// Search returns up to limit symbols whose id or base asset contains term,
// case-insensitively, exchange pairs first.
func (u *Universe) Search(term string, limit int) []model.Symbol {
	if u == nil {
		return nil
	}
	term = strings.ToLower(strings.TrimSpace(term))
	var out []model.Symbol
	for _, s := range u.ordered {
		if limit > 0 && len(out) >= limit {
			break
		}
		if term == "" || strings.Contains(strings.ToLower(s.ID), term) || strings.Contains(strings.ToLower(s.Base), term) {
			out = append(out, s)
		}
	}
	return out
}
