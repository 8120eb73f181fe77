package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"CoinSentinel/internal/model"
)

// CoinGeckoFetcher implements Fetcher using the CoinGecko public API.
// It does not serve candles.
type CoinGeckoFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewCoinGeckoFetcher creates a fetcher with a bounded timeout and optional proxy.
func NewCoinGeckoFetcher(baseURL, apiKey string, timeout time.Duration, proxyURL string) *CoinGeckoFetcher {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	return &CoinGeckoFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  newHTTPClient(timeout, proxyURL),
	}
}

func (f *CoinGeckoFetcher) Name() string         { return "coingecko" }
func (f *CoinGeckoFetcher) Source() model.Source { return model.SourceAggregator }

func (f *CoinGeckoFetcher) header() http.Header {
	if f.APIKey == "" {
		return nil
	}
	return http.Header{"X-Cg-Demo-Api-Key": []string{f.APIKey}}
}

// cgMarket is one row of /coins/markets. Numeric fields are null for
// coins the aggregator has no data for.
type cgMarket struct {
	ID                                 string   `json:"id"`
	Symbol                             string   `json:"symbol"`
	CurrentPrice                       *float64 `json:"current_price"`
	PriceChangePercentage24hInCurrency *float64 `json:"price_change_percentage_24h_in_currency"`
	MarketCap                          *float64 `json:"market_cap"`
	FullyDilutedValuation              *float64 `json:"fully_diluted_valuation"`
	LastUpdated                        string   `json:"last_updated"`
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// FetchQuotes returns price, 24h change and market size for every id the
// aggregator knows. Coins without a current price are left out.
func (f *CoinGeckoFetcher) FetchQuotes(ctx context.Context, ids []string) (map[string]model.PriceSnapshot, error) {
	out := make(map[string]model.PriceSnapshot, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("ids", strings.Join(ids, ","))
	q.Set("price_change_percentage", "24h")
	q.Set("per_page", "250")

	var markets []cgMarket
	if err := getJSON(ctx, f.Client, f.BaseURL+"/coins/markets?"+q.Encode(), f.header(), &markets); err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	for _, m := range markets {
		if m.CurrentPrice == nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339, m.LastUpdated)
		if err != nil {
			ts = time.Now()
		}
		out[m.ID] = model.PriceSnapshot{
			Price:                 *m.CurrentPrice,
			ChangePct24h:          deref(m.PriceChangePercentage24hInCurrency),
			MarketCap:             deref(m.MarketCap),
			FullyDilutedValuation: deref(m.FullyDilutedValuation),
			Time:                  ts,
		}
	}
	return out, nil
}

// ListSymbols returns every coin id with its ticker symbol upper-cased.
func (f *CoinGeckoFetcher) ListSymbols(ctx context.Context) ([]model.Listing, error) {
	var coins []struct {
		ID     string `json:"id"`
		Symbol string `json:"symbol"`
	}
	if err := getJSON(ctx, f.Client, f.BaseURL+"/coins/list", f.header(), &coins); err != nil {
		return nil, fmt.Errorf("fetch coin list: %w", err)
	}
	out := make([]model.Listing, 0, len(coins))
	for _, c := range coins {
		out = append(out, model.Listing{ID: c.ID, Base: strings.ToUpper(c.Symbol)})
	}
	return out, nil
}
