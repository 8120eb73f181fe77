package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"CoinSentinel/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BinanceFetcher implements Fetcher and CandleFetcher using the Binance
// spot REST API.
type BinanceFetcher struct {
	BaseURL    string
	QuoteAsset string
	Client     *http.Client
}

// NewBinanceFetcher creates a fetcher with a bounded timeout and optional proxy.
func NewBinanceFetcher(baseURL string, timeout time.Duration, proxyURL string) *BinanceFetcher {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &BinanceFetcher{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		QuoteAsset: "USDT",
		Client:     newHTTPClient(timeout, proxyURL),
	}
}

func (f *BinanceFetcher) Name() string         { return "binance" }
func (f *BinanceFetcher) Source() model.Source { return model.SourceExchange }

// binanceTicker is the subset of /api/v3/ticker/24hr used here.
// Prices arrive as decimal strings.
type binanceTicker struct {
	Symbol             string          `json:"symbol"`
	LastPrice          decimal.Decimal `json:"lastPrice"`
	PriceChangePercent decimal.Decimal `json:"priceChangePercent"`
	CloseTime          int64           `json:"closeTime"`
}

func (t binanceTicker) snapshot() model.PriceSnapshot {
	ts := time.Now()
	if t.CloseTime > 0 {
		ts = time.UnixMilli(t.CloseTime)
	}
	return model.PriceSnapshot{
		Price:        t.LastPrice.InexactFloat64(),
		ChangePct24h: t.PriceChangePercent.InexactFloat64(),
		Time:         ts,
	}
}

// FetchQuotes requests all ids in one call. Binance rejects the whole batch
// when one symbol is unknown, so a failed batch is retried per symbol and
// only the symbols that still fail are missing from the result.
func (f *BinanceFetcher) FetchQuotes(ctx context.Context, ids []string) (map[string]model.PriceSnapshot, error) {
	out := make(map[string]model.PriceSnapshot, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	list, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("marshal symbols: %w", err)
	}
	var tickers []binanceTicker
	endpoint := fmt.Sprintf("%s/api/v3/ticker/24hr?symbols=%s", f.BaseURL, url.QueryEscape(string(list)))
	batchErr := getJSON(ctx, f.Client, endpoint, nil, &tickers)
	if batchErr == nil {
		for _, t := range tickers {
			out[t.Symbol] = t.snapshot()
		}
		return out, nil
	}
	if len(ids) == 1 {
		return nil, fmt.Errorf("fetch ticker %s: %w", ids[0], batchErr)
	}

	zap.L().Warn("binance batch ticker failed, retrying per symbol", zap.Int("symbols", len(ids)), zap.Error(batchErr))
	for _, id := range ids {
		var t binanceTicker
		endpoint := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", f.BaseURL, url.QueryEscape(id))
		if err := getJSON(ctx, f.Client, endpoint, nil, &t); err != nil {
			zap.L().Warn("binance ticker failed", zap.String("symbol", id), zap.Error(err))
			continue
		}
		out[id] = t.snapshot()
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("fetch tickers: %w", batchErr)
	}
	return out, nil
}

// FetchCandles returns kline bars oldest-first. Each kline row is
// [openTime, open, high, low, close, volume, closeTime, ...] with prices as
// decimal strings.
func (f *BinanceFetcher) FetchCandles(ctx context.Context, id, interval string, limit int) (model.CandleSeries, error) {
	series := model.CandleSeries{Symbol: id, Interval: interval}
	endpoint := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d",
		f.BaseURL, url.QueryEscape(id), url.QueryEscape(interval), limit)

	var rows [][]interface{}
	if err := getJSON(ctx, f.Client, endpoint, nil, &rows); err != nil {
		return series, fmt.Errorf("fetch klines %s: %w", id, err)
	}

	bars := make([]model.OHLCV, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			return series, fmt.Errorf("fetch klines %s: short row of %d fields", id, len(row))
		}
		closePrice, err := toFloat(row[4])
		if err != nil {
			return series, fmt.Errorf("fetch klines %s: close: %w", id, err)
		}
		openTime, _ := toFloat(row[0])
		open, _ := toFloat(row[1])
		high, _ := toFloat(row[2])
		low, _ := toFloat(row[3])
		volume, _ := toFloat(row[5])
		bars = append(bars, model.OHLCV{
			Time:   time.UnixMilli(int64(openTime)),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	series.Bars = bars
	return series, nil
}

// ListSymbols returns the trading pairs quoted in QuoteAsset.
func (f *BinanceFetcher) ListSymbols(ctx context.Context) ([]model.Listing, error) {
	var info struct {
		Symbols []struct {
			Symbol     string `json:"symbol"`
			Status     string `json:"status"`
			BaseAsset  string `json:"baseAsset"`
			QuoteAsset string `json:"quoteAsset"`
		} `json:"symbols"`
	}
	if err := getJSON(ctx, f.Client, f.BaseURL+"/api/v3/exchangeInfo", nil, &info); err != nil {
		return nil, fmt.Errorf("fetch exchange info: %w", err)
	}

	var out []model.Listing
	for _, s := range info.Symbols {
		if s.QuoteAsset != f.QuoteAsset || (s.Status != "" && s.Status != "TRADING") {
			continue
		}
		out = append(out, model.Listing{ID: s.Symbol, Base: s.BaseAsset})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// toFloat converts a JSON number or decimal string.
func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return 0, err
		}
		return d.InexactFloat64(), nil
	case nil:
		return 0, fmt.Errorf("null value")
	}
	return 0, fmt.Errorf("unexpected type %T", v)
}
