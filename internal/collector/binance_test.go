package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBinanceServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/ticker/24hr", func(w http.ResponseWriter, r *http.Request) {
		if list := r.URL.Query().Get("symbols"); list != "" {
			if strings.Contains(list, "BADUSDT") {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
				return
			}
			w.Write([]byte(`[{"symbol":"BTCUSDT","lastPrice":"50123.45000000","priceChangePercent":"-1.250","closeTime":1700000000000},
				{"symbol":"ETHUSDT","lastPrice":"3000.10","priceChangePercent":"2.5","closeTime":1700000000000}]`))
			return
		}
		switch r.URL.Query().Get("symbol") {
		case "BTCUSDT":
			w.Write([]byte(`{"symbol":"BTCUSDT","lastPrice":"50123.45","priceChangePercent":"-1.25","closeTime":1700000000000}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/api/v3/klines", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		w.Write([]byte(`[
			[1700172800000,"2","3","1","2.5","10",1700259199999,"0",1,"0","0","0"],
			[1700000000000,"1","2","0.5","1.5","10",1700086399999,"0",1,"0","0","0"],
			[1700086400000,"1.5","2.5","1","2","10",1700172799999,"0",1,"0","0","0"]
		]`))
	})
	mux.HandleFunc("/api/v3/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols":[
			{"symbol":"ETHUSDT","status":"TRADING","baseAsset":"ETH","quoteAsset":"USDT"},
			{"symbol":"ETHBTC","status":"TRADING","baseAsset":"ETH","quoteAsset":"BTC"},
			{"symbol":"LUNAUSDT","status":"BREAK","baseAsset":"LUNA","quoteAsset":"USDT"},
			{"symbol":"BTCUSDT","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT"}
		]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBinanceFetcher_FetchQuotes(t *testing.T) {
	srv := newBinanceServer(t)
	f := NewBinanceFetcher(srv.URL, time.Second, "")

	quotes, err := f.FetchQuotes(context.Background(), []string{"BTCUSDT", "ETHUSDT"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.InDelta(t, 50123.45, quotes["BTCUSDT"].Price, 1e-9)
	assert.InDelta(t, -1.25, quotes["BTCUSDT"].ChangePct24h, 1e-9)
	assert.Equal(t, int64(1700000000000), quotes["ETHUSDT"].Time.UnixMilli())
}

func TestBinanceFetcher_FetchQuotesPartialFailure(t *testing.T) {
	srv := newBinanceServer(t)
	f := NewBinanceFetcher(srv.URL, time.Second, "")

	quotes, err := f.FetchQuotes(context.Background(), []string{"BTCUSDT", "BADUSDT"})
	require.NoError(t, err)
	assert.Contains(t, quotes, "BTCUSDT")
	assert.NotContains(t, quotes, "BADUSDT")

	_, err = f.FetchQuotes(context.Background(), []string{"BADUSDT"})
	assert.Error(t, err)
}

func TestBinanceFetcher_FetchCandles(t *testing.T) {
	srv := newBinanceServer(t)
	f := NewBinanceFetcher(srv.URL, time.Second, "")

	series, err := f.FetchCandles(context.Background(), "BTCUSDT", "1d", 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2, 2.5}, series.Closes(), "bars are sorted oldest first")
}

func TestBinanceFetcher_ListSymbols(t *testing.T) {
	srv := newBinanceServer(t)
	f := NewBinanceFetcher(srv.URL, time.Second, "")

	listings, err := f.ListSymbols(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "BTCUSDT", listings[0].ID)
	assert.Equal(t, "BTC", listings[0].Base)
	assert.Equal(t, "ETHUSDT", listings[1].ID)
}

func TestBinanceFetcher_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	f := NewBinanceFetcher(srv.URL, 50*time.Millisecond, "")
	_, err := f.FetchQuotes(context.Background(), []string{"BTCUSDT"})
	assert.Error(t, err)
}
