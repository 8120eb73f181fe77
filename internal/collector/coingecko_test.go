package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoinGeckoFetcher_FetchQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "bitcoin,ghost", r.URL.Query().Get("ids"))
		assert.Equal(t, "key", r.Header.Get("X-Cg-Demo-Api-Key"))
		w.Write([]byte(`[
			{"id":"bitcoin","symbol":"btc","current_price":50000,"price_change_percentage_24h_in_currency":1.5,
			 "market_cap":980000000000,"fully_diluted_valuation":1050000000000,"last_updated":"2024-01-01T00:00:00.000Z"},
			{"id":"ghost","symbol":"gst","current_price":null,"price_change_percentage_24h_in_currency":null,
			 "market_cap":null,"fully_diluted_valuation":null,"last_updated":null}
		]`))
	}))
	defer srv.Close()

	f := NewCoinGeckoFetcher(srv.URL, "key", time.Second, "")
	quotes, err := f.FetchQuotes(context.Background(), []string{"bitcoin", "ghost"})
	require.NoError(t, err)
	require.Len(t, quotes, 1, "coins without a price are unavailable")

	btc := quotes["bitcoin"]
	assert.Equal(t, 50000.0, btc.Price)
	assert.Equal(t, 1.5, btc.ChangePct24h)
	assert.Equal(t, 980000000000.0, btc.MarketCap)
	assert.Equal(t, 1050000000000.0, btc.FullyDilutedValuation)
	assert.Equal(t, 2024, btc.Time.Year())
}

func TestCoinGeckoFetcher_ListSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"bitcoin","symbol":"btc","name":"Bitcoin"},{"id":"ethereum","symbol":"eth","name":"Ethereum"}]`))
	}))
	defer srv.Close()

	f := NewCoinGeckoFetcher(srv.URL, "", time.Second, "")
	listings, err := f.ListSymbols(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "BTC", listings[0].Base)
}

func TestCoinGeckoFetcher_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewCoinGeckoFetcher(srv.URL, "", time.Second, "")
	_, err := f.FetchQuotes(context.Background(), []string{"bitcoin"})
	assert.ErrorContains(t, err, "status 429")
}
