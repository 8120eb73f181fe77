package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"CoinSentinel/internal/model"
)

// DefaultTimeout bounds every provider request.
const DefaultTimeout = 10 * time.Second

// Fetcher serves quotes and the symbol list of one provider family.
type Fetcher interface {
	Name() string
	Source() model.Source
	FetchQuotes(ctx context.Context, ids []string) (map[string]model.PriceSnapshot, error)
	ListSymbols(ctx context.Context) ([]model.Listing, error)
}

// CandleFetcher is implemented by fetchers that also serve candle series.
type CandleFetcher interface {
	FetchCandles(ctx context.Context, id, interval string, limit int) (model.CandleSeries, error)
}

// newHTTPClient creates a client with a bounded timeout and optional proxy.
func newHTTPClient(timeout time.Duration, proxyURL string) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// getJSON issues a GET and decodes a 200 response body into out.
func getJSON(ctx context.Context, client *http.Client, endpoint string, header http.Header, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
