package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"CoinSentinel/internal/metrics"
	"CoinSentinel/internal/model"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MarketData is what one cycle collected for a symbol. A nil Quote or
// Candles marks that part unavailable; the cause is in QuoteErr or CandleErr
// and wraps model.ErrDataUnavailable. Prior holds the last good quote when
// the fresh one is missing.
type MarketData struct {
	Symbol    model.Symbol
	Quote     *model.PriceSnapshot
	Prior     *model.PriceSnapshot
	Candles   *model.CandleSeries
	MarketCap float64
	FDV       float64
	QuoteErr  error
	CandleErr error
}

// Collector fans requests out to one Fetcher per source and owns the
// symbol universe.
type Collector struct {
	Cache          *QuoteCache
	Metrics        *metrics.Metrics
	CandleInterval string
	CandleLimit    int
	Concurrency    int

	fetchers map[model.Source]Fetcher

	mu       sync.RWMutex
	universe *Universe
	listings map[model.Source][]model.Listing
}

// NewCollector creates a Collector. A nil cache keeps prior quotes in memory.
func NewCollector(cache *QuoteCache, fetchers ...Fetcher) *Collector {
	if cache == nil {
		cache = NewQuoteCache(nil)
	}
	c := &Collector{
		Cache:          cache,
		CandleInterval: "1d",
		CandleLimit:    300,
		Concurrency:    4,
		fetchers:       make(map[model.Source]Fetcher),
		listings:       make(map[model.Source][]model.Listing),
	}
	for _, f := range fetchers {
		c.fetchers[f.Source()] = f
	}
	return c
}

// Universe returns the current symbol universe; nil before the first refresh.
func (c *Collector) Universe() *Universe {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.universe
}

// RefreshUniverse reloads every source's symbol list and swaps in a new
// Universe. A source that fails keeps its previous list.
func (c *Collector) RefreshUniverse(ctx context.Context) error {
	var errs []error
	for src, f := range c.fetchers {
		listings, err := f.ListSymbols(ctx)
		if err != nil {
			c.Metrics.FetchFailed(string(src))
			errs = append(errs, fmt.Errorf("%s symbols: %w", f.Name(), err))
			continue
		}
		c.mu.Lock()
		c.listings[src] = listings
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.universe = NewUniverse(c.listings[model.SourceExchange], c.listings[model.SourceAggregator])
	size := c.universe.Len()
	c.mu.Unlock()

	zap.L().Info("symbol universe refreshed", zap.Int("symbols", size), zap.Int("failedSources", len(errs)))
	return errors.Join(errs...)
}

// Collect fetches quotes for every symbol and candles for the symbols whose
// source serves them. Failures are logged and recorded per symbol; Collect
// itself never fails.
func (c *Collector) Collect(ctx context.Context, symbols []model.Symbol) map[string]*MarketData {
	out := make(map[string]*MarketData, len(symbols))
	ids := make(map[model.Source][]string)
	seen := make(map[string]bool)
	add := func(src model.Source, id string) {
		key := string(src) + "/" + id
		if !seen[key] {
			seen[key] = true
			ids[src] = append(ids[src], id)
		}
	}
	for _, s := range symbols {
		out[s.ID] = &MarketData{Symbol: s}
		add(s.Source, s.ID)
		// exchange pairs take market size from the aggregator
		if s.Source == model.SourceExchange && s.CrossRef != "" {
			add(model.SourceAggregator, s.CrossRef)
		}
	}

	quotes, quoteErrs := c.fetchQuotes(ctx, ids)

	for _, s := range symbols {
		md := out[s.ID]
		if q, ok := quotes[s.Source][s.ID]; ok {
			md.Quote = &q
			md.MarketCap, md.FDV = q.MarketCap, q.FullyDilutedValuation
			c.Cache.Put(ctx, s.ID, q)
		} else {
			cause := quoteErrs[s.Source]
			if cause == nil {
				if _, ok := c.fetchers[s.Source]; !ok {
					cause = fmt.Errorf("no fetcher for source %q", s.Source)
				} else {
					cause = errors.New("not returned by provider")
				}
			}
			md.QuoteErr = fmt.Errorf("%w: quote %s: %v", model.ErrDataUnavailable, s.ID, cause)
			if prior, ok := c.Cache.Get(ctx, s.ID); ok {
				md.Prior = &prior
			}
			zap.L().Warn("quote unavailable", zap.String("symbol", s.ID), zap.Error(cause))
		}
		if s.Source == model.SourceExchange && s.CrossRef != "" {
			if aq, ok := quotes[model.SourceAggregator][s.CrossRef]; ok {
				md.MarketCap, md.FDV = aq.MarketCap, aq.FullyDilutedValuation
			}
		}
	}

	c.fetchCandles(ctx, symbols, out)
	return out
}

func (c *Collector) fetchQuotes(ctx context.Context, ids map[model.Source][]string) (map[model.Source]map[string]model.PriceSnapshot, map[model.Source]error) {
	quotes := make(map[model.Source]map[string]model.PriceSnapshot)
	errs := make(map[model.Source]error)
	var mu sync.Mutex
	var g errgroup.Group

	for src, list := range ids {
		f, ok := c.fetchers[src]
		if !ok {
			continue
		}
		src, list := src, list
		g.Go(func() error {
			q, err := f.FetchQuotes(ctx, list)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				zap.L().Warn("fetch quotes failed", zap.String("source", f.Name()), zap.Int("symbols", len(list)), zap.Error(err))
				c.Metrics.FetchFailed(string(src))
				errs[src] = err
				return nil
			}
			quotes[src] = q
			return nil
		})
	}
	_ = g.Wait()
	return quotes, errs
}

// fetchCandles runs at most Concurrency candle requests at once. Symbols
// without a fresh quote are skipped.
func (c *Collector) fetchCandles(ctx context.Context, symbols []model.Symbol, out map[string]*MarketData) {
	var g errgroup.Group
	if c.Concurrency > 0 {
		g.SetLimit(c.Concurrency)
	}
	for _, s := range symbols {
		md := out[s.ID]
		if md.Quote == nil {
			continue
		}
		cf, ok := c.fetchers[s.Source].(CandleFetcher)
		if !ok {
			continue
		}
		id, src := s.ID, s.Source
		g.Go(func() error {
			series, err := cf.FetchCandles(ctx, id, c.CandleInterval, c.CandleLimit)
			if err != nil {
				zap.L().Warn("fetch candles failed", zap.String("symbol", id), zap.Error(err))
				c.Metrics.FetchFailed(string(src))
				md.CandleErr = fmt.Errorf("%w: candles %s: %v", model.ErrDataUnavailable, id, err)
				return nil
			}
			md.Candles = &series
			return nil
		})
	}
	_ = g.Wait()
}
