package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"CoinSentinel/internal/collector"
	"CoinSentinel/internal/metrics"
	"CoinSentinel/internal/model"
	"CoinSentinel/internal/notifier"
	"CoinSentinel/internal/store"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	sched *Scheduler
	ex    *collector.MockCandleFetcher
	agg   *collector.MockFetcher
	rules *store.Manager
	hist  *store.History
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	ex := collector.NewMockExchange()
	agg := collector.NewMockFetcher(model.SourceAggregator)
	ex.SetListings(model.Listing{ID: "BTCUSDT", Base: "BTC"}, model.Listing{ID: "ETHUSDT", Base: "ETH"})
	agg.SetListings(model.Listing{ID: "bitcoin", Base: "BTC"}, model.Listing{ID: "pepe", Base: "PEPE"})
	col := collector.NewCollector(nil, ex, agg)

	rules := store.NewManager(filepath.Join(dir, "rules.json"))
	hist := store.OpenHistory(filepath.Join(dir, "history.json"))
	disp := &notifier.Dispatcher{History: hist, Prompter: notifier.LogPrompter{}}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := NewScheduler(ctx, col, rules, hist, disp, nil)
	s.Metrics = metrics.NewMetrics()
	return &fixture{sched: s, ex: ex, agg: agg, rules: rules, hist: hist}
}

func TestRunCycle_EdgeTriggeredPriceAlert(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.rules.AddSymbol("BTCUSDT"))
	_, err := f.rules.AddRule("BTCUSDT", model.AlertRule{Kind: model.KindPriceHigh, Price: 50000, Notes: "breakout"})
	require.NoError(t, err)

	for _, price := range []float64{49000, 51000, 51500, 49500, 50500} {
		f.ex.SetPrice("BTCUSDT", price, 0)
		f.sched.RunCycle(context.Background())
	}

	recs := f.hist.List()
	require.Len(t, recs, 2)
	assert.Equal(t, "BTCUSDT", recs[0].Symbol)
	assert.Equal(t, "HIGH @ $50,000.00", recs[0].Trigger)
	assert.Equal(t, "breakout", recs[0].Notes)
	assert.Equal(t, 5.0, testutil.ToFloat64(f.sched.Metrics.CyclesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.sched.Metrics.AlertsFired.WithLabelValues("high")))
}

func TestRunCycle_PartialFailure(t *testing.T) {
	f := newFixture(t)
	for _, sym := range []string{"BTCUSDT", "ETHUSDT", "NOPEUSDT"} {
		require.NoError(t, f.rules.AddSymbol(sym))
	}
	_, err := f.rules.AddRule("ETHUSDT", model.AlertRule{Kind: model.KindPriceLow, Price: 2000})
	require.NoError(t, err)
	_, err = f.rules.AddRule("BTCUSDT", model.AlertRule{Kind: model.KindPriceLow, Price: 60000})
	require.NoError(t, err)

	f.ex.SetPrice("BTCUSDT", 50000, 1.5)
	f.ex.SetPrice("ETHUSDT", 3000, 0)
	f.sched.RunCycle(context.Background())

	f.ex.SetDown("ETHUSDT", true)
	rows := f.sched.RunCycle(context.Background())
	require.Len(t, rows, 3)

	assert.Equal(t, "BTCUSDT", rows[0].Symbol)
	assert.Equal(t, 50000.0, rows[0].Price)
	assert.NotNil(t, rows[0].Indicators)
	assert.Empty(t, rows[0].Error)

	assert.Equal(t, "ETHUSDT", rows[1].Symbol)
	assert.True(t, rows[1].Stale)
	assert.Equal(t, 3000.0, rows[1].Price, "last good price is kept for display")
	assert.NotEmpty(t, rows[1].Error)
	assert.Nil(t, rows[1].Indicators)

	assert.Equal(t, "NOPEUSDT", rows[2].Symbol)
	assert.Equal(t, errUnknownSymbol.Error(), rows[2].Error)

	require.Len(t, f.hist.List(), 1, "only BTC fired; ETH stays armed while unavailable")
	assert.Equal(t, 2.0, testutil.ToFloat64(f.sched.Metrics.SymbolsUnavailable))
}

func TestRunCycle_UnavailableDataKeepsState(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.rules.AddSymbol("ETHUSDT"))
	_, err := f.rules.AddRule("ETHUSDT", model.AlertRule{Kind: model.KindPriceHigh, Price: 3000})
	require.NoError(t, err)

	f.ex.SetPrice("ETHUSDT", 3100, 0)
	f.sched.RunCycle(context.Background())
	f.ex.SetDown("ETHUSDT", true)
	f.sched.RunCycle(context.Background())
	f.ex.SetDown("ETHUSDT", false)
	f.sched.RunCycle(context.Background())

	assert.Len(t, f.hist.List(), 1, "an outage does not re-arm a fired rule")
}

func TestRunCycle_StatusRule(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.rules.AddSymbol("BTCUSDT"))
	_, err := f.rules.AddRule("BTCUSDT", model.AlertRule{Kind: model.KindStatusMatch, Value: "SOBRECOMPRADO (RSI >= 70)"})
	require.NoError(t, err)

	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	f.ex.SetCloses("BTCUSDT", closes)
	f.ex.SetPrice("BTCUSDT", closes[len(closes)-1], 2)

	rows := f.sched.RunCycle(context.Background())
	require.NotNil(t, rows[0].Indicators)
	assert.Equal(t, model.StatusOverbought, rows[0].Indicators.Status)
	assert.Equal(t, model.SignalSell, rows[0].Indicators.Signal)

	recs := f.hist.List()
	require.Len(t, recs, 1)
	assert.Equal(t, "Status: overbought", recs[0].Trigger)
}

func TestRunCycle_AggregatorSymbol(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.rules.AddSymbol("pepe"))
	_, err := f.rules.AddRule("pepe", model.AlertRule{Kind: model.KindStatusMatch, Value: model.StatusNeutral})
	require.NoError(t, err)
	f.agg.SetPrice("pepe", 0.00001, -3)

	rows := f.sched.RunCycle(context.Background())
	require.Len(t, rows, 1)
	assert.Equal(t, "PEPE (CG)", rows[0].Display)
	assert.Nil(t, rows[0].Indicators, "aggregator serves no candles")
	assert.Empty(t, f.hist.List(), "status rules need indicators")
}

type rowSink struct {
	mu   sync.Mutex
	got  [][]model.DisplayRow
	seen chan struct{}
}

func (r *rowSink) PublishRows(rows []model.DisplayRow) {
	r.mu.Lock()
	r.got = append(r.got, rows)
	r.mu.Unlock()
	select {
	case r.seen <- struct{}{}:
	default:
	}
}

func TestRunCycle_PublishesRowsAndAnswersStatus(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.rules.AddSymbol("BTCUSDT"))
	f.ex.SetPrice("BTCUSDT", 50000, 1)

	sink := &rowSink{seen: make(chan struct{}, 1)}
	f.sched.AddListener(sink)
	f.sched.RunCycle(context.Background())

	require.Len(t, sink.got, 1)
	assert.Equal(t, "BTCUSDT", sink.got[0][0].Symbol)
	assert.Contains(t, f.sched.HandleCommand("/status"), "$50,000.00")
	assert.Contains(t, f.sched.HandleCommand("/help"), "/sync")
	assert.Contains(t, f.sched.HandleCommand("/history@CoinSentinelBot"), "No alerts")
}

func TestReschedule(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sched.RegisterAll(""))
	assert.Equal(t, 300*time.Second, f.sched.Interval())

	err := f.sched.Reschedule(42)
	assert.True(t, errors.Is(err, store.ErrInvalidInterval))
	assert.Equal(t, 300*time.Second, f.sched.Interval())

	require.NoError(t, f.sched.Reschedule(60))
	assert.Equal(t, 60*time.Second, f.sched.Interval())
	assert.Len(t, f.sched.Cron.Entries(), 1, "old timer is replaced")
}

func TestTriggerNowCoalesces(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sched.RegisterAll(""))

	f.sched.TriggerNow()
	f.sched.TriggerNow()
	f.sched.TriggerNow()
	assert.Len(t, f.sched.runs, 1)
	assert.Len(t, f.sched.Cron.Entries(), 1)
}

func TestStartRunsImmediately(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.rules.AddSymbol("BTCUSDT"))
	f.ex.SetPrice("BTCUSDT", 50000, 1)

	ctx, cancel := context.WithCancel(context.Background())
	f.sched.Ctx = ctx
	sink := &rowSink{seen: make(chan struct{}, 1)}
	f.sched.AddListener(sink)
	require.NoError(t, f.sched.RegisterAll(DefaultUniverseCron))

	f.sched.Start()
	select {
	case <-sink.seen:
	case <-time.After(5 * time.Second):
		t.Fatal("no cycle after start")
	}
	assert.False(t, f.sched.LastCycle().IsZero())

	cancel()
	f.sched.Stop()
	<-f.sched.Done()
}
