package scheduler

import (
	"context"
	"errors"
	"time"

	"CoinSentinel/internal/collector"
	"CoinSentinel/internal/model"
	"CoinSentinel/internal/strategy"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errUnknownSymbol = errors.New("symbol not found on any source")

// RunCycle evaluates every monitored symbol once and returns one display
// row per symbol in document order. A failure on one symbol never affects
// the others.
func (s *Scheduler) RunCycle(ctx context.Context) []model.DisplayRow {
	start := time.Now()
	monitored := s.Store.Snapshot()

	if s.Collector.Universe().Len() == 0 {
		s.refreshUniverse()
	}
	universe := s.Collector.Universe()

	symbols := make([]model.Symbol, 0, len(monitored))
	for _, ms := range monitored {
		if sym, ok := universe.Resolve(ms.Symbol); ok {
			symbols = append(symbols, sym)
		}
	}
	data := s.Collector.Collect(ctx, symbols)

	rows := make([]model.DisplayRow, 0, len(monitored))
	unavailable := 0
	for _, ms := range monitored {
		row := s.evaluateSymbol(ms, data[ms.Symbol], start)
		if row.Price == 0 || row.Stale {
			unavailable++
		}
		if err := s.Recorder.RecordRow(&row); err != nil {
			zap.L().Warn("record row", zap.String("symbol", row.Symbol), zap.Error(err))
		}
		rows = append(rows, row)
	}

	s.mu.Lock()
	s.rows = rows
	s.lastCycle = time.Now()
	listeners := append([]RowListener{}, s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l.PublishRows(rows)
	}

	elapsed := time.Since(start)
	s.Metrics.CycleCompleted(elapsed, unavailable)
	zap.L().Info("cycle completed",
		zap.Int("symbols", len(rows)), zap.Int("unavailable", unavailable), zap.Duration("elapsed", elapsed))
	return rows
}

func (s *Scheduler) evaluateSymbol(ms model.MonitoredSymbol, md *collector.MarketData, now time.Time) model.DisplayRow {
	row := model.DisplayRow{Symbol: ms.Symbol, Display: ms.Symbol, UpdatedAt: now}
	if md == nil {
		row.Error = errUnknownSymbol.Error()
		return row
	}
	row.Display = md.Symbol.Display()
	row.Source = md.Symbol.Source
	row.MarketCap, row.FDV = md.MarketCap, md.FDV
	if md.FDV > 0 {
		row.MCapFDVRatio = md.MarketCap / md.FDV
	}

	quote := md.Quote
	switch {
	case quote != nil:
		row.Price, row.ChangePct24h = quote.Price, quote.ChangePct24h
	case md.Prior != nil:
		row.Price, row.ChangePct24h = md.Prior.Price, md.Prior.ChangePct24h
		row.Stale = true
		row.Error = md.QuoteErr.Error()
	default:
		row.Error = md.QuoteErr.Error()
	}

	var ind *model.IndicatorSnapshot
	if quote != nil && md.Candles != nil {
		ind = strategy.Analyze(quote.Price, md.Candles.Closes())
		row.Indicators = ind
	}

	for i := range ms.Alerts {
		rule := &ms.Alerts[i]
		cond, known := strategy.Condition(rule, quote, ind)
		if !known {
			continue
		}
		stored, fired := s.Store.Transition(rule.ID, rule.Revision, cond)
		if !fired {
			continue
		}
		s.fire(md.Symbol, row.Display, stored, quote.Price, now)
	}
	return row
}

func (s *Scheduler) fire(sym model.Symbol, display string, rule model.AlertRule, price float64, at time.Time) {
	f := &model.Firing{
		ID:      uuid.NewString(),
		Symbol:  sym.ID,
		Display: display,
		Rule:    rule,
		Price:   price,
		At:      at,
	}
	s.Metrics.AlertFired(string(rule.Kind))
	zap.L().Info("alert fired",
		zap.String("symbol", f.Symbol), zap.String("trigger", rule.Describe()), zap.Float64("price", price))

	if s.Dispatcher == nil {
		return
	}
	if err := s.Dispatcher.Dispatch(s.Ctx, f); err != nil {
		zap.L().Error("append alert history", zap.String("firing", f.ID), zap.Error(err))
	}
}
