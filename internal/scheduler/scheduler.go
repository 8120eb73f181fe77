package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"CoinSentinel/internal/collector"
	"CoinSentinel/internal/metrics"
	"CoinSentinel/internal/model"
	"CoinSentinel/internal/notifier"
	"CoinSentinel/internal/recorder"
	"CoinSentinel/internal/store"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultUniverseCron refreshes the symbol universe every six hours.
const DefaultUniverseCron = "0 0 */6 * * *"

// RowListener receives the display rows of every completed cycle.
type RowListener interface {
	PublishRows(rows []model.DisplayRow)
}

// Scheduler drives evaluation cycles. Cron only signals that a cycle is
// due; a single owner goroutine runs them, so cycles never overlap.
type Scheduler struct {
	Cron       *cron.Cron
	Collector  *collector.Collector
	Store      *store.Manager
	History    *store.History
	Dispatcher *notifier.Dispatcher
	Recorder   recorder.Recorder
	Metrics    *metrics.Metrics
	Ctx        context.Context

	CycleTimeout time.Duration

	runs chan struct{}
	done chan struct{}

	mu        sync.Mutex
	cycleID   cron.EntryID
	interval  time.Duration
	rows      []model.DisplayRow
	lastCycle time.Time
	listeners []RowListener
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, st *store.Manager, hist *store.History, disp *notifier.Dispatcher, rec recorder.Recorder) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	logger := cronLogger{}
	return &Scheduler{
		Cron:         cron.New(cron.WithSeconds(), cron.WithLogger(logger), cron.WithChain(cron.Recover(logger))),
		Collector:    col,
		Store:        st,
		History:      hist,
		Dispatcher:   disp,
		Recorder:     rec,
		Ctx:          ctx,
		CycleTimeout: 2 * time.Minute,
		runs:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
}

// AddListener registers l for display rows.
func (s *Scheduler) AddListener(l RowListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// RegisterAll registers the evaluation cycle at the stored interval and the
// universe refresh.
func (s *Scheduler) RegisterAll(universeCron string) error {
	if err := s.Reschedule(s.Store.Interval()); err != nil {
		return fmt.Errorf("register cycle: %w", err)
	}
	if universeCron == "" {
		return nil
	}
	if _, err := s.Cron.AddFunc(universeCron, s.refreshUniverse); err != nil {
		return fmt.Errorf("register universe refresh: %w", err)
	}
	return nil
}

// Start starts cron and the cycle owner, and queues an immediate cycle.
func (s *Scheduler) Start() {
	go s.loop()
	s.Cron.Start()
	s.enqueue()
	zap.L().Info("scheduler started", zap.Duration("interval", s.Interval()))
}

// Stop stops cron and waits for a running cycle to finish. The owner
// goroutine exits when Ctx is cancelled.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	zap.L().Info("scheduler stopped")
}

// Done is closed when the owner goroutine has exited.
func (s *Scheduler) Done() <-chan struct{} { return s.done }

// Interval returns the current cycle interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Reschedule replaces the cycle timer. The next tick is one full interval
// from now.
func (s *Scheduler) Reschedule(sec int) error {
	if !store.ValidInterval(sec) {
		return fmt.Errorf("%w: %d", store.ErrInvalidInterval, sec)
	}
	d := time.Duration(sec) * time.Second

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cycleID != 0 {
		s.Cron.Remove(s.cycleID)
	}
	s.cycleID = s.Cron.Schedule(cron.Every(d), cron.FuncJob(s.enqueue))
	s.interval = d
	return nil
}

// TriggerNow cancels the pending tick and queues a cycle. Requests made
// while a cycle is already queued collapse into it.
func (s *Scheduler) TriggerNow() {
	s.mu.Lock()
	sec := int(s.interval / time.Second)
	s.mu.Unlock()
	if sec > 0 {
		if err := s.Reschedule(sec); err != nil {
			zap.L().Error("reset cycle timer", zap.Error(err))
		}
	}
	s.enqueue()
}

func (s *Scheduler) enqueue() {
	select {
	case s.runs <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.Ctx.Done():
			return
		case <-s.runs:
			s.safeCycle()
		}
	}
}

func (s *Scheduler) safeCycle() {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("cycle panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	ctx, cancel := context.WithTimeout(s.Ctx, s.CycleTimeout)
	defer cancel()
	s.RunCycle(ctx)
}

func (s *Scheduler) refreshUniverse() {
	if err := s.Collector.RefreshUniverse(s.Ctx); err != nil {
		zap.L().Warn("universe refresh incomplete", zap.Error(err))
	}
}

// Rows returns the display rows of the last completed cycle.
func (s *Scheduler) Rows() []model.DisplayRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.DisplayRow{}, s.rows...)
}

// LastCycle returns when the last cycle completed.
func (s *Scheduler) LastCycle() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCycle
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(strings.ToLower(command))
	if len(fields) == 0 {
		return ""
	}
	// commands may arrive as /status@BotName in groups
	cmd, _, _ := strings.Cut(fields[0], "@")
	switch cmd {
	case "/sync":
		s.TriggerNow()
		return "🔄 Sync requested."
	case "/status":
		return notifier.FormatRows(s.Rows(), time.Now())
	case "/history":
		if s.History == nil {
			return notifier.FormatHistory(nil, 0)
		}
		return notifier.FormatHistory(s.History.List(), 10)
	default:
		return "Available commands:\n• /sync - check prices now\n• /status - last prices and indicators\n• /history - recent alerts"
	}
}
