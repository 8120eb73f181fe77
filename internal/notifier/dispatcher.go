package notifier

import (
	"context"
	"sync"

	"CoinSentinel/internal/metrics"
	"CoinSentinel/internal/model"
	"CoinSentinel/internal/recorder"
	"CoinSentinel/internal/sound"

	"go.uber.org/zap"
)

// Pusher delivers chat messages to an external channel.
type Pusher interface {
	Enabled() bool
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// HistoryLog receives one record per firing.
type HistoryLog interface {
	Append(rec model.HistoryRecord) error
}

// Dispatcher fans a firing out to sound, prompt, chat push and history.
// Every field except History is optional.
type Dispatcher struct {
	Pusher   Pusher
	Prompter Prompter
	Sounds   *sound.Looper
	History  HistoryLog
	Recorder recorder.Recorder
	Metrics  *metrics.Metrics
	Retries  int

	wg sync.WaitGroup
}

// Dispatch starts the sound loop and the prompt, queues the chat push and
// appends the history record. Only the history write is synchronous; its
// error is returned. ctx bounds the background prompt and push.
func (d *Dispatcher) Dispatch(ctx context.Context, f *model.Firing) error {
	msg := FormatAlert(f)

	stop := func() {}
	if d.Sounds != nil && f.Rule.Sound != "" {
		stop, _ = d.Sounds.Start(f.Rule.Sound, f.ID)
	}

	if d.Prompter != nil {
		p := Prompt{FiringID: f.ID, Symbol: f.Symbol, Title: msg.Title, Body: msg.Body, At: f.At}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer stop()
			if err := d.Prompter.Prompt(ctx, p); err != nil {
				zap.L().Debug("prompt ended without acknowledgement", zap.String("firing", f.ID), zap.Error(err))
			}
		}()
	} else {
		stop()
	}

	if d.Pusher != nil && d.Pusher.Enabled() {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.Pusher.SendWithRetry(ctx, msg.Chat, d.Retries); err != nil {
				derr := &model.DeliveryError{Channel: "telegram", Err: err}
				zap.L().Error("alert push failed", zap.String("symbol", f.Symbol), zap.Error(derr))
				d.Metrics.DeliveryFailed(derr.Channel)
			}
		}()
	}

	if d.Recorder != nil {
		if err := d.Recorder.RecordFiring(f, msg.Trigger); err != nil {
			zap.L().Error("record firing", zap.String("firing", f.ID), zap.Error(err))
		}
	}

	if d.History == nil {
		return nil
	}
	return d.History.Append(model.NewHistoryRecord(f.At, f.Display, msg.Trigger, f.Rule.Notes))
}

// Wait blocks until every prompt and push started so far has finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Shutdown stops every sound loop. Prompts and pushes end with their ctx.
func (d *Dispatcher) Shutdown() {
	if d.Sounds != nil {
		d.Sounds.StopAll()
	}
}
