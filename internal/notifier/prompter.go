package notifier

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Prompt is the acknowledgement request shown for one firing.
type Prompt struct {
	FiringID string    `json:"firingId"`
	Symbol   string    `json:"symbol"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	At       time.Time `json:"at"`
}

// Prompter shows an alert to the user and blocks until it is acknowledged
// or ctx ends.
type Prompter interface {
	Prompt(ctx context.Context, p Prompt) error
}

// LogPrompter logs the alert and acknowledges it after Delay. It serves
// headless runs with no UI attached.
type LogPrompter struct {
	Delay time.Duration
}

func (lp LogPrompter) Prompt(ctx context.Context, p Prompt) error {
	zap.L().Info(p.Title, zap.String("firing", p.FiringID), zap.String("body", p.Body))
	if lp.Delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(lp.Delay):
		return nil
	}
}
