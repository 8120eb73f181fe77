package recorder

import "CoinSentinel/internal/model"

// Recorder archives firings and per-cycle rows for later analysis. It is
// an analytics sink; the JSON history file stays the record of truth.
type Recorder interface {
	RecordFiring(f *model.Firing, trigger string) error
	RecordRow(row *model.DisplayRow) error
	Close() error
}
