package recorder

import "CoinSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordFiring(_ *model.Firing, _ string) error { return nil }
func (n *NoopRecorder) RecordRow(_ *model.DisplayRow) error          { return nil }
func (n *NoopRecorder) Close() error                                 { return nil }
