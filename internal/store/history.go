package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"CoinSentinel/internal/model"

	"go.uber.org/zap"
)

// History is the append-only log of fired alerts, stored oldest-first as a
// JSON array.
type History struct {
	mu       sync.Mutex
	records  []model.HistoryRecord
	filePath string
	// blocked is set when the file on disk could not be read or moved
	// aside; writes are refused so it is never overwritten.
	blocked error
}

// OpenHistory loads the history file. A missing file starts an empty
// history. A malformed file is renamed to <path>.corrupt-<unix> and a new
// history is started; if it cannot be moved, writes are refused.
func OpenHistory(filePath string) *History {
	h := &History{filePath: filePath}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Error("read history failed, writes disabled", zap.String("path", filePath), zap.Error(err))
			h.blocked = err
		}
		return h
	}
	if err := json.Unmarshal(data, &h.records); err != nil {
		perr := &model.ConfigParseError{Path: filePath, Err: err}
		h.records = nil
		aside := fmt.Sprintf("%s.corrupt-%d", filePath, time.Now().Unix())
		if rerr := os.Rename(filePath, aside); rerr != nil {
			zap.L().Error("history file malformed and could not be moved, writes disabled",
				zap.String("path", filePath), zap.Error(perr), zap.NamedError("rename", rerr))
			h.blocked = perr
			return h
		}
		zap.L().Warn("history file malformed, moved aside", zap.String("path", filePath), zap.String("movedTo", aside), zap.Error(perr))
	}
	return h
}

// Append adds rec after every existing record and persists the log. The
// record stays in memory when the write fails.
func (h *History) Append(rec model.HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, rec)
	if h.blocked != nil {
		return &model.PersistenceError{Path: h.filePath, Err: h.blocked}
	}
	data, err := json.MarshalIndent(h.records, "", "  ")
	if err == nil {
		err = writeFileAtomic(h.filePath, data)
	}
	if err != nil {
		return &model.PersistenceError{Path: h.filePath, Err: err}
	}
	return nil
}

// List returns the records newest-first.
func (h *History) List() []model.HistoryRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]model.HistoryRecord, len(h.records))
	for i, r := range h.records {
		out[len(h.records)-1-i] = r
	}
	return out
}

// Len returns the number of records.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}
