package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"CoinSentinel/internal/model"

	"github.com/google/uuid"
)

// DefaultInterval is the check interval in seconds used when the document
// has none or an unsupported one.
const DefaultInterval = 300

// AllowedIntervals lists the supported check intervals in seconds.
var AllowedIntervals = []int{60, 300, 900, 1800, 3600}

// ValidInterval reports whether sec is one of AllowedIntervals.
func ValidInterval(sec int) bool {
	for _, v := range AllowedIntervals {
		if v == sec {
			return true
		}
	}
	return false
}

// Document is the persisted rules document.
type Document struct {
	TelegramBotToken     string                  `json:"telegramBotToken"`
	TelegramChatID       string                  `json:"telegramChatId"`
	CheckIntervalSeconds int                     `json:"checkIntervalSeconds"`
	CryptosToMonitor     []model.MonitoredSymbol `json:"cryptosToMonitor"`
}

// DefaultDocument returns an empty document with placeholder credentials.
func DefaultDocument() *Document {
	return &Document{
		TelegramBotToken:     "YOUR_BOT_TOKEN",
		TelegramChatID:       "YOUR_CHAT_ID",
		CheckIntervalSeconds: DefaultInterval,
		CryptosToMonitor:     []model.MonitoredSymbol{},
	}
}

// LoadDocument reads and normalizes the rules document. Read errors are
// returned as is so callers can test os.IsNotExist; malformed JSON is a
// *model.ConfigParseError.
func LoadDocument(filePath string) (*Document, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &model.ConfigParseError{Path: filePath, Err: err}
	}
	doc.normalize()
	return &doc, nil
}

// SaveDocument writes the document through a temp file and rename.
func SaveDocument(filePath string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filePath, data)
}

func writeFileAtomic(filePath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}

// normalize merges duplicate symbols, assigns missing or repeated rule ids, maps legacy
// status labels and arms every rule.
func (d *Document) normalize() {
	if !ValidInterval(d.CheckIntervalSeconds) {
		d.CheckIntervalSeconds = DefaultInterval
	}

	merged := make([]model.MonitoredSymbol, 0, len(d.CryptosToMonitor))
	index := make(map[string]int)
	seen := make(map[string]bool)
	for _, ms := range d.CryptosToMonitor {
		sym := strings.TrimSpace(ms.Symbol)
		if sym == "" {
			continue
		}
		i, ok := index[sym]
		if !ok {
			i = len(merged)
			index[sym] = i
			merged = append(merged, model.MonitoredSymbol{Symbol: sym, Alerts: []model.AlertRule{}})
		}
		for _, r := range ms.Alerts {
			if r.ID == "" || seen[r.ID] {
				r.ID = uuid.NewString()
			}
			seen[r.ID] = true
			if r.Kind == model.KindStatusMatch {
				r.Value = model.NormalizeStatus(r.Value)
			}
			r.Armed = true
			r.Revision = 1
			merged[i].Alerts = append(merged[i].Alerts, r)
		}
	}
	d.CryptosToMonitor = merged
}
