package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"CoinSentinel/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSymbolNotFound  = errors.New("symbol not monitored")
	ErrDuplicateSymbol = errors.New("symbol already monitored")
	ErrInvalidSymbol   = errors.New("invalid symbol")
	ErrRuleNotFound    = errors.New("rule not found")
	ErrInvalidRule     = errors.New("invalid rule")
	ErrInvalidInterval = errors.New("unsupported check interval")
)

// Manager owns the monitored symbols and their rules. A single mutex guards
// every read-modify-write, including the engine's armed transitions.
type Manager struct {
	mu       sync.Mutex
	doc      *Document
	filePath string
}

// NewManager loads the rules document. A missing file is created with the
// default document; an unreadable or malformed file falls back to the
// default document in memory and is left untouched until the next save.
func NewManager(filePath string) *Manager {
	doc, err := LoadDocument(filePath)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		doc = DefaultDocument()
		if err := SaveDocument(filePath, doc); err != nil {
			zap.L().Error("failed to write default rules document", zap.String("path", filePath), zap.Error(err))
		}
	default:
		zap.L().Warn("rules document unusable, using defaults", zap.String("path", filePath), zap.Error(err))
		doc = DefaultDocument()
	}
	return &Manager{doc: doc, filePath: filePath}
}

// Path returns the rules document path.
func (m *Manager) Path() string { return m.filePath }

// Snapshot returns a deep copy of the monitored symbols and their rules.
func (m *Manager) Snapshot() []model.MonitoredSymbol {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.MonitoredSymbol, len(m.doc.CryptosToMonitor))
	for i, ms := range m.doc.CryptosToMonitor {
		out[i] = model.MonitoredSymbol{Symbol: ms.Symbol, Alerts: append([]model.AlertRule{}, ms.Alerts...)}
	}
	return out
}

// Symbols returns the monitored symbol ids in document order.
func (m *Manager) Symbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.doc.CryptosToMonitor))
	for i, ms := range m.doc.CryptosToMonitor {
		out[i] = ms.Symbol
	}
	return out
}

// Rules returns a copy of the rules of symbol.
func (m *Manager) Rules(symbol string) ([]model.AlertRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(symbol)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	return append([]model.AlertRule{}, m.doc.CryptosToMonitor[i].Alerts...), nil
}

// AddSymbol starts monitoring symbol with no rules.
func (m *Manager) AddSymbol(symbol string) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return ErrInvalidSymbol
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOf(symbol) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateSymbol, symbol)
	}
	m.doc.CryptosToMonitor = append(m.doc.CryptosToMonitor, model.MonitoredSymbol{Symbol: symbol, Alerts: []model.AlertRule{}})
	return m.save()
}

// RemoveSymbol stops monitoring symbol and discards its rules.
func (m *Manager) RemoveSymbol(symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(symbol)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	m.doc.CryptosToMonitor = append(m.doc.CryptosToMonitor[:i], m.doc.CryptosToMonitor[i+1:]...)
	return m.save()
}

// AddRule validates rule, assigns it a new id and appends it to symbol.
// The returned rule is the stored copy.
func (m *Manager) AddRule(symbol string, rule model.AlertRule) (model.AlertRule, error) {
	if err := prepare(&rule); err != nil {
		return model.AlertRule{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(symbol)
	if i < 0 {
		return model.AlertRule{}, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	rule.ID = uuid.NewString()
	rule.Armed = true
	rule.Revision = 1
	m.doc.CryptosToMonitor[i].Alerts = append(m.doc.CryptosToMonitor[i].Alerts, rule)
	return rule, m.save()
}

// EditRule replaces the editable fields of rule id. An explicit edit re-arms
// the rule and bumps its revision so in-flight evaluations of the old
// version are discarded.
func (m *Manager) EditRule(id string, rule model.AlertRule) (model.AlertRule, error) {
	if err := prepare(&rule); err != nil {
		return model.AlertRule{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.findRule(id)
	if r == nil {
		return model.AlertRule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	r.Kind, r.Price, r.Value, r.Notes, r.Sound = rule.Kind, rule.Price, rule.Value, rule.Notes, rule.Sound
	r.Armed = true
	r.Revision++
	return *r, m.save()
}

// RemoveRule deletes rule id.
func (m *Manager) RemoveRule(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.doc.CryptosToMonitor {
		alerts := m.doc.CryptosToMonitor[i].Alerts
		for j := range alerts {
			if alerts[j].ID == id {
				m.doc.CryptosToMonitor[i].Alerts = append(alerts[:j], alerts[j+1:]...)
				return m.save()
			}
		}
	}
	return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
}

// Transition applies one evaluation result to rule id and reports whether
// the rule fired. An armed rule whose condition is true fires and disarms;
// a false condition re-arms silently. Results computed against an older
// revision of the rule, or for a rule that no longer exists, are ignored.
func (m *Manager) Transition(id string, revision int, cond bool) (model.AlertRule, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.findRule(id)
	if r == nil || r.Revision != revision {
		return model.AlertRule{}, false
	}
	if !cond {
		r.Armed = true
		return *r, false
	}
	if !r.Armed {
		return *r, false
	}
	r.Armed = false
	return *r, true
}

// Interval returns the check interval in seconds.
func (m *Manager) Interval() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.CheckIntervalSeconds
}

// SetInterval stores a new check interval.
func (m *Manager) SetInterval(sec int) error {
	if !ValidInterval(sec) {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, sec)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.doc.CheckIntervalSeconds = sec
	return m.save()
}

// Telegram returns the chat credentials stored in the document.
func (m *Manager) Telegram() (token, chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.TelegramBotToken, m.doc.TelegramChatID
}

func (m *Manager) indexOf(symbol string) int {
	for i, ms := range m.doc.CryptosToMonitor {
		if ms.Symbol == symbol {
			return i
		}
	}
	return -1
}

func (m *Manager) findRule(id string) *model.AlertRule {
	for i := range m.doc.CryptosToMonitor {
		alerts := m.doc.CryptosToMonitor[i].Alerts
		for j := range alerts {
			if alerts[j].ID == id {
				return &alerts[j]
			}
		}
	}
	return nil
}

// save must be called with mu held.
func (m *Manager) save() error {
	if err := SaveDocument(m.filePath, m.doc); err != nil {
		zap.L().Error("failed to save rules document", zap.String("path", m.filePath), zap.Error(err))
		return &model.PersistenceError{Path: m.filePath, Err: err}
	}
	return nil
}

func prepare(rule *model.AlertRule) error {
	if rule.Kind == model.KindStatusMatch {
		rule.Value = model.NormalizeStatus(rule.Value)
		rule.Price = 0
	} else {
		rule.Value = ""
	}
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if rule.Sound == "" {
		rule.Sound = model.DefaultSound
	}
	return nil
}
