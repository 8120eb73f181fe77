package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"CoinSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(filepath.Join(t.TempDir(), "config.json"))
}

func TestNewManager_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "config.json")
	m := NewManager(path)

	assert.Empty(t, m.Symbols())
	assert.Equal(t, DefaultInterval, m.Interval())
	_, err := os.Stat(path)
	assert.NoError(t, err, "default document should be written")
}

func TestNewManager_CorruptFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	m := NewManager(path)
	assert.Empty(t, m.Symbols())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data), "corrupt file must not be overwritten on load")
}

func TestNewManager_NormalizesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
  "telegramBotToken": "t",
  "telegramChatId": "c",
  "checkIntervalSeconds": 42,
  "cryptosToMonitor": [
    {"symbol": "BTCUSDT", "alerts": [{"type": "high", "price": 50000, "notes": "", "sound": ""}]},
    {"symbol": "BTCUSDT", "alerts": [{"type": "status", "value": "SOBRECOMPRADO (RSI >= 70)", "notes": "", "sound": ""}]}
  ]
}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	m := NewManager(path)
	assert.Equal(t, []string{"BTCUSDT"}, m.Symbols())
	assert.Equal(t, DefaultInterval, m.Interval())

	rules, err := m.Rules("BTCUSDT")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	for _, r := range rules {
		assert.NotEmpty(t, r.ID)
		assert.True(t, r.Armed, "rules start armed")
	}
	assert.Equal(t, model.StatusOverbought, rules[1].Value)
}

func TestManager_SymbolLifecycle(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.AddSymbol("ETHUSDT"))
	err := m.AddSymbol("ETHUSDT")
	assert.True(t, errors.Is(err, ErrDuplicateSymbol))

	_, err = m.AddRule("ETHUSDT", model.AlertRule{Kind: model.KindPriceHigh, Price: 4000})
	require.NoError(t, err)
	_, err = m.AddRule("ETHUSDT", model.AlertRule{Kind: model.KindStatusMatch, Value: model.StatusOversold})
	require.NoError(t, err)

	require.NoError(t, m.RemoveSymbol("ETHUSDT"))
	_, err = m.Rules("ETHUSDT")
	assert.True(t, errors.Is(err, ErrSymbolNotFound))

	require.NoError(t, m.AddSymbol("ETHUSDT"))
	rules, err := m.Rules("ETHUSDT")
	require.NoError(t, err)
	assert.Empty(t, rules, "re-added symbol starts without rules")
}

func TestManager_AddRuleValidation(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.AddSymbol("BTCUSDT"))

	_, err := m.AddRule("BTCUSDT", model.AlertRule{Kind: model.KindPriceLow})
	assert.True(t, errors.Is(err, ErrInvalidRule))

	_, err = m.AddRule("BTCUSDT", model.AlertRule{Kind: model.KindStatusMatch, Value: "moon"})
	assert.True(t, errors.Is(err, ErrInvalidRule))

	_, err = m.AddRule("DOGEUSDT", model.AlertRule{Kind: model.KindPriceLow, Price: 1})
	assert.True(t, errors.Is(err, ErrSymbolNotFound))

	r, err := m.AddRule("BTCUSDT", model.AlertRule{Kind: model.KindPriceLow, Price: 1})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSound, r.Sound)
}

func TestManager_RulesSurviveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	m := NewManager(path)
	require.NoError(t, m.AddSymbol("BTCUSDT"))
	added, err := m.AddRule("BTCUSDT", model.AlertRule{Kind: model.KindPriceHigh, Price: 50000, Notes: "breakout"})
	require.NoError(t, err)
	require.NoError(t, m.SetInterval(900))

	reloaded := NewManager(path)
	rules, err := reloaded.Rules("BTCUSDT")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, added.ID, rules[0].ID)
	assert.Equal(t, "breakout", rules[0].Notes)
	assert.Equal(t, 900, reloaded.Interval())
}

func TestManager_SetIntervalRejectsUnsupported(t *testing.T) {
	m := newTestManager(t)
	err := m.SetInterval(120)
	assert.True(t, errors.Is(err, ErrInvalidInterval))
	assert.Equal(t, DefaultInterval, m.Interval())
}

func TestManager_TransitionEdgeTriggered(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.AddSymbol("BTCUSDT"))
	r, err := m.AddRule("BTCUSDT", model.AlertRule{Kind: model.KindPriceHigh, Price: 50000})
	require.NoError(t, err)

	// 49000, 51000, 51500, 49500, 50500
	conds := []bool{false, true, true, false, true}
	fires := 0
	for _, c := range conds {
		if _, fired := m.Transition(r.ID, r.Revision, c); fired {
			fires++
		}
	}
	assert.Equal(t, 2, fires)
}

func TestManager_EditRearmsAndDiscardsStaleResults(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.AddSymbol("BTCUSDT"))
	r, err := m.AddRule("BTCUSDT", model.AlertRule{Kind: model.KindPriceHigh, Price: 50000})
	require.NoError(t, err)

	_, fired := m.Transition(r.ID, r.Revision, true)
	require.True(t, fired)

	edited, err := m.EditRule(r.ID, model.AlertRule{Kind: model.KindPriceHigh, Price: 60000})
	require.NoError(t, err)
	assert.Equal(t, r.ID, edited.ID)
	assert.True(t, edited.Armed)

	_, fired = m.Transition(r.ID, r.Revision, true)
	assert.False(t, fired, "result for the old revision is ignored")

	_, fired = m.Transition(r.ID, edited.Revision, true)
	assert.True(t, fired)
}

func TestManager_TransitionUnknownRule(t *testing.T) {
	m := newTestManager(t)
	_, fired := m.Transition("missing", 1, true)
	assert.False(t, fired)
}

func TestManager_PersistenceFailureKeepsChange(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	m := NewManager(filepath.Join(blocker, "config.json"))
	err := m.AddSymbol("BTCUSDT")

	var perr *model.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, []string{"BTCUSDT"}, m.Symbols(), "in-memory state is not rolled back")
}
