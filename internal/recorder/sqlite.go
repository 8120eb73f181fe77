package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"CoinSentinel/internal/model"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists firings and cycle rows to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	zap.L().Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alert_firings (
			id         TEXT PRIMARY KEY,
			timestamp  INTEGER NOT NULL,
			symbol     TEXT NOT NULL,
			display    TEXT,
			rule_id    TEXT,
			rule_type  TEXT,
			threshold  REAL,
			target     TEXT,
			price      REAL,
			trigger    TEXT,
			notes      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_firings_ts ON alert_firings(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_firings_symbol ON alert_firings(symbol)`,

		`CREATE TABLE IF NOT EXISTS cycle_rows (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			symbol         TEXT NOT NULL,
			price          REAL,
			change_pct_24h REAL,
			stale          INTEGER,
			rsi            REAL,
			upper_band     REAL,
			lower_band     REAL,
			macd           TEXT,
			ema            TEXT,
			status         TEXT,
			signal         TEXT,
			market_cap     REAL,
			fdv            REAL,
			error          TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rows_ts ON cycle_rows(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordFiring(f *model.Firing, trigger string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO alert_firings
		(id, timestamp, symbol, display, rule_id, rule_type, threshold, target, price, trigger, notes)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		f.ID, f.At.Unix(), f.Symbol, f.Display,
		f.Rule.ID, string(f.Rule.Kind), f.Rule.Price, f.Rule.Value,
		f.Price, trigger, f.Rule.Notes,
	)
	return err
}

func (r *SQLiteRecorder) RecordRow(row *model.DisplayRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		rsi, upper, lower         float64
		macd, ema, status, signal string
	)
	if ind := row.Indicators; ind != nil {
		rsi, upper, lower = ind.RSI, ind.UpperBand, ind.LowerBand
		macd, ema, status, signal = ind.MACD, ind.EMA, ind.Status, string(ind.Signal)
	}
	_, err := r.db.Exec(`INSERT INTO cycle_rows
		(timestamp, symbol, price, change_pct_24h, stale, rsi, upper_band, lower_band,
		 macd, ema, status, signal, market_cap, fdv, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		row.UpdatedAt.Unix(), row.Symbol, row.Price, row.ChangePct24h, row.Stale,
		rsi, upper, lower, macd, ema, status, signal,
		row.MarketCap, row.FDV, row.Error,
	)
	return err
}

// CountFirings returns the number of archived firings.
func (r *SQLiteRecorder) CountFirings() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM alert_firings`).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	zap.L().Info("closing sqlite recorder")
	return r.db.Close()
}
