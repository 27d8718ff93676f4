package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"QuoteHarvester/internal/logger"
	"QuoteHarvester/internal/model"
)

// SQLiteRecorder persists session history to a SQLite database.
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

	// WAL so dashboards can read while a session writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.GetLogger().WithComponent("recorder").WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session_runs (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL UNIQUE,
			started_at     INTEGER NOT NULL,
			finished_at    INTEGER NOT NULL,
			symbols        INTEGER,
			batches        INTEGER,
			ticks          INTEGER,
			updated        INTEGER,
			placeholder    INTEGER,
			unresolved     INTEGER,
			failed         INTEGER,
			store_warnings INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON session_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS symbol_outcomes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL,
			code       TEXT NOT NULL,
			status     TEXT NOT NULL,
			trade_date TEXT,
			close      REAL,
			batch      INTEGER,
			note       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_run ON symbol_outcomes(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_code ON symbol_outcomes(code, trade_date)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(rep *model.RunReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO session_runs
		(run_id, started_at, finished_at, symbols, batches, ticks,
		 updated, placeholder, unresolved, failed, store_warnings)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		rep.RunID, rep.StartedAt.Unix(), rep.FinishedAt.Unix(),
		rep.Symbols, rep.Batches, rep.Ticks,
		rep.Count(model.StatusUpdated), rep.Count(model.StatusPlaceholder),
		rep.Count(model.StatusUnresolved), rep.Count(model.StatusFailed),
		rep.StoreWarnings,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO symbol_outcomes
		(run_id, code, status, trade_date, close, batch, note)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare outcome: %w", err)
	}
	defer stmt.Close()

	for _, o := range rep.Outcomes {
		if _, err := stmt.Exec(rep.RunID, o.Code, string(o.Status), o.Date, o.Close.NullFloat(), o.Batch, o.Note); err != nil {
			return fmt.Errorf("insert outcome %s: %w", o.Code, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) Close() error {
	logger.GetLogger().WithComponent("recorder").Info("closing sqlite recorder")
	return r.db.Close()
}
