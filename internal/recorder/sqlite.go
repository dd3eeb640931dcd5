package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"TokenTracker/internal/model"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the dashboard read while a scheduled run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id           TEXT NOT NULL UNIQUE,
			started_at       INTEGER NOT NULL,
			token            TEXT NOT NULL,
			currency         TEXT NOT NULL,
			days             INTEGER,
			price_threshold  REAL,
			volume_threshold REAL,
			records          INTEGER,
			spikes           INTEGER,
			current_price    REAL,
			change_pct       REAL,
			volatility       REAL,
			status           TEXT,
			error            TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS spikes (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id            TEXT NOT NULL,
			timestamp         INTEGER NOT NULL,
			date              TEXT NOT NULL,
			type              TEXT NOT NULL,
			metric            TEXT NOT NULL,
			direction         TEXT NOT NULL,
			change_pct        REAL,
			absolute_change   REAL,
			value             REAL,
			volume_change_pct REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spikes_run ON spikes(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_spikes_date ON spikes(date)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(run *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO runs
		(run_id, started_at, token, currency, days, price_threshold, volume_threshold,
		 records, spikes, current_price, change_pct, volatility, status, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.RunID, run.StartedAt.Unix(), run.Token, run.Currency, run.Days,
		run.PriceThreshold, run.VolumeThreshold, run.Records, run.Spikes,
		run.CurrentPrice, run.ChangePct, run.Volatility, run.Status, run.Error,
	)
	return err
}

// RecordSpikes stores all events of one run in a single transaction.
func (r *SQLiteRecorder) RecordSpikes(runID string, spikes []model.SpikeEvent) error {
	if len(spikes) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO spikes
		(run_id, timestamp, date, type, metric, direction, change_pct, absolute_change, value, volume_change_pct)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, s := range spikes {
		if _, err := stmt.Exec(runID, s.Timestamp.Unix(), s.Date, string(s.Kind), string(s.Metric),
			string(s.Direction), s.ChangePct, s.AbsoluteChange, s.Value, s.VolumeChangePct); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT run_id, started_at, token, currency, days, price_threshold,
		volume_threshold, records, spikes, current_price, change_pct, volatility, status, error
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		var startedAt int64
		if err := rows.Scan(&run.RunID, &startedAt, &run.Token, &run.Currency, &run.Days,
			&run.PriceThreshold, &run.VolumeThreshold, &run.Records, &run.Spikes,
			&run.CurrentPrice, &run.ChangePct, &run.Volatility, &run.Status, &run.Error); err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(startedAt, 0)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
