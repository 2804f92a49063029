package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists design history to a SQLite database.
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

	// WAL mode so dashboards can read while the planner writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS designs (
			id                    INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp             INTEGER NOT NULL,
			scenario              TEXT NOT NULL,
			n_patients            INTEGER,
			n_events              REAL,
			accrual_duration      REAL,
			trial_duration        REAL,
			h0_expected_accrual   REAL,
			h1_expected_accrual   REAL,
			h0_expected_duration  REAL,
			h1_expected_duration  REAL,
			h0_expected_n         REAL,
			h1_expected_n         REAL,
			n_looks               INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_designs_ts ON designs(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_designs_scenario ON designs(scenario)`,

		`CREATE TABLE IF NOT EXISTS ss_ranges (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			scenario        TEXT NOT NULL,
			n_low           INTEGER,
			n_high          INTEGER,
			delta           REAL,
			min_perc_change REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ranges_ts ON ss_ranges(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordDesign(rec *DesignRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := rec.Design
	_, err := r.db.Exec(`INSERT INTO designs
		(timestamp, scenario, n_patients, n_events, accrual_duration, trial_duration,
		 h0_expected_accrual, h1_expected_accrual,
		 h0_expected_duration, h1_expected_duration,
		 h0_expected_n, h1_expected_n, n_looks)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), rec.Scenario, d.NPatients, d.NEvents,
		d.AccrualDuration, d.TrialDuration,
		d.H0ExpectedAccrualDuration, d.H1ExpectedAccrualDuration,
		d.H0ExpectedTrialDuration, d.H1ExpectedTrialDuration,
		d.H0ExpectedSampleSize, d.H1ExpectedSampleSize,
		len(d.Looks),
	)
	return err
}

func (r *SQLiteRecorder) RecordRange(rec *RangeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO ss_ranges
		(timestamp, scenario, n_low, n_high, delta, min_perc_change)
		VALUES (?,?,?,?,?,?)`,
		time.Now().Unix(), rec.Scenario,
		rec.NLow, rec.NHigh, rec.Delta, rec.MinPercChange,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
