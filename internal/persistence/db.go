// Package persistence stores simulation runs in SQLite: run metadata,
// the append-only daily records, notable events and the final snapshot.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/agri-commons/internal/accounting"
	"github.com/talgya/agri-commons/internal/engine"
)

// ErrRunNotFound is returned when a run ID has no stored run.
var ErrRunNotFound = errors.New("run not found")

const dateLayout = "2006-01-02"

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		scenario TEXT NOT NULL,
		created_at TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		seed INTEGER NOT NULL,
		config_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS farm_days (
		run_id TEXT NOT NULL,
		date TEXT NOT NULL,
		farm_id TEXT NOT NULL,
		irrigation_m3 REAL NOT NULL,
		groundwater_m3 REAL NOT NULL,
		municipal_m3 REAL NOT NULL,
		water_cost REAL NOT NULL,
		energy_kwh REAL NOT NULL,
		energy_cost REAL NOT NULL,
		energy_economic_cost REAL NOT NULL,
		labor_hours REAL NOT NULL,
		labor_cost REAL NOT NULL,
		input_cost REAL NOT NULL,
		storage_cost REAL NOT NULL,
		shared_cost REAL NOT NULL,
		debt_service REAL NOT NULL,
		harvest_kg REAL NOT NULL,
		revenue REAL NOT NULL,
		revenue_by_crop_json TEXT NOT NULL,
		total_cost REAL NOT NULL,
		net_income REAL NOT NULL,
		cash_balance REAL NOT NULL,
		PRIMARY KEY (run_id, date, farm_id)
	);

	CREATE TABLE IF NOT EXISTS community_days (
		run_id TEXT NOT NULL,
		date TEXT NOT NULL,
		record_json TEXT NOT NULL,
		PRIMARY KEY (run_id, date)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		date TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		run_id TEXT PRIMARY KEY,
		snapshot_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		run_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (run_id, key)
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, date);
	CREATE INDEX IF NOT EXISTS idx_farm_days_farm ON farm_days(run_id, farm_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run is one stored simulation run.
type Run struct {
	ID        string `db:"id" json:"id"`
	Scenario  string `db:"scenario" json:"scenario"`
	CreatedAt string `db:"created_at" json:"created_at"`
	StartDate string `db:"start_date" json:"start_date"`
	EndDate   string `db:"end_date" json:"end_date"`
	Seed      int64  `db:"seed" json:"seed"`
	Config    string `db:"config_json" json:"config"`
}

// CreateRun registers a new run and returns it with a fresh ID. config is
// stored as JSON for reproduction.
func (db *DB) CreateRun(scenario string, start, end time.Time, seed int64, config any) (Run, error) {
	cfg, err := json.Marshal(config)
	if err != nil {
		return Run{}, fmt.Errorf("marshal run config: %w", err)
	}
	run := Run{
		ID:        uuid.NewString(),
		Scenario:  scenario,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
		Seed:      seed,
		Config:    string(cfg),
	}
	_, err = db.conn.NamedExec(`INSERT INTO runs
		(id, scenario, created_at, start_date, end_date, seed, config_json)
		VALUES (:id, :scenario, :created_at, :start_date, :end_date, :seed, :config_json)`, run)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// GetRun loads one run.
func (db *DB) GetRun(id string) (Run, error) {
	var run Run
	err := db.conn.Get(&run, "SELECT * FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// Runs lists stored runs, newest first.
func (db *DB) Runs() ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs, "SELECT * FROM runs ORDER BY created_at DESC, id")
	return runs, err
}

// farmDayRow is a FarmRecord as stored.
type farmDayRow struct {
	RunID       string `db:"run_id"`
	Date        string `db:"date"`
	RevenueJSON string `db:"revenue_by_crop_json"`
	accounting.FarmRecord
}

// SaveDays appends a batch of daily records in one transaction.
func (db *DB) SaveDays(runID string, days []*engine.DayRecords) error {
	if len(days) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	farmStmt, err := tx.PrepareNamed(`INSERT INTO farm_days
		(run_id, date, farm_id, irrigation_m3, groundwater_m3, municipal_m3, water_cost,
		 energy_kwh, energy_cost, energy_economic_cost, labor_hours, labor_cost,
		 input_cost, storage_cost, shared_cost, debt_service, harvest_kg, revenue,
		 revenue_by_crop_json, total_cost, net_income, cash_balance)
		VALUES (:run_id, :date, :farm_id, :irrigation_m3, :groundwater_m3, :municipal_m3, :water_cost,
		 :energy_kwh, :energy_cost, :energy_economic_cost, :labor_hours, :labor_cost,
		 :input_cost, :storage_cost, :shared_cost, :debt_service, :harvest_kg, :revenue,
		 :revenue_by_crop_json, :total_cost, :net_income, :cash_balance)`)
	if err != nil {
		return err
	}
	defer farmStmt.Close()

	for _, d := range days {
		date := d.Date.Format(dateLayout)
		for _, r := range d.Farms {
			revenue, err := json.Marshal(r.RevenueByCrop)
			if err != nil {
				return fmt.Errorf("marshal revenue %s %s: %w", date, r.FarmID, err)
			}
			row := farmDayRow{RunID: runID, Date: date, RevenueJSON: string(revenue), FarmRecord: r}
			if _, err := farmStmt.Exec(row); err != nil {
				return fmt.Errorf("insert farm day %s %s: %w", date, r.FarmID, err)
			}
		}

		community, err := json.Marshal(d.Community)
		if err != nil {
			return fmt.Errorf("marshal community day %s: %w", date, err)
		}
		if _, err := tx.Exec("INSERT INTO community_days (run_id, date, record_json) VALUES (?, ?, ?)",
			runID, date, string(community)); err != nil {
			return fmt.Errorf("insert community day %s: %w", date, err)
		}

		for _, e := range d.Events {
			_, err := tx.Exec(
				"INSERT INTO events (run_id, date, description, category) VALUES (?, ?, ?, ?)",
				runID, e.Date.Format(dateLayout), e.Description, e.Category,
			)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// FarmRecords loads a run's farm records ordered by date then farm.
func (db *DB) FarmRecords(runID string) ([]accounting.FarmRecord, error) {
	var rows []farmDayRow
	err := db.conn.Select(&rows,
		"SELECT * FROM farm_days WHERE run_id = ? ORDER BY date, farm_id", runID)
	if err != nil {
		return nil, fmt.Errorf("select farm days: %w", err)
	}

	out := make([]accounting.FarmRecord, len(rows))
	for i, row := range rows {
		r := row.FarmRecord
		if r.Date, err = time.Parse(dateLayout, row.Date); err != nil {
			return nil, fmt.Errorf("farm day date %q: %w", row.Date, err)
		}
		if err := json.Unmarshal([]byte(row.RevenueJSON), &r.RevenueByCrop); err != nil {
			return nil, fmt.Errorf("farm day revenue %s: %w", row.Date, err)
		}
		out[i] = r
	}
	return out, nil
}

// CommunityRecords loads a run's community records in date order.
func (db *DB) CommunityRecords(runID string) ([]accounting.CommunityRecord, error) {
	var blobs []string
	err := db.conn.Select(&blobs,
		"SELECT record_json FROM community_days WHERE run_id = ? ORDER BY date", runID)
	if err != nil {
		return nil, fmt.Errorf("select community days: %w", err)
	}
	out := make([]accounting.CommunityRecord, len(blobs))
	for i, b := range blobs {
		if err := json.Unmarshal([]byte(b), &out[i]); err != nil {
			return nil, fmt.Errorf("community day %d: %w", i, err)
		}
	}
	return out, nil
}

type eventRow struct {
	Date        string `db:"date"`
	Description string `db:"description"`
	Category    string `db:"category"`
}

// RecentEvents returns a run's most recent N events, newest first. A
// non-empty category restricts the result to that category.
func (db *DB) RecentEvents(runID, category string, limit int) ([]engine.Event, error) {
	query := "SELECT date, description, category FROM events WHERE run_id = ?"
	args := []any{runID}
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	var rows []eventRow
	if err := db.conn.Select(&rows, query, args...); err != nil {
		return nil, err
	}
	events := make([]engine.Event, len(rows))
	for i, r := range rows {
		date, _ := time.Parse(dateLayout, r.Date)
		events[i] = engine.Event{Date: date, Description: r.Description, Category: r.Category}
	}
	return events, nil
}

// SaveSnapshot stores the run's terminal snapshot, replacing any earlier one.
func (db *DB) SaveSnapshot(runID string, snap engine.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = db.conn.Exec(
		"INSERT OR REPLACE INTO snapshots (run_id, snapshot_json) VALUES (?, ?)",
		runID, string(b),
	)
	if err != nil {
		return err
	}
	slog.Info("snapshot saved", "run", runID, "days", snap.Days)
	return nil
}

// Snapshot loads a run's terminal snapshot.
func (db *DB) Snapshot(runID string) (engine.Snapshot, error) {
	var blob string
	err := db.conn.Get(&blob, "SELECT snapshot_json FROM snapshots WHERE run_id = ?", runID)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Snapshot{}, fmt.Errorf("%w: no snapshot for %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return engine.Snapshot{}, err
	}
	var snap engine.Snapshot
	if err := json.Unmarshal([]byte(blob), &snap); err != nil {
		return engine.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// SaveMeta stores a key-value pair against a run.
func (db *DB) SaveMeta(runID, key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (run_id, key, value) VALUES (?, ?, ?)",
		runID, key, value,
	)
	return err
}

// GetMeta retrieves a run metadata value.
func (db *DB) GetMeta(runID, key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE run_id = ? AND key = ?", runID, key)
	return value, err
}
