package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"price-monitor/internal/models"
)

// SQLiteArchive implements Archive using SQLite.
type SQLiteArchive struct {
	db *sql.DB
}

// OpenArchive opens or creates the archive database at dbPath.
func OpenArchive(dbPath string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	a := &SQLiteArchive{db: db}
	if err := a.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return a, nil
}

func (a *SQLiteArchive) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS observations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		price REAL NOT NULL,
		change_percent REAL,
		price_above TEXT NOT NULL,
		price_below TEXT NOT NULL,
		percent_above TEXT NOT NULL,
		percent_below TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_observations_symbol ON observations(symbol, timestamp);
	CREATE INDEX IF NOT EXISTS idx_observations_run ON observations(run_id);
	`
	_, err := a.db.Exec(schema)
	return err
}

// SaveObservations implements Archive. All records are written in one transaction.
func (a *SQLiteArchive) SaveObservations(ctx context.Context, runID string, records []models.Observation) (int, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations
			(run_id, timestamp, symbol, price, change_percent, price_above, price_below, percent_above, percent_below)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		var change sql.NullFloat64
		if r.ChangePercent != nil {
			change = sql.NullFloat64{Float64: *r.ChangePercent, Valid: true}
		}
		lists, err := encodeLists(r.Thresholds)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, runID, r.Timestamp.UTC(), r.Symbol, r.Price, change,
			lists[0], lists[1], lists[2], lists[3]); err != nil {
			return 0, fmt.Errorf("failed to insert observation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return len(records), nil
}

// Observations implements Archive.
func (a *SQLiteArchive) Observations(ctx context.Context, symbol string) ([]models.Observation, error) {
	query := `SELECT timestamp, symbol, price, change_percent, price_above, price_below, percent_above, percent_below
		FROM observations`
	var args []interface{}
	if symbol != "" {
		query += " WHERE symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY id"

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var out []models.Observation
	for rows.Next() {
		var (
			o      models.Observation
			ts     time.Time
			change sql.NullFloat64
			lists  [4]string
		)
		if err := rows.Scan(&ts, &o.Symbol, &o.Price, &change, &lists[0], &lists[1], &lists[2], &lists[3]); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		o.Timestamp = ts
		if change.Valid {
			v := change.Float64
			o.ChangePercent = &v
		}
		if o.Thresholds, err = decodeLists(lists); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Close closes the database.
func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}

func encodeLists(s models.ThresholdSnapshot) ([4]string, error) {
	var out [4]string
	for i, kind := range models.ThresholdKinds {
		values := s.Values(kind)
		if values == nil {
			values = []float64{}
		}
		b, err := json.Marshal(values)
		if err != nil {
			return out, fmt.Errorf("failed to encode %s: %w", kind, err)
		}
		out[i] = string(b)
	}
	return out, nil
}

func decodeLists(lists [4]string) (models.ThresholdSnapshot, error) {
	var decoded [4][]float64
	for i, raw := range lists {
		if err := json.Unmarshal([]byte(raw), &decoded[i]); err != nil {
			return models.ThresholdSnapshot{}, fmt.Errorf("failed to decode %s: %w", models.ThresholdKinds[i], err)
		}
	}
	return models.ThresholdSnapshot{
		PriceAbove:   decoded[0],
		PriceBelow:   decoded[1],
		PercentAbove: decoded[2],
		PercentBelow: decoded[3],
	}, nil
}
