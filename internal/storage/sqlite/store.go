// Package sqlite persists replay output in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver

	"ledgerScope/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS entity_records (
	entity     TEXT NOT NULL,
	entity_id  TEXT NOT NULL,
	fields     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (entity, entity_id)
);
CREATE TABLE IF NOT EXISTS ledger_transactions (
	run_id        TEXT NOT NULL,
	seq           INTEGER NOT NULL,
	entity        TEXT NOT NULL,
	ts            INTEGER NOT NULL,
	kind          TEXT NOT NULL,
	associated_id TEXT NOT NULL,
	value         TEXT,
	event_source  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS replay_runs (
	run_id       TEXT PRIMARY KEY,
	started_at   TEXT NOT NULL,
	finished_at  TEXT NOT NULL,
	events       INTEGER NOT NULL,
	records      INTEGER NOT NULL,
	transactions INTEGER NOT NULL,
	diagnostics  INTEGER NOT NULL
);`

// Store is a SQLite-backed sink.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens the database at path. ":memory:" is accepted.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutRecords upserts every record of one entity type in a single transaction.
func (s *Store) PutRecords(ctx context.Context, entity string, table model.Table) error {
	if len(table) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO entity_records (entity, entity_id, fields, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (entity, entity_id) DO UPDATE SET
				fields = excluded.fields,
				updated_at = excluded.updated_at`)
		if err != nil {
			return fmt.Errorf("prepare record upsert: %w", err)
		}
		defer stmt.Close()

		for _, key := range table.SortedKeys() {
			fields, err := json.Marshal(table[key])
			if err != nil {
				return fmt.Errorf("marshal record %s/%s: %w", entity, key, err)
			}
			if _, err := stmt.ExecContext(ctx, entity, key, string(fields), now, now); err != nil {
				return fmt.Errorf("upsert record %s/%s: %w", entity, key, err)
			}
		}
		return nil
	})
}

// PutTransactions stores the run's transactions keyed by position.
func (s *Store) PutTransactions(ctx context.Context, runID string, txs []model.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	if runID == "" {
		return errors.New("run id required")
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO ledger_transactions
				(run_id, seq, entity, ts, kind, associated_id, value, event_source)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare transaction insert: %w", err)
		}
		defer stmt.Close()

		for i, t := range txs {
			value, err := json.Marshal(t.Value)
			if err != nil {
				return fmt.Errorf("marshal transaction value: %w", err)
			}
			if _, err := stmt.ExecContext(ctx, runID, i, t.Entity, t.Timestamp, t.Kind, model.EntityKey(t.AssociatedID), string(value), t.EventSource); err != nil {
				return fmt.Errorf("insert transaction %d: %w", i, err)
			}
		}
		return nil
	})
}

// PutRun upserts the run summary.
func (s *Store) PutRun(ctx context.Context, run model.RunSummary) error {
	if run.RunID == "" {
		return errors.New("run id required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO replay_runs
			(run_id, started_at, finished_at, events, records, transactions, diagnostics)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Events, run.Records, run.Transactions, run.Diagnostics,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// Record returns the stored fields of one entity.
func (s *Store) Record(ctx context.Context, entity, entityID string) (model.Record, error) {
	var fields string
	err := s.db.QueryRowContext(ctx,
		`SELECT fields FROM entity_records WHERE entity = ? AND entity_id = ?`, entity, entityID,
	).Scan(&fields)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load record: %w", err)
	}

	var rec model.Record
	if err := json.Unmarshal([]byte(fields), &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
