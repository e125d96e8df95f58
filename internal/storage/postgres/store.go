package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ledgerScope/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS entity_records (
	entity     TEXT NOT NULL,
	entity_id  TEXT NOT NULL,
	fields     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (entity, entity_id)
);
CREATE TABLE IF NOT EXISTS ledger_transactions (
	run_id        TEXT NOT NULL,
	seq           INTEGER NOT NULL,
	entity        TEXT NOT NULL,
	ts            TIMESTAMPTZ NOT NULL,
	kind          TEXT NOT NULL,
	associated_id TEXT NOT NULL,
	value         JSONB,
	event_source  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS replay_runs (
	run_id       TEXT PRIMARY KEY,
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ NOT NULL,
	events       INTEGER NOT NULL,
	records      INTEGER NOT NULL,
	transactions INTEGER NOT NULL,
	diagnostics  INTEGER NOT NULL
);`

// Options controls how the store connects.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
	// BatchSize caps the statements sent per round trip.
	BatchSize int
	// OnRetry, if set, is called before each connect retry.
	OnRetry RetryFunc
}

// Store persists reconstructed records and transactions in Postgres.
type Store struct {
	pool      *pgxpool.Pool
	batchSize int
}

// NewStore connects to dsn, retrying the initial ping with exponential backoff.
func NewStore(ctx context.Context, dsn string, opts Options) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pg dsn: %w", err)
	}
	err = newConnectRetry(opts).do(ctx, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	return &Store{pool: pool, batchSize: opts.BatchSize}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutRecords upserts the current state of every record of one entity type.
func (s *Store) PutRecords(ctx context.Context, entity string, table model.Table) error {
	keys := table.SortedKeys()
	for _, part := range chunks(len(keys), s.batchSize) {
		batch := &pgx.Batch{}
		for _, key := range keys[part.From:part.To] {
			fields, err := json.Marshal(table[key])
			if err != nil {
				return fmt.Errorf("marshal record %s/%s: %w", entity, key, err)
			}
			batch.Queue(`
				INSERT INTO entity_records (entity, entity_id, fields, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
				ON CONFLICT (entity, entity_id)
				DO UPDATE SET
					fields = EXCLUDED.fields,
					updated_at = now()
			`, entity, key, string(fields))
		}
		if err := s.sendBatch(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

// PutTransactions inserts the run's transactions, replacing rows of a re-run with the same id.
func (s *Store) PutTransactions(ctx context.Context, runID string, txs []model.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	if runID == "" {
		return fmt.Errorf("run id required")
	}
	for _, part := range chunks(len(txs), s.batchSize) {
		batch := &pgx.Batch{}
		for i := part.From; i < part.To; i++ {
			tx := txs[i]
			value, err := json.Marshal(tx.Value)
			if err != nil {
				return fmt.Errorf("marshal transaction value: %w", err)
			}
			batch.Queue(`
				INSERT INTO ledger_transactions (
					run_id, seq, entity, ts, kind, associated_id, value, event_source
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
				ON CONFLICT (run_id, seq)
				DO UPDATE SET
					entity = EXCLUDED.entity,
					ts = EXCLUDED.ts,
					kind = EXCLUDED.kind,
					associated_id = EXCLUDED.associated_id,
					value = EXCLUDED.value,
					event_source = EXCLUDED.event_source
			`,
				runID,
				i,
				tx.Entity,
				time.UnixMilli(tx.Timestamp).UTC(),
				tx.Kind,
				model.EntityKey(tx.AssociatedID),
				string(value),
				tx.EventSource,
			)
		}
		if err := s.sendBatch(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

// PutRun upserts the run summary.
func (s *Store) PutRun(ctx context.Context, run model.RunSummary) error {
	if run.RunID == "" {
		return fmt.Errorf("run id required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO replay_runs (run_id, started_at, finished_at, events, records, transactions, diagnostics)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO UPDATE
		SET finished_at = EXCLUDED.finished_at,
			events = EXCLUDED.events,
			records = EXCLUDED.records,
			transactions = EXCLUDED.transactions,
			diagnostics = EXCLUDED.diagnostics
	`, run.RunID, run.StartedAt, run.FinishedAt, run.Events, run.Records, run.Transactions, run.Diagnostics)
	return err
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
