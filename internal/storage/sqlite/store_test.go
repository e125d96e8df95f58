package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerScope/internal/model"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func TestNewStore(t *testing.T) {
	t.Run("error with empty path", func(t *testing.T) {
		_, err := NewStore("")
		require.Error(t, err)
	})
}

func TestStore_EnsureSchemaIdempotent(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.EnsureSchema(context.Background()))

	for _, table := range []string{"entity_records", "ledger_transactions", "replay_runs"} {
		var count int
		err := store.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}
}

func TestStore_ErrorWording(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	ctx := context.Background()
	err = store.EnsureSchema(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure schema: ")

	err = store.PutRecords(ctx, model.EntityCards, model.Table{"1": {"id": "1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction: ")

	_, err = store.Record(ctx, model.EntityCards, "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load record: ")
}

func TestStore_PutRecordsUpserts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutRecords(ctx, model.EntityCards, model.Table{
		"1": {"id": "1", "card_id": "A", "credit_used": 0},
	}))
	require.NoError(t, store.PutRecords(ctx, model.EntityCards, model.Table{
		"1": {"id": "1", "card_id": "A", "credit_used": 50},
	}))

	rec, err := store.Record(ctx, model.EntityCards, "1")
	require.NoError(t, err)
	assert.Equal(t, "A", rec["card_id"])
	assert.Equal(t, float64(50), rec["credit_used"])

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM entity_records`).Scan(&count))
	assert.Equal(t, 1, count)

	missing, err := store.Record(ctx, model.EntityCards, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_PutTransactions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	txs := []model.Transaction{
		{Timestamp: 1000, Kind: "Card Credit Used Set", AssociatedID: "A", Value: 0, Entity: model.EntityCards},
		{Timestamp: 2000, Kind: "Card Credit Used Set", AssociatedID: "A", Value: 50, Entity: model.EntityCards},
	}
	require.NoError(t, store.PutTransactions(ctx, "run-1", txs))
	// Re-running with the same id replaces rather than duplicates.
	require.NoError(t, store.PutTransactions(ctx, "run-1", txs))

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM ledger_transactions WHERE run_id = ?`, "run-1").Scan(&count))
	assert.Equal(t, 2, count)

	var value string
	require.NoError(t, store.db.QueryRow(`SELECT value FROM ledger_transactions WHERE run_id = ? AND seq = 1`, "run-1").Scan(&value))
	assert.Equal(t, "50", value)

	assert.Error(t, store.PutTransactions(ctx, "", txs))
}

func TestStore_PutRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := model.RunSummary{
		RunID:        "run-1",
		StartedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		FinishedAt:   time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC),
		Events:       10,
		Records:      3,
		Transactions: 2,
		Diagnostics:  1,
	}
	require.NoError(t, store.PutRun(ctx, run))

	var events, diags int
	require.NoError(t, store.db.QueryRow(`SELECT events, diagnostics FROM replay_runs WHERE run_id = ?`, "run-1").Scan(&events, &diags))
	assert.Equal(t, 10, events)
	assert.Equal(t, 1, diags)
}
