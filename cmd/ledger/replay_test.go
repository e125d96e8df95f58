package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ledgerScope/internal/config"
	"ledgerScope/internal/model"
	"ledgerScope/internal/replay"
	"ledgerScope/internal/report"
	"ledgerScope/internal/storage/sqlite"
)

func writeEvent(t *testing.T, root, entity, name, payload string) {
	t.Helper()
	dir := filepath.Join(root, entity)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(payload), 0o644))
}

func seedData(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeEvent(t, root, "accounts", "0001.json", `{"id":"a1","op":"c","ts":1000,"data":{"card_id":"C1","savings_account_id":"S1","name":"alice"}}`)
	writeEvent(t, root, "cards", "0001.json", `{"id":10,"op":"c","ts":1000,"data":{"card_id":"C1","credit_used":0}}`)
	writeEvent(t, root, "cards", "0002.json", `{"id":10,"op":"u","ts":2000,"set":{"credit_used":50}}`)
	writeEvent(t, root, "cards", "0003.json", `{"id":99,"op":"u","ts":2500,"set":{"credit_used":5}}`)
	writeEvent(t, root, "savings_accounts", "0001.json", `{"id":20,"op":"c","ts":1500,"data":{"savings_account_id":"S1","balance":100}}`)
	writeEvent(t, root, "savings_accounts", "0002.json", `{"id":20,"op":"u","ts":3000,"set":{"balance":250}}`)
	return root
}

func testConfig(t *testing.T, dataDir string) config.Config {
	t.Helper()
	trackers, err := config.ParseTrackers(config.DefaultTrackers)
	require.NoError(t, err)
	return config.Config{
		DataDir:  dataDir,
		Entities: model.DefaultEntities,
		Trackers: trackers,
		Order:    "ts",
		Timezone: "Asia/Jakarta",
		Format:   "json",
	}
}

func TestReplayStreams(t *testing.T) {
	cfg := testConfig(t, seedData(t))

	out, err := replayStreams(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	assert.NotEmpty(t, out.runID)
	assert.Equal(t, 6, out.events)
	assert.Equal(t, 3, out.records())
	assert.Equal(t, json.Number("50"), out.tables[model.EntityCards]["10"]["credit_used"])
	assert.Equal(t, json.Number("250"), out.tables[model.EntitySavingsAccounts]["20"]["balance"])

	require.Len(t, out.diagnostics, 1)
	assert.Equal(t, model.DiagMissingEntity, out.diagnostics[0].Kind)

	// Card tracker: create, update, orphan update; savings tracker: create, update.
	require.Len(t, out.transactions, 5)
	assert.Equal(t, "C1", out.transactions[1].AssociatedID)
	assert.Equal(t, json.Number("99"), out.transactions[2].AssociatedID)
	assert.Equal(t, "S1", out.transactions[4].AssociatedID)
}

func TestRunOnceJSONAndSinks(t *testing.T) {
	cfg := testConfig(t, seedData(t))
	cfg.Out = filepath.Join(t.TempDir(), "ledger.jsonl")
	cfg.SQLitePath = filepath.Join(t.TempDir(), "ledger.db")
	cfg.MetricsFile = filepath.Join(t.TempDir(), "ledger.prom")

	var buf bytes.Buffer
	require.NoError(t, runOnce(context.Background(), cfg, report.AllSections, &buf, zap.NewNop()))

	var decoded struct {
		RunID        string `json:"run_id"`
		Transactions []struct {
			Timestamp time.Time `json:"timestamp"`
			Kind      string    `json:"transaction_type"`
		} `json:"transactions"`
		Joined struct {
			Rows []map[string]any `json:"rows"`
		} `json:"joined"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Transactions, 5)
	for i := 1; i < len(decoded.Transactions); i++ {
		assert.False(t, decoded.Transactions[i].Timestamp.Before(decoded.Transactions[i-1].Timestamp))
	}
	require.Len(t, decoded.Joined.Rows, 1)
	assert.Equal(t, float64(250), decoded.Joined.Rows[0]["balance"])

	_, err := os.Stat(cfg.Out)
	assert.NoError(t, err)
	_, err = os.Stat(cfg.MetricsFile)
	assert.NoError(t, err)

	store, err := sqlite.NewStore(cfg.SQLitePath)
	require.NoError(t, err)
	defer store.Close()
	rec, err := store.Record(context.Background(), model.EntityCards, "10")
	require.NoError(t, err)
	assert.Equal(t, float64(50), rec["credit_used"])
}

func TestRunOnceStrictOpsFails(t *testing.T) {
	root := seedData(t)
	writeEvent(t, root, "cards", "0004.json", `{"id":10,"op":"d","ts":4000}`)

	cfg := testConfig(t, root)
	var buf bytes.Buffer
	require.NoError(t, runOnce(context.Background(), cfg, report.AllSections, &buf, zap.NewNop()))

	cfg.StrictOps = true
	err := runOnce(context.Background(), cfg, report.AllSections, &buf, zap.NewNop())
	assert.ErrorIs(t, err, replay.ErrUnrecognizedOperation)
}

func TestRunOnceMissingTimestamp(t *testing.T) {
	root := seedData(t)
	writeEvent(t, root, "cards", "0004.json", `{"id":10,"op":"u","set":{"credit_used":75}}`)

	cfg := testConfig(t, root)
	err := runOnce(context.Background(), cfg, report.AllSections, &bytes.Buffer{}, zap.NewNop())
	assert.ErrorIs(t, err, replay.ErrMalformedEvent)

	cfg.Order = "input"
	out, err := replayStreams(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, json.Number("75"), out.tables[model.EntityCards]["10"]["credit_used"])
}

func TestRunOnceRejectsBadFormat(t *testing.T) {
	cfg := testConfig(t, seedData(t))
	cfg.Format = "xml"
	assert.Error(t, runOnce(context.Background(), cfg, report.AllSections, &bytes.Buffer{}, zap.NewNop()))
}

func TestExtractAllUnknownEntity(t *testing.T) {
	cfg := config.Config{Trackers: []config.TrackerSpec{{Entity: "loans", Field: "f", IDField: "i", Label: "l"}}}
	_, err := extractAll(cfg, map[string][]model.Event{})
	assert.Error(t, err)
}
