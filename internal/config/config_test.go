package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.DataDir != "data" {
		t.Fatalf("data dir mismatch: %s", cfg.DataDir)
	}
	if !reflect.DeepEqual(cfg.Entities, []string{"accounts", "cards", "savings_accounts"}) {
		t.Fatalf("entities mismatch: %v", cfg.Entities)
	}
	if len(cfg.Trackers) != 2 {
		t.Fatalf("expected 2 default trackers, got %d", len(cfg.Trackers))
	}
	want := TrackerSpec{Entity: "cards", Field: "credit_used", IDField: "card_id", Label: "Card Credit Used Set"}
	if cfg.Trackers[0] != want {
		t.Fatalf("tracker mismatch: %+v", cfg.Trackers[0])
	}
	if cfg.Timezone != "Asia/Jakarta" || cfg.Order != "ts" || cfg.Format != "table" {
		t.Fatalf("defaults mismatch: %+v", cfg)
	}
	if cfg.RetryBackoff != 500*time.Millisecond {
		t.Fatalf("retry backoff mismatch: %s", cfg.RetryBackoff)
	}
}

func TestLoadFlagsAndEnv(t *testing.T) {
	t.Setenv("LEDGER_DATA_DIR", "/var/ledger")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("format", "table", "")
	flags.Bool("strict-ops", false, "")
	flags.StringSlice("entities", nil, "")
	if err := flags.Parse([]string{"--format", "json", "--strict-ops", "--entities", "cards"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/var/ledger" {
		t.Fatalf("env should override data dir, got %s", cfg.DataDir)
	}
	if cfg.Format != "json" || !cfg.StrictOps {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Entities, []string{"cards"}) {
		t.Fatalf("entities mismatch: %v", cfg.Entities)
	}
}

func TestLoadEnvLists(t *testing.T) {
	t.Setenv("LEDGER_ENTITIES", "cards, savings_accounts,")
	t.Setenv("LEDGER_TRACK", "cards:limit:card_id:Card Limit Set")
	t.Setenv("LEDGER_BATCH_SIZE", "250")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Entities, []string{"cards", "savings_accounts"}) {
		t.Fatalf("entities mismatch: %v", cfg.Entities)
	}
	if len(cfg.Trackers) != 1 || cfg.Trackers[0].Label != "Card Limit Set" {
		t.Fatalf("label with spaces should survive: %+v", cfg.Trackers)
	}
	if cfg.BatchSize != 250 {
		t.Fatalf("batch size mismatch: %d", cfg.BatchSize)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	content := "data-dir: ./logs\ntimezone: UTC\ntrack:\n  - \"cards:limit:card_id:Card Limit Set\"\ndebounce: 2s\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadWatch(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "./logs" || cfg.Timezone != "UTC" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if len(cfg.Trackers) != 1 || cfg.Trackers[0].Label != "Card Limit Set" {
		t.Fatalf("trackers mismatch: %+v", cfg.Trackers)
	}
	if cfg.Debounce != 2*time.Second {
		t.Fatalf("debounce mismatch: %s", cfg.Debounce)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatalf("expected error for explicit missing config")
	}
}

func TestParseTrackers(t *testing.T) {
	specs, err := ParseTrackers([]string{"cards:credit_used:card_id:Label: with colon"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if specs[0].Label != "Label: with colon" {
		t.Fatalf("label mismatch: %q", specs[0].Label)
	}

	if _, err := ParseTrackers([]string{"cards:credit_used"}); err == nil {
		t.Fatalf("expected error for short spec")
	}
	if _, err := ParseTrackers([]string{"cards::card_id:x"}); err == nil {
		t.Fatalf("expected error for empty field")
	}
}
