package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ledgerScope/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "ledger",
		Short:        "Rebuild account, card and savings state from event logs",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	rebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Reconstruct the current record tables",
		RunE:  runRebuild,
	}
	addReplayFlags(rebuildCmd.Flags())
	root.AddCommand(rebuildCmd)

	transactionsCmd := &cobra.Command{
		Use:   "transactions",
		Short: "Extract tracked field changes as a sorted transaction timeline",
		RunE:  runTransactions,
	}
	addReplayFlags(transactionsCmd.Flags())
	root.AddCommand(transactionsCmd)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Print tables, the denormalized view and the transaction timeline",
		RunE:  runReport,
	}
	addReplayFlags(reportCmd.Flags())
	root.AddCommand(reportCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the report whenever an event log directory changes",
		RunE:  runWatch,
	}
	addReplayFlags(watchCmd.Flags())
	watchCmd.Flags().Duration("debounce", 500*time.Millisecond, "quiet period before re-running")
	root.AddCommand(watchCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addReplayFlags(flags *pflag.FlagSet) {
	flags.String("data-dir", "data", "root directory holding one log directory per entity")
	flags.StringSlice("entities", []string{"accounts", "cards", "savings_accounts"}, "entity streams to read (comma-separated)")
	flags.StringSlice("track", config.DefaultTrackers, "tracked fields as entity:field:id_field:label")
	flags.String("order", "ts", "event fold order (ts, input)")
	flags.Bool("strict-ops", false, "fail on unrecognized ops instead of reporting them")
	flags.String("timezone", "Asia/Jakarta", "timezone for transaction timestamps")
	flags.String("format", "table", "output format (table, json, yaml)")
	flags.String("out", "", "append records and transactions to this JSONL file")
	flags.String("pg-dsn", "", "Postgres DSN to persist results")
	flags.String("sqlite", "", "SQLite database path to persist results")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile")
	flags.Int("batch-size", 1000, "statements per database round trip")
	flags.Int("max-retries", 5, "maximum connect retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
