package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ledgerScope/internal/config"
	"ledgerScope/internal/eventlog"
	"ledgerScope/internal/metrics"
	"ledgerScope/internal/model"
	"ledgerScope/internal/replay"
	"ledgerScope/internal/report"
)

func runRebuild(cmd *cobra.Command, _ []string) error {
	return runCommand(cmd, report.Sections{Tables: true})
}

func runTransactions(cmd *cobra.Command, _ []string) error {
	return runCommand(cmd, report.Sections{Transactions: true})
}

func runReport(cmd *cobra.Command, _ []string) error {
	return runCommand(cmd, report.AllSections)
}

func runCommand(cmd *cobra.Command, sections report.Sections) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runOnce(ctx, cfg, sections, cmd.OutOrStdout(), logger)
}

// outcome is everything one replay run produced.
type outcome struct {
	runID        string
	startedAt    time.Time
	finishedAt   time.Time
	entities     []string
	events       int
	tables       map[string]model.Table
	transactions []model.Transaction
	diagnostics  []model.Diagnostic
}

func (o *outcome) records() int {
	total := 0
	for _, table := range o.tables {
		total += len(table)
	}
	return total
}

func (o *outcome) summary() model.RunSummary {
	return model.RunSummary{
		RunID:        o.runID,
		StartedAt:    o.startedAt,
		FinishedAt:   o.finishedAt,
		Events:       o.events,
		Records:      o.records(),
		Transactions: len(o.transactions),
		Diagnostics:  len(o.diagnostics),
	}
}

func runOnce(ctx context.Context, cfg config.Config, sections report.Sections, w io.Writer, logger *zap.Logger) error {
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	loc, err := report.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}

	logger.Info("replay start",
		zap.String("data_dir", cfg.DataDir),
		zap.Strings("entities", cfg.Entities),
		zap.Int("trackers", len(cfg.Trackers)),
		zap.String("order", cfg.Order),
		zap.Bool("strict_ops", cfg.StrictOps),
	)

	out, err := replayStreams(ctx, cfg, logger)
	if err != nil {
		return err
	}

	rep := report.Build(report.Input{
		RunID:        out.runID,
		Entities:     out.entities,
		Tables:       out.tables,
		Transactions: out.transactions,
		Diagnostics:  out.diagnostics,
		Location:     loc,
		Sections:     sections,
	})
	if err := report.Write(w, rep, format); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if err := persist(ctx, cfg, sections, out, logger); err != nil {
		return err
	}

	if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}

	logger.Info("replay complete",
		zap.String("run_id", out.runID),
		zap.Int("events", out.events),
		zap.Int("records", out.records()),
		zap.Int("transactions", len(out.transactions)),
		zap.Int("diagnostics", len(out.diagnostics)),
		zap.Duration("elapsed", out.finishedAt.Sub(out.startedAt)),
	)
	return nil
}

func replayStreams(ctx context.Context, cfg config.Config, logger *zap.Logger) (*outcome, error) {
	order, err := replay.ParseOrder(cfg.Order)
	if err != nil {
		return nil, err
	}

	out := &outcome{
		runID:     uuid.NewString(),
		startedAt: time.Now().UTC(),
		entities:  cfg.Entities,
		tables:    make(map[string]model.Table, len(cfg.Entities)),
	}

	streams, err := eventlog.LoadStreams(cfg.DataDir, cfg.Entities)
	if err != nil {
		return nil, err
	}

	byName := make(map[string][]model.Event, len(streams))
	for _, stream := range streams {
		byName[stream.Name] = stream.Events
		out.events += len(stream.Events)
		out.diagnostics = append(out.diagnostics, stream.Diagnostics...)
	}

	results, err := replay.ReconstructAll(ctx, byName, replay.Options{Order: order, StrictOps: cfg.StrictOps})
	if err != nil {
		return nil, err
	}

	for _, name := range cfg.Entities {
		res := results[name]
		out.tables[name] = res.Table
		out.diagnostics = append(out.diagnostics, res.Diagnostics...)

		metrics.EventsReplayed.WithLabelValues(name).Add(float64(res.Stats.Events))
		metrics.RecordsMaterialized.WithLabelValues(name).Set(float64(len(res.Table)))
		logger.Debug("stream reconstructed",
			zap.String("entity", name),
			zap.Int("events", res.Stats.Events),
			zap.Int("records", len(res.Table)),
			zap.Int("creates", res.Stats.Creates),
			zap.Int("replaced", res.Stats.Replaced),
			zap.Int("updates", res.Stats.Updates),
			zap.Int("orphaned", res.Stats.Orphaned),
			zap.Int("ignored", res.Stats.Ignored),
		)
	}

	txs, err := extractAll(cfg, byName)
	if err != nil {
		return nil, err
	}
	out.transactions = txs

	for _, diag := range out.diagnostics {
		metrics.Diagnostics.WithLabelValues(string(diag.Kind)).Inc()
		logger.Warn(diag.Message,
			zap.String("kind", string(diag.Kind)),
			zap.String("entity", diag.Entity),
			zap.String("entity_id", diag.EntityID),
			zap.String("source", diag.Source),
		)
	}

	out.finishedAt = time.Now().UTC()
	metrics.ReplayDuration.Observe(float64(out.finishedAt.Sub(out.startedAt).Milliseconds()))
	return out, nil
}

// extractAll runs every tracker, building each stream's index once.
func extractAll(cfg config.Config, byName map[string][]model.Event) ([]model.Transaction, error) {
	indexes := make(map[string]*replay.Index)
	var txs []model.Transaction

	for _, tr := range cfg.Trackers {
		events, ok := byName[tr.Entity]
		if !ok {
			return nil, fmt.Errorf("tracker %q: entity %s is not a configured stream", tr.Label, tr.Entity)
		}

		idx := indexes[tr.Entity]
		if idx == nil {
			var err error
			idx, err = replay.NewIndex(tr.Entity, events)
			if err != nil {
				return nil, fmt.Errorf("index %s: %w", tr.Entity, err)
			}
			indexes[tr.Entity] = idx
		}

		found := idx.Extract(replay.Tracker{
			Field:   tr.Field,
			IDField: tr.IDField,
			Label:   tr.Label,
		})
		metrics.TransactionsExtracted.WithLabelValues(tr.Label).Add(float64(len(found)))
		txs = append(txs, found...)
	}

	return txs, nil
}
