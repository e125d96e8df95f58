package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ledgerScope/internal/config"
	"ledgerScope/internal/report"
	"ledgerScope/internal/storage"
	"ledgerScope/internal/storage/postgres"
	"ledgerScope/internal/storage/sqlite"
)

func openSinks(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Multi, func(), error) {
	var (
		sinks   storage.Multi
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJSONLSink(cfg.Out))
	}

	if cfg.SQLitePath != "" {
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		closers = append(closers, func() { store.Close() })
		if err := store.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, store)
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN, postgres.Options{
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			BatchSize:    cfg.BatchSize,
			OnRetry: func(attempt int, delay time.Duration, err error) {
				logger.Warn("postgres connect failed, retrying",
					zap.Int("attempt", attempt),
					zap.Int("max_retries", cfg.MaxRetries),
					zap.Duration("delay", delay),
					zap.Error(err),
				)
			},
		})
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, store)
	}

	return sinks, closeAll, nil
}

func persist(ctx context.Context, cfg config.Config, sections report.Sections, out *outcome, logger *zap.Logger) error {
	sinks, closeAll, err := openSinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeAll()
	if len(sinks) == 0 {
		return nil
	}

	if sections.Tables || sections.Joined {
		for _, name := range out.entities {
			if err := sinks.PutRecords(ctx, name, out.tables[name]); err != nil {
				return fmt.Errorf("store %s records: %w", name, err)
			}
		}
	}
	if sections.Transactions {
		if err := sinks.PutTransactions(ctx, out.runID, out.transactions); err != nil {
			return fmt.Errorf("store transactions: %w", err)
		}
	}
	if err := sinks.PutRun(ctx, out.summary()); err != nil {
		return fmt.Errorf("store run: %w", err)
	}

	logger.Info("results persisted",
		zap.String("run_id", out.runID),
		zap.Int("sinks", len(sinks)),
		zap.String("out", cfg.Out),
		zap.String("sqlite", cfg.SQLitePath),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)
	return nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
