package storage

import (
	"context"
	"errors"

	"ledgerScope/internal/model"
)

// Sink persists the output of a replay run.
type Sink interface {
	PutRecords(ctx context.Context, entity string, table model.Table) error
	PutTransactions(ctx context.Context, runID string, txs []model.Transaction) error
	PutRun(ctx context.Context, run model.RunSummary) error
}

// Multi fans every call out to each sink in order.
type Multi []Sink

func (m Multi) PutRecords(ctx context.Context, entity string, table model.Table) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.PutRecords(ctx, entity, table))
	}
	return errors.Join(errs...)
}

func (m Multi) PutTransactions(ctx context.Context, runID string, txs []model.Transaction) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.PutTransactions(ctx, runID, txs))
	}
	return errors.Join(errs...)
}

func (m Multi) PutRun(ctx context.Context, run model.RunSummary) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.PutRun(ctx, run))
	}
	return errors.Join(errs...)
}
