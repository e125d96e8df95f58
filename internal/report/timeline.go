package report

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"ledgerScope/internal/model"
	"ledgerScope/internal/replay"
)

// DefaultTimezone is the zone transaction timestamps are shown in.
const DefaultTimezone = "Asia/Jakarta"

// Entry is a transaction with its timestamp converted to the report zone.
type Entry struct {
	Time         time.Time `json:"timestamp" yaml:"timestamp"`
	Kind         string    `json:"transaction_type" yaml:"transaction_type"`
	AssociatedID any       `json:"associated_id" yaml:"associated_id"`
	Value        any       `json:"value" yaml:"value"`
}

// LoadLocation resolves a zone name, defaulting to DefaultTimezone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// Timeline sorts transactions ascending by timestamp and converts epoch milliseconds into loc.
func Timeline(txs []model.Transaction, loc *time.Location) []Entry {
	if loc == nil {
		loc = time.UTC
	}

	sorted := make([]model.Transaction, len(txs))
	copy(sorted, txs)
	replay.SortTransactions(sorted)

	entries := make([]Entry, 0, len(sorted))
	for _, tx := range sorted {
		entries = append(entries, Entry{
			Time:         time.UnixMilli(tx.Timestamp).In(loc),
			Kind:         tx.Kind,
			AssociatedID: tx.AssociatedID,
			Value:        tx.Value,
		})
	}
	return entries
}
