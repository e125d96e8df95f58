package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ledgerScope/internal/model"
)

// Line kinds written by JSONLSink.
const (
	LineRecord      = "record"
	LineTransaction = "transaction"
	LineRun         = "run"
)

// Line is one JSONL entry. Exactly one payload field is set.
type Line struct {
	Kind        string             `json:"kind"`
	Entity      string             `json:"entity,omitempty"`
	RunID       string             `json:"run_id,omitempty"`
	Record      model.Record       `json:"record,omitempty"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
	Run         *model.RunSummary  `json:"run,omitempty"`
}

// JSONLSink appends replay output to a JSONL file.
type JSONLSink struct {
	path string
	mu   sync.Mutex
}

func NewJSONLSink(path string) *JSONLSink {
	return &JSONLSink{path: path}
}

// PutRecords appends one line per record, in entity key order.
func (s *JSONLSink) PutRecords(_ context.Context, entity string, table model.Table) error {
	lines := make([]Line, 0, len(table))
	for _, key := range table.SortedKeys() {
		lines = append(lines, Line{Kind: LineRecord, Entity: entity, Record: table[key]})
	}
	return s.writeLines(lines)
}

// PutTransactions appends one line per transaction.
func (s *JSONLSink) PutTransactions(_ context.Context, runID string, txs []model.Transaction) error {
	lines := make([]Line, 0, len(txs))
	for i := range txs {
		lines = append(lines, Line{Kind: LineTransaction, Entity: txs[i].Entity, RunID: runID, Transaction: &txs[i]})
	}
	return s.writeLines(lines)
}

// PutRun appends the run summary.
func (s *JSONLSink) PutRun(_ context.Context, run model.RunSummary) error {
	return s.writeLines([]Line{{Kind: LineRun, RunID: run.RunID, Run: &run}})
}

func (s *JSONLSink) writeLines(lines []Line) error {
	if len(lines) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, entry := range lines {
		line, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal %s line: %w", entry.Kind, err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write %s line: %w", entry.Kind, err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
