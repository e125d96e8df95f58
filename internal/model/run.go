package model

import "time"

// RunSummary describes one replay run for persistence.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Events       int       `json:"events"`
	Records      int       `json:"records"`
	Transactions int       `json:"transactions"`
	Diagnostics  int       `json:"diagnostics"`
}
