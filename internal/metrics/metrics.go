package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReplayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_events_replayed_total",
		Help: "Total number of events folded into record state, labelled by entity.",
	}, []string{"entity"})

	RecordsMaterialized = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ledger_records_materialized",
		Help: "Number of records in the latest reconstruction, labelled by entity.",
	}, []string{"entity"})

	Diagnostics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_diagnostics_total",
		Help: "Total number of non-fatal diagnostics, labelled by kind.",
	}, []string{"kind"})

	TransactionsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transactions_extracted_total",
		Help: "Total number of transactions extracted, labelled by transaction type.",
	}, []string{"kind"})

	ReplayDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_replay_duration_ms",
		Help:    "End-to-end replay latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
)

// WriteTextfile dumps the default registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
