package merge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tailmerge_index_process_duration_seconds",
		Help:    "Time spent applying one batch to a merge index",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
	})

	processedLines = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tailmerge_index_lines_processed_total",
		Help: "Timestamped lines inserted into merge indices",
	})

	// Labels: "appended", "invalidated", "reset"
	emittedChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tailmerge_index_changes_total",
		Help: "Changes emitted by merge indices by kind",
	}, []string{"kind"})

	// Labels: "invalid_range", "unknown_source", "inconsistent_append"
	rejectedBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tailmerge_index_rejected_batches_total",
		Help: "Batches rejected by merge indices by reason",
	}, []string{"reason"})
)
