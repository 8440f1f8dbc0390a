package events

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is an event consumer exposing engine counters to Prometheus.
type Metrics struct {
	documentsIndexed prometheus.Counter
	documentsDeleted prometheus.Counter
	queriesCompleted *prometheus.CounterVec
	queriesFailed    *prometheus.CounterVec
	mergeConflicts   prometheus.Counter
	indexDuration    prometheus.Histogram
}

// NewMetrics builds and registers the collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		documentsIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kdd_documents_indexed_total",
			Help: "Documents successfully indexed.",
		}),
		documentsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kdd_documents_deleted_total",
			Help: "Documents removed from the index.",
		}),
		queriesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kdd_queries_completed_total",
			Help: "Queries completed, by strategy.",
		}, []string{"strategy"}),
		queriesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kdd_queries_failed_total",
			Help: "Queries failed, by error code.",
		}, []string{"code"}),
		mergeConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kdd_merge_conflicts_resolved_total",
			Help: "Node conflicts resolved during merges.",
		}),
		indexDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kdd_document_index_duration_seconds",
			Help:    "Per-document indexing duration.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.documentsIndexed, m.documentsDeleted,
			m.queriesCompleted, m.queriesFailed,
			m.mergeConflicts, m.indexDuration,
		)
	}
	return m
}

// OnEvent implements Consumer.
func (m *Metrics) OnEvent(e Event) {
	switch e.Type {
	case DocumentIndexed:
		m.documentsIndexed.Inc()
		m.indexDuration.Observe(e.Duration.Seconds())
	case DocumentDeleted:
		m.documentsDeleted.Inc()
	case QueryCompleted:
		m.queriesCompleted.WithLabelValues(e.Strategy).Inc()
	case QueryFailed:
		m.queriesFailed.WithLabelValues(e.ErrCode).Inc()
	case MergeCompleted:
		m.mergeConflicts.Add(float64(e.ConflictsResolved))
	}
}
