package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Ingest results.
const (
	ResultAdded     = "added"
	ResultUpdated   = "updated"
	ResultUnchanged = "unchanged"
	ResultSkipped   = "skipped"
)

// Metrics groups the archive counters. A nil *Metrics records nothing.
type Metrics struct {
	articles  *prometheus.CounterVec
	evicted   prometheus.Counter
	purged    prometheus.Counter
	commits   *prometheus.CounterVec
	rollbacks prometheus.Counter
	jobs      *prometheus.CounterVec
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		articles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedvault",
			Name:      "articles_ingested_total",
			Help:      "Incoming items by ingestion result.",
		}, []string{"result"}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feedvault",
			Name:      "articles_evicted_total",
			Help:      "Articles soft-deleted by the retention policy.",
		}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feedvault",
			Name:      "articles_purged_total",
			Help:      "Tombstoned articles removed from the archive.",
		}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedvault",
			Name:      "commits_total",
			Help:      "Archive commits by outcome.",
		}, []string{"outcome"}),
		rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feedvault",
			Name:      "rollbacks_total",
			Help:      "Archive rollbacks.",
		}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedvault",
			Name:      "queue_jobs_total",
			Help:      "Ingestion jobs processed by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.articles, m.evicted, m.purged, m.commits, m.rollbacks, m.jobs)
	}
	return m
}

func (m *Metrics) Ingested(result string) {
	if m == nil {
		return
	}
	m.articles.WithLabelValues(result).Inc()
}

func (m *Metrics) Evicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evicted.Add(float64(n))
}

func (m *Metrics) Purged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.purged.Add(float64(n))
}

func (m *Metrics) Committed(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.commits.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RolledBack() {
	if m == nil {
		return
	}
	m.rollbacks.Inc()
}

func (m *Metrics) Job(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.jobs.WithLabelValues(outcome).Inc()
}
