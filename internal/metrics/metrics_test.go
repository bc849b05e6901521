package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Ingested(ResultAdded)
	m.Ingested(ResultAdded)
	m.Ingested(ResultUnchanged)
	m.Committed(nil)
	m.Committed(errors.New("disk full"))
	m.Evicted(3)
	m.Evicted(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.articles.WithLabelValues(ResultAdded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.articles.WithLabelValues(ResultUnchanged)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commits.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commits.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.evicted))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Ingested(ResultAdded)
		m.Committed(nil)
		m.RolledBack()
		m.Job(nil)
		m.Evicted(1)
		m.Purged(1)
	})
}
