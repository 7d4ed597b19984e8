package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Observe(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveHarvest("browser", "settled", 12, 3*time.Second)
	m.ObserveHarvest("browser", "failed", 0, time.Second)
	m.ObserveExtract(40, map[string]int{"missing_price": 2, "invalid_href": 1}, 50*time.Millisecond)
	m.ObserveSink("csv", nil, time.Millisecond)
	m.ObserveSink("postgres", errors.New("refused"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HarvestsTotal.WithLabelValues("browser", "settled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HarvestsTotal.WithLabelValues("browser", "failed")))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.RecordsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GapsTotal.WithLabelValues("missing_price")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkWritesTotal.WithLabelValues("csv", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkWritesTotal.WithLabelValues("postgres", "error")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHarvest("http", "settled", 0, 0)
		m.ObserveExtract(1, nil, 0)
		m.ObserveSink("stdout", nil, 0)
	})
}
