// Package prom exports ingestion metrics to Prometheus.
//
//	c := prom.NewCollector(prometheus.DefaultRegisterer)
//	db := vecingest.Open(vecingest.WithMetricsCollector(c))
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/vecingest/status"
)

// Collector implements vecingest.MetricsCollector with Prometheus metrics.
type Collector struct {
	inserts       *prometheus.CounterVec
	rows          prometheus.Counter
	insertLatency *prometheus.HistogramVec
	commitBytes   prometheus.Counter
	commitLatency prometheus.Histogram
	ddl           *prometheus.CounterVec
}

// NewCollector creates the metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		inserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vecingest_inserts_total",
			Help: "Insert calls by result code",
		}, []string{"code"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vecingest_rows_committed_total",
			Help: "Rows committed by successful inserts",
		}),
		insertLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vecingest_insert_latency_seconds",
			Help:    "Latency of insert calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		commitBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vecingest_commit_bytes_total",
			Help: "Bytes of sealed column data handed to the sink",
		}),
		commitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vecingest_commit_latency_seconds",
			Help:    "Latency of sink commits",
			Buckets: prometheus.DefBuckets,
		}),
		ddl: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vecingest_ddl_total",
			Help: "Table and index definition changes",
		}, []string{"op", "status"}),
	}
	if reg != nil {
		reg.MustRegister(c.inserts, c.rows, c.insertLatency, c.commitBytes, c.commitLatency, c.ddl)
	}
	return c
}

func statusLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

// RecordInsert records one insert call.
func (c *Collector) RecordInsert(rows int, code status.Code, d time.Duration) {
	c.inserts.WithLabelValues(code.String()).Inc()
	c.insertLatency.WithLabelValues(statusLabel(code == status.OK)).Observe(d.Seconds())
	if code == status.OK {
		c.rows.Add(float64(rows))
	}
}

// RecordCommit records one sink commit.
func (c *Collector) RecordCommit(bytes int, d time.Duration) {
	c.commitBytes.Add(float64(bytes))
	c.commitLatency.Observe(d.Seconds())
}

// RecordDDL records a table or index definition change.
func (c *Collector) RecordDDL(op string, err error) {
	c.ddl.WithLabelValues(op, statusLabel(err == nil)).Inc()
}
