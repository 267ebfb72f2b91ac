package database

import (
	"database/sql"
	"sync/atomic"
	"time"
)

// Metrics counts queries by kind and flags slow ones.
type Metrics struct {
	queryCount     int64
	queryDuration  int64 // nanoseconds
	errorCount     int64
	slowQueryCount int64

	execCount     int64
	selectCount   int64
	queryRowCount int64
	txCount       int64

	slowQueryThreshold time.Duration
}

// MetricsSnapshot provides a point-in-time view of metrics
type MetricsSnapshot struct {
	QueryCount       int64         `json:"query_count"`
	ErrorCount       int64         `json:"error_count"`
	SlowQueryCount   int64         `json:"slow_query_count"`
	ExecCount        int64         `json:"exec_count"`
	SelectCount      int64         `json:"select_count"`
	QueryRowCount    int64         `json:"query_row_count"`
	TxCount          int64         `json:"tx_count"`
	AvgQueryDuration time.Duration `json:"avg_query_duration"`
	DBStats          sql.DBStats   `json:"db_stats"`
	Timestamp        time.Time     `json:"timestamp"`
}

// NewMetrics creates a collector. A non-positive threshold defaults to 100ms.
func NewMetrics(slowQueryThreshold time.Duration) *Metrics {
	if slowQueryThreshold <= 0 {
		slowQueryThreshold = 100 * time.Millisecond
	}
	return &Metrics{slowQueryThreshold: slowQueryThreshold}
}

// RecordQuery records one query and reports whether it was slow.
func (m *Metrics) RecordQuery(queryType string, duration time.Duration, err error) bool {
	atomic.AddInt64(&m.queryCount, 1)
	atomic.AddInt64(&m.queryDuration, int64(duration))

	if err != nil && err != sql.ErrNoRows {
		atomic.AddInt64(&m.errorCount, 1)
	}

	switch queryType {
	case "exec":
		atomic.AddInt64(&m.execCount, 1)
	case "query":
		atomic.AddInt64(&m.selectCount, 1)
	case "query_row":
		atomic.AddInt64(&m.queryRowCount, 1)
	case "begin_tx":
		atomic.AddInt64(&m.txCount, 1)
	}

	if duration > m.slowQueryThreshold {
		atomic.AddInt64(&m.slowQueryCount, 1)
		return true
	}
	return false
}

// Snapshot returns current counters.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	queryCount := atomic.LoadInt64(&m.queryCount)
	totalDuration := atomic.LoadInt64(&m.queryDuration)

	var avg time.Duration
	if queryCount > 0 {
		avg = time.Duration(totalDuration / queryCount)
	}

	return &MetricsSnapshot{
		QueryCount:       queryCount,
		ErrorCount:       atomic.LoadInt64(&m.errorCount),
		SlowQueryCount:   atomic.LoadInt64(&m.slowQueryCount),
		ExecCount:        atomic.LoadInt64(&m.execCount),
		SelectCount:      atomic.LoadInt64(&m.selectCount),
		QueryRowCount:    atomic.LoadInt64(&m.queryRowCount),
		TxCount:          atomic.LoadInt64(&m.txCount),
		AvgQueryDuration: avg,
		Timestamp:        time.Now(),
	}
}

// Reset zeroes all counters.
func (m *Metrics) Reset() {
	for _, p := range []*int64{
		&m.queryCount, &m.queryDuration, &m.errorCount, &m.slowQueryCount,
		&m.execCount, &m.selectCount, &m.queryRowCount, &m.txCount,
	} {
		atomic.StoreInt64(p, 0)
	}
}
