package metrics

import (
	"time"

	"github.com/dmitrijs2005/foodcrm/internal/client/store"
)

// Metrics satisfies store.Recorder.
var _ store.Recorder = (*Metrics)(nil)

func (m *Metrics) QueryCache(name string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.queryCache.WithLabelValues(name, result).Inc()
}

func (m *Metrics) Fetch(name string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.fetches.WithLabelValues(name, status).Observe(d.Seconds())
}

func (m *Metrics) Rollback(name string, op store.Op) {
	m.rollbacks.WithLabelValues(name, string(op)).Inc()
}

func (m *Metrics) Bulk(name string, op store.Op, status store.BulkStatus) {
	m.bulk.WithLabelValues(name, string(op), string(status)).Inc()
}
