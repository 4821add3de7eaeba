package store

import "time"

// Recorder receives store events for metrics.
type Recorder interface {
	QueryCache(store string, hit bool)
	Fetch(store string, d time.Duration, err error)
	Rollback(store string, op Op)
	Bulk(store string, op Op, status BulkStatus)
}

type nopRecorder struct{}

func (nopRecorder) QueryCache(string, bool)            {}
func (nopRecorder) Fetch(string, time.Duration, error) {}
func (nopRecorder) Rollback(string, Op)                {}
func (nopRecorder) Bulk(string, Op, BulkStatus)        {}
