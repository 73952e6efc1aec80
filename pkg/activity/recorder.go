package activity

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const insertTimeout = 5 * time.Second

// Recorder writes activity records to the store through a buffered channel
// consumed by a single background writer. Record is non-blocking: when the
// buffer is full the record is dropped and counted, never queued at the
// caller's expense. A failed write is logged and never surfaces to the
// operation that produced the record.
type Recorder struct {
	db      *sql.DB
	records chan Record
	done    chan struct{}
	dropped uint64
}

// NewRecorder creates a recorder and starts its writer. bufferSize bounds
// the number of in-flight records.
func NewRecorder(db *sql.DB, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	r := &Recorder{
		db:      db,
		records: make(chan Record, bufferSize),
		done:    make(chan struct{}),
	}
	go r.consume()
	return r
}

// Record enqueues a record without blocking. A zero OccurredAt is stamped
// with the current time.
func (r *Recorder) Record(rec Record) {
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}
	select {
	case r.records <- rec:
	default:
		atomic.AddUint64(&r.dropped, 1)
		logrus.WithFields(logrus.Fields{
			"action":      rec.Action,
			"entity_type": rec.EntityType,
		}).Warn("activity buffer full, record dropped")
	}
}

// Dropped returns the number of records dropped due to a full buffer.
func (r *Recorder) Dropped() uint64 {
	return atomic.LoadUint64(&r.dropped)
}

// Close stops accepting records, flushes the buffer, and waits for the
// writer to finish.
func (r *Recorder) Close() error {
	close(r.records)
	<-r.done
	return nil
}

func (r *Recorder) consume() {
	defer close(r.done)
	for rec := range r.records {
		r.insert(rec)
	}
}

func (r *Recorder) insert(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	query := `
		INSERT INTO activity_log (action, entity_type, entity_id, principal_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, rec.Action, rec.EntityType, rec.EntityID, rec.PrincipalID, rec.OccurredAt); err != nil {
		logrus.WithFields(logrus.Fields{
			"action":       rec.Action,
			"entity_type":  rec.EntityType,
			"entity_id":    rec.EntityID,
			"principal_id": rec.PrincipalID,
		}).WithError(err).Warn("failed to write activity record")
	}
}
