// Package usage persists append-only AI usage records and answers aggregate
// queries over them. Recording is best-effort and asynchronous: a failed or
// dropped write never affects the generation call that produced it.
package usage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rohit-patil-code/AI-Blog-Editor/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// recorderBuffer is the enqueue buffer size; records beyond it are dropped.
const recorderBuffer = 256

// insertTimeout bounds each ledger insert.
const insertTimeout = 5 * time.Second

// Record describes one completed generation call.
type Record struct {
	UserID      uint64
	PostID      *uint64
	Feature     string
	Provider    string
	Model       string
	TokensUsed  int64
	Options     map[string]any // Kind-specific request options snapshot.
	RequestedAt time.Time
}

// Recorder writes records to the ledger from a background worker.
type Recorder struct {
	db      *gorm.DB
	queue   chan Record
	done    chan struct{}
	wg      sync.WaitGroup
	stopped sync.Once
}

// NewRecorder constructs and starts a Recorder.
func NewRecorder(db *gorm.DB) *Recorder {
	r := &Recorder{
		db:    db,
		queue: make(chan Record, recorderBuffer),
		done:  make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Enqueue hands a record to the background worker. It never blocks: when
// the buffer is full the record is dropped and logged.
func (r *Recorder) Enqueue(rec Record) {
	if r == nil {
		return
	}
	select {
	case r.queue <- rec:
	default:
		log.WithFields(log.Fields{
			"user_id": rec.UserID,
			"feature": rec.Feature,
		}).Warn("usage recorder buffer full, dropping record")
	}
}

// Close drains pending records and stops the worker.
func (r *Recorder) Close() {
	r.stopped.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
}

// run consumes the queue until Close, then drains what remains.
func (r *Recorder) run() {
	defer r.wg.Done()
	for {
		select {
		case rec := <-r.queue:
			r.persist(rec)
		case <-r.done:
			for {
				select {
				case rec := <-r.queue:
					r.persist(rec)
				default:
					return
				}
			}
		}
	}
}

// persist inserts one ledger row. Failures are logged and swallowed.
func (r *Recorder) persist(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	var options datatypes.JSON
	if len(rec.Options) > 0 {
		if payload, errMarshal := json.Marshal(rec.Options); errMarshal == nil {
			options = datatypes.JSON(payload)
		}
	}

	row := models.AIUsage{
		UserID:      rec.UserID,
		PostID:      rec.PostID,
		Feature:     rec.Feature,
		Provider:    rec.Provider,
		Model:       rec.Model,
		TokensUsed:  rec.TokensUsed,
		Options:     options,
		RequestedAt: normalizeTime(rec.RequestedAt),
		CreatedAt:   time.Now().UTC(),
	}
	if errCreate := r.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).WithFields(log.Fields{
			"user_id": rec.UserID,
			"feature": rec.Feature,
		}).Warn("failed to persist usage record")
	}
}

// normalizeTime returns a UTC timestamp, defaulting to now if zero.
func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
