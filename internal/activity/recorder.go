// Package activity records agent actions to a feed without ever
// blocking or failing the chat path. Writes are fire-and-forget: a full
// queue drops the record and a sink failure is logged, not returned.
package activity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clawsync/clawsync/internal/observability"
	"github.com/clawsync/clawsync/pkg/models"
)

const defaultQueueSize = 256

// Sink receives activity records for persistence.
type Sink interface {
	WriteActivity(ctx context.Context, rec *models.ActivityRecord) error
}

// Recorder buffers activity records and writes them to a Sink from a
// background goroutine.
type Recorder struct {
	sink   Sink
	logger *observability.Logger
	queue  chan *models.ActivityRecord

	// mu guards closed so Record never sends on a closed queue; a
	// record arriving during shutdown is dropped like any other.
	mu     sync.RWMutex
	closed bool

	closeOnce sync.Once
	done      chan struct{}
}

// NewRecorder starts a recorder draining into sink.
func NewRecorder(sink Sink, logger *observability.Logger) *Recorder {
	r := &Recorder{
		sink:   sink,
		logger: logger,
		queue:  make(chan *models.ActivityRecord, defaultQueueSize),
		done:   make(chan struct{}),
	}
	go r.drain()
	return r
}

// Record enqueues an activity record. It never blocks; when the queue
// is full the record is dropped.
func (r *Recorder) Record(actionType, summary string, visibility models.ActivityVisibility, channel models.ChannelType) {
	rec := &models.ActivityRecord{
		ID:         uuid.NewString(),
		ActionType: actionType,
		Summary:    summary,
		Visibility: visibility,
		Channel:    channel,
		CreatedAt:  time.Now(),
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- rec:
	default:
		r.logger.Warn(context.Background(), "activity queue full, dropping record",
			"action_type", actionType)
	}
}

// Close stops the recorder after flushing queued records. Records
// offered after Close are dropped.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.queue)
		<-r.done
	})
}

func (r *Recorder) drain() {
	defer close(r.done)
	for rec := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.sink.WriteActivity(ctx, rec); err != nil {
			r.logger.Warn(ctx, "activity write failed",
				"action_type", rec.ActionType, "error", err)
		}
		cancel()
	}
}
