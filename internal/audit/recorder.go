// Package audit provides the fire-and-forget recorder that sits between the
// request gate and the append-only audit store. A failed or slow audit write
// must never block or fail the operation that triggered it.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/municipia/municipia/internal/domain"
	"github.com/municipia/municipia/internal/obs"
)

// Sink persists audit events. *postgres.AuditRepo satisfies it.
type Sink interface {
	Record(ctx context.Context, e *domain.AuditEvent) error
}

const writeTimeout = 5 * time.Second

// Recorder buffers events on a channel and drains them on a background
// goroutine. Record never blocks: when the buffer is full the event is
// dropped and counted. A nil *Recorder is a no-op.
type Recorder struct {
	sink   Sink
	events chan *domain.AuditEvent
	done   chan struct{}
}

// NewRecorder starts the drain goroutine. buffer bounds how many events may
// be in flight before drops begin.
func NewRecorder(sink Sink, buffer int) *Recorder {
	if buffer < 1 {
		buffer = 256
	}

	r := &Recorder{
		sink:   sink,
		events: make(chan *domain.AuditEvent, buffer),
		done:   make(chan struct{}),
	}

	go r.drain()

	return r
}

// Record enqueues an event. Missing ID/CreatedAt are filled in. Never blocks,
// never returns an error.
func (r *Recorder) Record(e *domain.AuditEvent) {
	if r == nil || e == nil {
		return
	}

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	select {
	case r.events <- e:
	default:
		obs.AuditDropped()
		log.Warn().Str("action", e.Action).Msg("audit: buffer full, event dropped")
	}
}

func (r *Recorder) drain() {
	defer close(r.done)

	for e := range r.events {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := r.sink.Record(ctx, e); err != nil {
			// Swallowed: audit failures never propagate.
			log.Warn().Err(err).Str("action", e.Action).Msg("audit: write failed")
		}
		cancel()
	}
}

// Close stops intake and waits for buffered events to flush, bounded by ctx.
func (r *Recorder) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}

	close(r.events)

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
