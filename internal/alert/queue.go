package alert

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"main/pkg/exception"
)

// Kind identifies the alert event category.
type Kind uint8

const (
	_kind_beg Kind = iota
	KindConnectionUp
	KindConnectionFailed
	KindOrderAccepted
	KindOrderRejected
	KindProtectiveOrder
	KindSessionLogout
	_kind_end
)

func (k Kind) IsAvailable() bool {
	return k > _kind_beg && k < _kind_end
}

func (k Kind) String() string {
	switch k {
	case KindConnectionUp:
		return "connection_up"
	case KindConnectionFailed:
		return "connection_failed"
	case KindOrderAccepted:
		return "order_accepted"
	case KindOrderRejected:
		return "order_rejected"
	case KindProtectiveOrder:
		return "protective_order"
	case KindSessionLogout:
		return "session_logout"
	default:
		return "unknown"
	}
}

// Event is a plain key-value payload handed to alerting consumers.
// It carries no wire-format coupling.
type Event struct {
	Kind   Kind
	At     time.Time
	Fields map[string]string
}

// NewEvent builds an event stamped with the current time.
func NewEvent(kind Kind, fields map[string]string) Event {
	return Event{Kind: kind, At: time.Now(), Fields: fields}
}

// Queue is a bounded, non-blocking event queue between the trading core
// and alerting consumers. Publishing never blocks the submission path;
// overflow drops the event and reports it to the caller.
type Queue struct {
	ch      chan Event
	mu      sync.RWMutex
	closed  bool
	dropped uint64
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan Event, capacity)}
}

// TryPublish enqueues an event without blocking. The read lock keeps
// the send ordered against Close, so it never hits a closed channel.
func (q *Queue) TryPublish(e Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return exception.ErrAlertQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	default:
		atomic.AddUint64(&q.dropped, 1)
		return exception.ErrAlertQueueFull
	}
}

// Dropped returns how many events were discarded on overflow.
func (q *Queue) Dropped() uint64 {
	return atomic.LoadUint64(&q.dropped)
}

// Close stops the queue from accepting new events.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// Run consumes events until the context is done or the queue is closed.
func (q *Queue) Run(ctx context.Context, handler func(Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-q.ch:
			if !ok {
				return
			}
			handler(e)
		}
	}
}
