package core

import (
	"sync"
	"time"
)

// DefaultNotifyCapacity is the notification queue depth used when a task is
// constructed without an explicit capacity.
const DefaultNotifyCapacity = 8

// QueuePosition selects where Send inserts a notification.
type QueuePosition int

const (
	// Back appends behind everything already queued (normal delivery).
	Back QueuePosition = iota

	// Front inserts ahead of everything already queued, letting urgent
	// signals preempt routine ones. Two front inserts keep their relative
	// order reversed (the later one is nearer the head), matching a
	// send-to-front queue primitive.
	Front
)

// NotifyQueue is a bounded FIFO of Notification records owned by one task.
// Any goroutine may send into it; the owning task receives from it. Order is
// strictly FIFO except that front inserts jump ahead of queued back inserts.
//
// Senders block up to their wait duration when the queue is full, receivers
// when it is empty. Close releases every blocked goroutine with ErrClosed;
// notifications still queued at that point remain receivable.
type NotifyQueue struct {
	mu       sync.Mutex
	items    []Notification
	capacity int
	closed   bool

	recvWaiting int // receivers currently blocked in Receive

	itemGate  gate // pulsed when an item arrives or the queue closes
	spaceGate gate // pulsed when a slot frees or the queue closes

	dropped uint64 // interrupt-context sends refused on a full queue
}

// NewNotifyQueue creates a queue holding at most capacity notifications.
// A capacity below 1 falls back to DefaultNotifyCapacity.
func NewNotifyQueue(capacity int) *NotifyQueue {
	if capacity < 1 {
		capacity = DefaultNotifyCapacity
	}
	return &NotifyQueue{
		items:     make([]Notification, 0, capacity),
		capacity:  capacity,
		itemGate:  newGate(),
		spaceGate: newGate(),
	}
}

// Send enqueues n at the given position, blocking up to wait for a free
// slot. It returns ErrTimeout when the queue stays full past the wait and
// ErrClosed when the queue is closed before the slot is taken.
func (q *NotifyQueue) Send(n Notification, wait time.Duration, pos QueuePosition) error {
	timeout, cancel := waitTimeout(wait)
	defer cancel()

	q.mu.Lock()
	for {
		if q.closed {
			q.mu.Unlock()
			return ErrClosed
		}
		if len(q.items) < q.capacity {
			q.insertLocked(n, pos)
			q.itemGate.pulse()
			q.mu.Unlock()
			return nil
		}
		if wait == NoWait {
			q.mu.Unlock()
			return ErrTimeout
		}

		ready := q.spaceGate.wait()
		q.mu.Unlock()
		select {
		case <-ready:
		case <-timeout:
			return ErrTimeout
		}
		q.mu.Lock()
	}
}

// SendFromInterrupt enqueues n at the back without ever blocking. It is the
// only send allowed from contexts that must not suspend. delivered reports
// whether the notification was queued; woke reports whether a receiver was
// blocked and has been released, so the caller can yield the processor
// (runtime.Gosched) the way an interrupt handler requests a reschedule.
func (q *NotifyQueue) SendFromInterrupt(n Notification) (delivered, woke bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.items) >= q.capacity {
		q.dropped++
		return false, false
	}

	q.items = append(q.items, n)
	woke = q.recvWaiting > 0
	q.itemGate.pulse()
	return true, woke
}

// Receive dequeues the oldest notification, blocking up to wait for one to
// arrive. On timeout it returns the zero Notification sentinel with
// ErrTimeout; wait == NoWait polls and returns immediately. After Close,
// queued notifications drain normally before ErrClosed is reported.
func (q *NotifyQueue) Receive(wait time.Duration) (Notification, error) {
	timeout, cancel := waitTimeout(wait)
	defer cancel()

	q.mu.Lock()
	for {
		if len(q.items) > 0 {
			n := q.items[0]
			copy(q.items, q.items[1:])
			q.items = q.items[:len(q.items)-1]
			q.spaceGate.pulse()
			q.mu.Unlock()
			return n, nil
		}
		if q.closed {
			q.mu.Unlock()
			return Notification{}, ErrClosed
		}
		if wait == NoWait {
			q.mu.Unlock()
			return Notification{}, ErrTimeout
		}

		q.recvWaiting++
		ready := q.itemGate.wait()
		q.mu.Unlock()
		select {
		case <-ready:
		case <-timeout:
			q.mu.Lock()
			q.recvWaiting--
			q.mu.Unlock()
			return Notification{}, ErrTimeout
		}
		q.mu.Lock()
		q.recvWaiting--
	}
}

// Close marks the queue closed and releases every blocked sender and
// receiver. Closing twice is a no-op.
func (q *NotifyQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.itemGate.pulse()
	q.spaceGate.pulse()
}

// Len returns the number of queued notifications.
func (q *NotifyQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *NotifyQueue) Cap() int {
	return q.capacity
}

// Stats returns a point-in-time snapshot for observability.
func (q *NotifyQueue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Depth:    len(q.items),
		Capacity: q.capacity,
		Dropped:  q.dropped,
	}
}

func (q *NotifyQueue) insertLocked(n Notification, pos QueuePosition) {
	if pos == Front && len(q.items) > 0 {
		q.items = append(q.items, Notification{})
		copy(q.items[1:], q.items)
		q.items[0] = n
		return
	}
	q.items = append(q.items, n)
}
