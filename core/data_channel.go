package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoDataChannel is returned for data operations against a task that was
// built without a data channel.
var ErrNoDataChannel = errors.New("task has no data channel")

// DataChannel pairs a task's byte ring with the mutex that serializes
// producers against it. It is owned by exactly one task; other tasks write
// into it only through the send protocol below.
type DataChannel struct {
	ring  *ByteRing
	mutex timedMutex
	owner *Task
}

func newDataChannel(owner *Task, capacity int) *DataChannel {
	return &DataChannel{
		ring:  NewByteRing(capacity),
		mutex: newTimedMutex(),
		owner: owner,
	}
}

// send runs the producer-side protocol. Every step is ordered to keep the
// destination's ring items and "data available" notifications in lockstep:
//
//  1. Acquire the owner's mutex, bounded by wait. Timeout means nothing was
//     enqueued anywhere.
//  2. Commit the payload to the ring, bounded by wait. Failure releases the
//     mutex and returns without sending any notification: an orphan
//     notification with no payload behind it would desynchronize the
//     consumer's accounting.
//  3. With the payload committed, enqueue the notification with an
//     UNBOUNDED wait. The payload is already visible, so the matching
//     notification must eventually follow no matter how long the queue
//     stays full. If the destination can itself block forever on this
//     sender, this wait is a deadlock; that hazard is accepted and
//     documented rather than traded for an unsound ring rollback.
//  4. Release the mutex after the notification attempt.
//
// Because the mutex is held across steps 2 and 3, the order in which
// producers are granted the mutex is the order of both the ring items and
// the notifications, no matter how many producers race.
func (c *DataChannel) send(sender Identity, p []byte, wait time.Duration, withNotification bool, value uint16) error {
	owner := c.owner

	if err := c.mutex.Acquire(wait); err != nil {
		owner.logger.Warn("data send: mutex acquire timed out",
			F("task", owner.name),
			FIdentity("sender", sender))
		owner.metrics.RecordDataSendFailure(owner.name, "mutex timeout")
		return fmt.Errorf("acquire data mutex of %s: %w", owner.name, err)
	}

	if err := c.ring.Send(p, wait); err != nil {
		c.mutex.Release()
		owner.logger.Warn("data send: ring write failed",
			F("task", owner.name),
			FIdentity("sender", sender),
			F("bytes", len(p)),
			FErr(err))
		owner.metrics.RecordDataSendFailure(owner.name, "ring full")
		return fmt.Errorf("write %d bytes to ring of %s: %w", len(p), owner.name, err)
	}

	var notifyErr error
	if withNotification {
		notifyErr = owner.notify.Send(Notification{Sender: sender, Value: value}, Forever, Back)
	}
	c.mutex.Release()

	owner.metrics.RecordDataSent(owner.name, len(p))
	if notifyErr != nil {
		// Only queue closure can fail an unbounded send: the owner is
		// shutting down and the committed payload dies with it.
		owner.logger.Warn("data send: notification lost to closing task",
			F("task", owner.name),
			FIdentity("sender", sender))
		owner.metrics.RecordNotificationDropped(owner.name, "closed")
		return fmt.Errorf("notify %s after data commit: %w", owner.name, notifyErr)
	}
	if withNotification {
		owner.metrics.RecordNotificationSent(owner.name, false)
	}
	return nil
}

// receive hands out the oldest committed payload as a zero-copy slice.
// The consumer must pass it to release when done. No synchronization with
// the notification queue happens here: the contract is one receive per
// "data available" notification.
func (c *DataChannel) receive(wait time.Duration) ([]byte, error) {
	return c.ring.Receive(wait)
}

// release returns a received payload's arena span.
func (c *DataChannel) release(p []byte) error {
	return c.ring.Release(p)
}

func (c *DataChannel) close() {
	c.ring.Close()
}

// Stats returns a point-in-time snapshot of the underlying ring.
func (c *DataChannel) Stats() RingStats {
	return c.ring.Stats()
}
