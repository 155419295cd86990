package core

import (
	"errors"
	"time"
)

// Wait durations accepted by every blocking operation. NoWait polls and
// returns immediately; Forever (any negative duration) blocks until the
// operation completes or the resource is closed.
const (
	NoWait  time.Duration = 0
	Forever time.Duration = -1
)

// Failure sentinels shared by the blocking primitives. Timeouts and closure
// are ordinary return values, never panics; callers decide whether to retry.
var (
	// ErrTimeout is returned when a bounded wait expires.
	ErrTimeout = errors.New("wait timed out")

	// ErrClosed is returned when the resource was closed while waiting, or
	// was already closed on entry.
	ErrClosed = errors.New("channel closed")
)

// gate wakes every goroutine blocked on a condition when the condition may
// have changed. Waiters grab the current channel under the owner's lock,
// release the lock, then select on the channel; mutations close the channel
// and install a fresh one, so wakeups broadcast and are never lost.
//
// This is the scheduler signal/stop select generalized to many waiters on
// both sides of a bounded queue.
type gate struct {
	ch chan struct{}
}

func newGate() gate {
	return gate{ch: make(chan struct{})}
}

// wait returns the channel to select on. Call under the owner's lock.
func (g *gate) wait() <-chan struct{} {
	return g.ch
}

// pulse wakes all current waiters. Call under the owner's lock.
func (g *gate) pulse() {
	close(g.ch)
	g.ch = make(chan struct{})
}

// waitTimeout builds the timeout side of a blocking select. The returned
// channel is nil for Forever, so the timeout case never fires; the stop
// function releases the timer and must be called when the wait finishes.
func waitTimeout(wait time.Duration) (<-chan time.Time, func()) {
	if wait < 0 {
		return nil, func() {}
	}
	t := time.NewTimer(wait)
	return t.C, func() { t.Stop() }
}
