package core

import "time"

// timedMutex is a mutual-exclusion lock with bounded-wait acquisition. The
// ownership token lives in a one-slot channel, so acquisition composes with
// timeouts the same way every other blocking primitive here does.
type timedMutex struct {
	ch chan struct{}
}

func newTimedMutex() timedMutex {
	return timedMutex{ch: make(chan struct{}, 1)}
}

// Acquire takes the lock, blocking up to wait. It returns ErrTimeout when
// the lock stays held past the wait duration.
func (m *timedMutex) Acquire(wait time.Duration) error {
	if wait == NoWait {
		select {
		case m.ch <- struct{}{}:
			return nil
		default:
			return ErrTimeout
		}
	}

	timeout, cancel := waitTimeout(wait)
	defer cancel()

	select {
	case m.ch <- struct{}{}:
		return nil
	case <-timeout:
		return ErrTimeout
	}
}

// Release frees the lock. Releasing an unheld lock is a caller bug and
// panics rather than corrupting the ownership token.
func (m *timedMutex) Release() {
	select {
	case <-m.ch:
	default:
		panic("taskmsg: release of unheld mutex")
	}
}
