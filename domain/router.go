package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/SamiFAHIM/go-taskmsg/core"
)

// =============================================================================
// Router: value-keyed notification dispatch
// =============================================================================

// Router dispatches received notifications to handlers keyed by value.
// Task bodies that juggle several notification meanings register one handler
// per value and hand their receive loop to Serve.
//
// Configure the router before serving; Handle and Fallback are not safe to
// call concurrently with Serve.
type Router struct {
	handlers map[uint16]func(core.Notification)
	fallback func(core.Notification)
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[uint16]func(core.Notification))}
}

// Handle registers fn for notifications carrying value. A later registration
// for the same value replaces the earlier one.
func (r *Router) Handle(value uint16, fn func(core.Notification)) *Router {
	r.handlers[value] = fn
	return r
}

// Fallback registers fn for values with no dedicated handler. Without a
// fallback, unmatched notifications are discarded.
func (r *Router) Fallback(fn func(core.Notification)) *Router {
	r.fallback = fn
	return r
}

// Serve receives and dispatches until rx fails, then returns the receive
// error. A task closed mid-serve surfaces as core.ErrClosed.
func (r *Router) Serve(rx NotifyReceiver) error {
	for {
		n, err := rx.ReceiveNotification(core.Forever)
		if err != nil {
			return err
		}
		r.dispatch(n)
	}
}

// ServeOnce receives at most one notification within wait and dispatches it.
func (r *Router) ServeOnce(rx NotifyReceiver, wait time.Duration) error {
	n, err := rx.ReceiveNotification(wait)
	if err != nil {
		return err
	}
	r.dispatch(n)
	return nil
}

func (r *Router) dispatch(n core.Notification) {
	if fn, ok := r.handlers[n.Value]; ok {
		fn(n)
		return
	}
	if r.fallback != nil {
		r.fallback(n)
	}
}

// =============================================================================
// Fan-out
// =============================================================================

// Broadcast sends value to every target, continuing past failures. The
// returned error joins one entry per failed target.
func Broadcast(s NotifySender, targets []core.Identity, value uint16, wait time.Duration) error {
	var errs []error
	for _, target := range targets {
		if err := s.SendNotificationTo(target, value, wait); err != nil {
			errs = append(errs, fmt.Errorf("broadcast to %s: %w", target, err))
		}
	}
	return errors.Join(errs...)
}
