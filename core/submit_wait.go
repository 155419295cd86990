package core

import (
	"errors"
	"fmt"
	"time"
)

// Decoder converts a routed result payload into a typed value. The payload
// slice aliases the receiving task's ring and is released right after the
// decoder returns, so implementations must copy anything they keep.
type Decoder[T any] func(p []byte) (T, error)

// RawBytes is the identity decoder: it copies the routed payload out of the
// ring. A nil payload (notification-only completion) decodes to nil.
func RawBytes(p []byte) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return append([]byte(nil), p...), nil
}

// SubmitAndCollect submits fn to d on behalf of self and blocks until the
// routed result comes back, decoding it with dec. The calling task dedicates
// itself to the round trip: notifications that arrive in the meantime and do
// not match the completion notice are logged and discarded. Completion is
// matched by sender (the dispatcher) and value, so concurrent collects
// against the same dispatcher need distinct notify values.
//
// wait bounds each blocking step separately, submission first and then the
// wait for completion. When the work function returns no bytes the
// completion arrives as a bare notification and dec is called with nil.
func SubmitAndCollect[T any](d *Dispatcher, self *Task, fn WorkFunc, args any, notifyValue uint16, wait time.Duration, dec Decoder[T]) (T, error) {
	var zero T
	if d == nil || self == nil {
		return zero, errors.New("submit and collect: nil dispatcher or task")
	}
	if dec == nil {
		return zero, errors.New("submit and collect: nil decoder")
	}

	item := WorkItem{
		Fn:          fn,
		Args:        args,
		ReplyTo:     self.Identity(),
		NotifyValue: notifyValue,
	}
	if err := d.Submit(item, wait); err != nil {
		return zero, err
	}

	if err := awaitCompletion(d, self, notifyValue, wait); err != nil {
		return zero, err
	}

	p, err := self.ReceiveData(NoWait)
	if err != nil {
		// Notification-only completion: the work function produced nothing.
		return dec(nil)
	}
	v, derr := dec(p)
	if relErr := self.ReleaseData(p); relErr != nil {
		self.logger.Warn("result slot not released",
			F("task", self.name),
			FErr(relErr))
	}
	if derr != nil {
		return zero, fmt.Errorf("decode result from %q: %w", d.Name(), derr)
	}
	return v, nil
}

// SubmitAndWait is SubmitAndCollect for work whose outcome is the completion
// itself. Any routed payload is released unread.
func SubmitAndWait(d *Dispatcher, self *Task, fn WorkFunc, args any, notifyValue uint16, wait time.Duration) error {
	if d == nil || self == nil {
		return errors.New("submit and wait: nil dispatcher or task")
	}

	item := WorkItem{
		Fn:          fn,
		Args:        args,
		ReplyTo:     self.Identity(),
		NotifyValue: notifyValue,
	}
	if err := d.Submit(item, wait); err != nil {
		return err
	}

	if err := awaitCompletion(d, self, notifyValue, wait); err != nil {
		return err
	}
	if p, err := self.ReceiveData(NoWait); err == nil {
		_ = self.ReleaseData(p)
	}
	return nil
}

// awaitCompletion blocks on self's notification queue until the dispatcher's
// completion notice for notifyValue arrives.
func awaitCompletion(d *Dispatcher, self *Task, notifyValue uint16, wait time.Duration) error {
	from := d.Identity()
	for {
		n, err := self.ReceiveNotification(wait)
		if err != nil {
			return fmt.Errorf("await result from %q: %w", d.Name(), err)
		}
		if n.Sender == from && n.Value == notifyValue {
			return nil
		}
		self.logger.Warn("unrelated notification discarded during collect",
			F("task", self.name),
			FIdentity("sender", n.Sender),
			F("value", n.Value))
	}
}
