package core

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// ErrUnknownTarget is returned when an identity does not resolve to a live
// task. Delivery to a stale or null target is a no-op failure, not a crash:
// a peer may have closed between lookup and send.
var ErrUnknownTarget = errors.New("target task not found")

// TaskFunc is the body of a task. It runs once on the task's dedicated
// goroutine; long-lived tasks loop inside it, typically around
// ReceiveNotification. The context is cancelled when the task is closed.
type TaskFunc func(ctx context.Context, self *Task)

// TaskOptions configures a task at construction. Zero-value fields fall
// back to defaults; see DefaultTaskOptions.
type TaskOptions struct {
	// NotifyCapacity bounds the notification queue. Defaults to
	// DefaultNotifyCapacity.
	NotifyCapacity int

	// RingCapacity sizes the data channel arena in bytes. Defaults to
	// DefaultRingCapacity.
	RingCapacity int

	// NoDataChannel opts the task out of the data channel entirely: data
	// operations against it fail with ErrNoDataChannel. Tasks that only
	// exchange notifications save the arena.
	NoDataChannel bool

	// LockOSThread pins the task's goroutine to one OS thread, the closest
	// analog of core affinity this runtime offers.
	LockOSThread bool

	// Logger, Metrics and PanicHandler default to NewDefaultLogger,
	// NilMetrics and DefaultPanicHandler.
	Logger       Logger
	Metrics      Metrics
	PanicHandler PanicHandler
}

// DefaultTaskOptions returns the options used when callers pass the zero
// value.
func DefaultTaskOptions() TaskOptions {
	return TaskOptions{
		NotifyCapacity: DefaultNotifyCapacity,
		RingCapacity:   DefaultRingCapacity,
	}
}

func (o TaskOptions) withDefaults() TaskOptions {
	if o.NotifyCapacity < 1 {
		o.NotifyCapacity = DefaultNotifyCapacity
	}
	if o.RingCapacity < 1 {
		o.RingCapacity = DefaultRingCapacity
	}
	if o.Logger == nil {
		o.Logger = NewDefaultLogger()
	}
	if o.Metrics == nil {
		o.Metrics = &NilMetrics{}
	}
	if o.PanicHandler == nil {
		o.PanicHandler = &DefaultPanicHandler{}
	}
	return o
}

// Task is a messaging-capable execution context: a named goroutine with a
// registry identity, a notification queue, and (unless opted out) a data
// channel. Capabilities are composed onto the task rather than inherited;
// a task that never touches its data channel pays for it only in memory.
//
// Lifecycle: NewTask registers the identity and allocates the channels;
// Start launches the body; Close cancels the body, releases every blocked
// peer with ErrClosed, and returns the identity to its kind's pool. All
// three channel resources live and die with the task.
type Task struct {
	name     string
	identity Identity
	registry *Registry

	notify *NotifyQueue
	data   *DataChannel // nil when NoDataChannel

	fn           TaskFunc
	lockOSThread bool
	logger       Logger
	metrics      Metrics
	panicHandler PanicHandler

	// Lifecycle control
	lifeMu  sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	closing chan struct{} // closed by Close, before channel teardown
	stopped chan struct{} // closed when the goroutine exits
	running atomic.Bool

	// Cooperative suspend gate, honored at the owner-side blocking points
	suspendMu sync.Mutex
	suspended bool
	resumeCh  chan struct{}
}

// NewTask registers a fresh identity of the given kind and builds the
// task's channels around it. On identity exhaustion no task is created and
// the error carries ErrKindExhausted. The task does not run until Start.
func NewTask(reg *Registry, kind uint8, name string, fn TaskFunc, opts TaskOptions) (*Task, error) {
	if reg == nil {
		return nil, errors.New("nil registry")
	}
	if fn == nil {
		return nil, errors.New("nil task func")
	}
	opts = opts.withDefaults()

	t := &Task{
		name:         name,
		registry:     reg,
		fn:           fn,
		lockOSThread: opts.LockOSThread,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		panicHandler: opts.PanicHandler,
		closing:      make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	t.notify = NewNotifyQueue(opts.NotifyCapacity)
	if !opts.NoDataChannel {
		t.data = newDataChannel(t, opts.RingCapacity)
	}

	if _, err := reg.Register(kind, t); err != nil {
		return nil, fmt.Errorf("register task %q: %w", name, err)
	}
	t.logger.Debug("task registered",
		F("name", name),
		FIdentity("identity", t.identity))
	return t, nil
}

// Name returns the task's name.
func (t *Task) Name() string {
	return t.name
}

// Identity returns the task's registry identity.
func (t *Task) Identity() Identity {
	return t.identity
}

// Registry returns the directory this task is registered in.
func (t *Task) Registry() *Registry {
	return t.registry
}

// =============================================================================
// Lifecycle
// =============================================================================

// Start launches the task body on its dedicated goroutine. Starting twice
// or after Close is an error.
func (t *Task) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	t.lifeMu.Lock()
	defer t.lifeMu.Unlock()

	if t.closed {
		return fmt.Errorf("start task %q: %w", t.name, ErrClosed)
	}
	if t.started {
		return fmt.Errorf("task %q already started", t.name)
	}
	t.started = true

	runCtx, cancel := context.WithCancel(context.WithValue(ctx, taskKey, t))
	t.cancel = cancel
	go t.run(runCtx)
	return nil
}

func (t *Task) run(ctx context.Context) {
	defer close(t.stopped)
	defer t.running.Store(false)
	defer func() {
		if rec := recover(); rec != nil {
			t.panicHandler.HandlePanic(ctx, t.name, t.identity, rec, debug.Stack())
		}
	}()

	if t.lockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	t.running.Store(true)
	t.fn(ctx, t)
}

// IsRunning reports whether the task body is currently executing.
func (t *Task) IsRunning() bool {
	return t.running.Load()
}

// Suspend parks the task at its next owner-side blocking point
// (ReceiveNotification, ReceiveData, Sleep). Peers can still send to it;
// their messages queue up until Resume. Suspending twice is a no-op.
func (t *Task) Suspend() {
	t.suspendMu.Lock()
	defer t.suspendMu.Unlock()

	if t.suspended {
		return
	}
	t.suspended = true
	t.resumeCh = make(chan struct{})
}

// Resume releases a suspended task. Resuming a task that is not suspended
// is a no-op.
func (t *Task) Resume() {
	t.suspendMu.Lock()
	defer t.suspendMu.Unlock()

	if !t.suspended {
		return
	}
	t.suspended = false
	close(t.resumeCh)
}

// IsSuspended reports whether the suspend gate is down.
func (t *Task) IsSuspended() bool {
	t.suspendMu.Lock()
	defer t.suspendMu.Unlock()
	return t.suspended
}

// waitIfSuspended blocks while the suspend gate is down. Close lifts it.
func (t *Task) waitIfSuspended() {
	for {
		t.suspendMu.Lock()
		if !t.suspended {
			t.suspendMu.Unlock()
			return
		}
		resume := t.resumeCh
		t.suspendMu.Unlock()

		select {
		case <-resume:
		case <-t.closing:
			return
		}
	}
}

// Sleep delays the calling task body, returning early when the task is
// closed. It reports whether the full duration elapsed.
func (t *Task) Sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-t.closing:
		return false
	}
}

// Close destroys the task: the body's context is cancelled, both channels
// close and release every blocked sender and receiver with ErrClosed, and
// the identity returns to its kind's pool for reuse. Close does not wait
// for the body to return; use WaitStopped for that. Closing twice is a
// no-op.
func (t *Task) Close() {
	t.lifeMu.Lock()
	if t.closed {
		t.lifeMu.Unlock()
		return
	}
	t.closed = true
	if t.cancel != nil {
		t.cancel()
	}
	if !t.started {
		close(t.stopped)
	}
	t.lifeMu.Unlock()

	close(t.closing)
	t.Resume()
	t.notify.Close()
	if t.data != nil {
		t.data.close()
	}
	t.registry.Unregister(t.identity)
	t.logger.Debug("task closed",
		F("name", t.name),
		FIdentity("identity", t.identity))
}

// WaitStopped blocks until the task body has returned, up to wait.
func (t *Task) WaitStopped(wait time.Duration) error {
	select {
	case <-t.stopped:
		return nil
	default:
	}
	if wait == NoWait {
		return ErrTimeout
	}

	timeout, cancel := waitTimeout(wait)
	defer cancel()

	select {
	case <-t.stopped:
		return nil
	case <-timeout:
		return ErrTimeout
	}
}

// =============================================================================
// Notification operations
// =============================================================================

// SendNotification enqueues a notification carrying this task's identity at
// the back of target's queue, blocking up to wait when the queue is full.
func (t *Task) SendNotification(target *Task, value uint16, wait time.Duration) error {
	return t.sendNotification(target, value, wait, Back)
}

// SendNotificationFront is SendNotification with front insertion: the
// notification jumps ahead of everything already queued.
func (t *Task) SendNotificationFront(target *Task, value uint16, wait time.Duration) error {
	return t.sendNotification(target, value, wait, Front)
}

// SendNotificationTo resolves ident through the registry and sends to the
// back of the resolved task's queue. An unresolved identity is a logged
// no-op failure.
func (t *Task) SendNotificationTo(ident Identity, value uint16, wait time.Duration) error {
	target, ok := t.resolveTarget(ident)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, ident)
	}
	return t.sendNotification(target, value, wait, Back)
}

// SendNotificationToFront is SendNotificationTo with front insertion.
func (t *Task) SendNotificationToFront(ident Identity, value uint16, wait time.Duration) error {
	target, ok := t.resolveTarget(ident)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, ident)
	}
	return t.sendNotification(target, value, wait, Front)
}

func (t *Task) sendNotification(target *Task, value uint16, wait time.Duration, pos QueuePosition) error {
	if target == nil {
		t.metrics.RecordNotificationDropped("", "nil target")
		return ErrUnknownTarget
	}

	n := Notification{Sender: t.identity, Value: value}
	if err := target.notify.Send(n, wait, pos); err != nil {
		t.logger.Warn("notification not delivered",
			F("target", target.name),
			FIdentity("sender", t.identity),
			FErr(err))
		t.metrics.RecordNotificationDropped(target.name, dropReason(err))
		return fmt.Errorf("notify %s: %w", target.name, err)
	}
	t.metrics.RecordNotificationSent(target.name, pos == Front)
	return nil
}

// ReceiveNotification dequeues the oldest notification, blocking up to
// wait. On timeout it returns the zero Notification sentinel and
// ErrTimeout. A suspended task parks here until Resume.
func (t *Task) ReceiveNotification(wait time.Duration) (Notification, error) {
	t.waitIfSuspended()
	return t.notify.Receive(wait)
}

func (t *Task) resolveTarget(ident Identity) (*Task, bool) {
	target, ok := t.registry.Resolve(ident)
	if !ok {
		t.logger.Warn("target identity not registered",
			FIdentity("target", ident),
			FIdentity("sender", t.identity))
		t.metrics.RecordNotificationDropped(t.name, "unknown target")
		return nil, false
	}
	return target, true
}

// SendNotificationFromInterrupt delivers a notification from a context that
// has no task identity and must never block: the scheduling analog of an
// interrupt handler. The sender is the fixed InterruptSender identity.
// delivered reports whether the queue accepted it; woke reports whether a
// blocked receiver was released, in which case the caller may yield
// (runtime.Gosched) to let it run.
func SendNotificationFromInterrupt(target *Task, value uint16) (delivered, woke bool) {
	if target == nil {
		return false, false
	}
	return target.notify.SendFromInterrupt(Notification{Sender: InterruptSender, Value: value})
}

// =============================================================================
// Data operations
// =============================================================================

// SendData runs the ordering protocol against target's data channel: mutex
// acquire and ring write bounded by wait, then, when withNotification is
// set, the unbounded notification enqueue that keeps data and notification
// order identical. See DataChannel for the full contract.
func (t *Task) SendData(target *Task, p []byte, wait time.Duration, withNotification bool, value uint16) error {
	if target == nil {
		return ErrUnknownTarget
	}
	if target.data == nil {
		t.logger.Warn("data target has no data channel", F("target", target.name))
		t.metrics.RecordDataSendFailure(target.name, "no data channel")
		return fmt.Errorf("send data to %s: %w", target.name, ErrNoDataChannel)
	}
	return target.data.send(t.identity, p, wait, withNotification, value)
}

// SendDataTo resolves ident through the registry and runs SendData against
// the resolved task. An unresolved identity is a logged no-op failure.
func (t *Task) SendDataTo(ident Identity, p []byte, wait time.Duration, withNotification bool, value uint16) error {
	target, ok := t.registry.Resolve(ident)
	if !ok {
		t.logger.Warn("data target not registered",
			FIdentity("target", ident),
			FIdentity("sender", t.identity))
		t.metrics.RecordDataSendFailure("", "unknown target")
		return fmt.Errorf("%w: %s", ErrUnknownTarget, ident)
	}
	return t.SendData(target, p, wait, withNotification, value)
}

// ReceiveData returns the oldest payload in this task's ring as a zero-copy
// slice, blocking up to wait. The caller must hand the slice back through
// ReleaseData once processed; the slot stays occupied until then. The
// normal pattern is one ReceiveData per "data available" notification.
func (t *Task) ReceiveData(wait time.Duration) ([]byte, error) {
	if t.data == nil {
		return nil, ErrNoDataChannel
	}
	t.waitIfSuspended()
	return t.data.receive(wait)
}

// ReleaseData frees a payload obtained from ReceiveData.
func (t *Task) ReleaseData(p []byte) error {
	if t.data == nil {
		return ErrNoDataChannel
	}
	return t.data.release(p)
}

// =============================================================================
// Observability
// =============================================================================

// Stats returns a point-in-time snapshot of the task's channels.
func (t *Task) Stats() TaskStats {
	s := TaskStats{
		Name:      t.name,
		Identity:  t.identity,
		Running:   t.IsRunning(),
		Suspended: t.IsSuspended(),
		Notify:    t.notify.Stats(),
	}
	if t.data != nil {
		s.HasData = true
		s.Data = t.data.Stats()
	}
	return s
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNoSpace):
		return "no_space"
	case errors.Is(err, ErrClosed):
		return "closed"
	default:
		return "error"
	}
}

// =============================================================================
// Context Helper
// =============================================================================

type taskKeyType struct{}

var taskKey taskKeyType

// GetCurrentTask returns the task owning the calling goroutine, or nil when
// the context did not come from a task body.
func GetCurrentTask(ctx context.Context) *Task {
	if v := ctx.Value(taskKey); v != nil {
		return v.(*Task)
	}
	return nil
}
